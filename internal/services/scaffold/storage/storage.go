package storage

import (
	"context"
	"time"

	apperrors "github.com/skafu/skafu/internal/platform/errors"
	"github.com/skafu/skafu/internal/services/scaffold/domain/project"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity" states
// and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrConcurrencyConflict indicates the journal advanced past the expected
// version between state load and append.
var ErrConcurrencyConflict = apperrors.New(apperrors.CodeConcurrencyConflict, "journal version conflict")

// ProjectRecord captures the projection-oriented project metadata that APIs read.
type ProjectRecord struct {
	ProjectID          string
	Name               string
	Description        string
	OwnerID            string
	OrganizationID     string
	TemplateID         string
	TemplateVersion    string
	TemplateCompatible bool
	RepositoryURL      string
	Status             project.Status
	ServiceCount       int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ServiceRecord captures per-service read state used by topology queries.
type ServiceRecord struct {
	ProjectID    string
	ServiceID    string
	Name         string
	Type         project.ServiceType
	Status       project.ServiceStatus
	DeploymentID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RelationshipRecord captures one dependency edge in the read model.
type RelationshipRecord struct {
	ProjectID      string
	RelationshipID string
	SourceID       string
	TargetID       string
	Type           project.RelationshipType
	CreatedAt      time.Time
}

// ProjectionWatermark tracks the highest journal sequence applied to the
// read model for a project.
type ProjectionWatermark struct {
	ProjectID  string
	AppliedSeq uint64
	UpdatedAt  time.Time
}

// AuditEvent captures an audit trail entry for operator inspection.
type AuditEvent struct {
	ID        int64
	ProjectID string
	Seq       uint64
	EventType string
	ActorID   string
	RequestID string
	Timestamp time.Time
}

// PublishFailure records an event whose publication was abandoned after the
// retry budget was exhausted. Failures are kept for operator replay.
type PublishFailure struct {
	ID          int64
	ProjectID   string
	Seq         uint64
	EventType   string
	PayloadJSON []byte
	LastError   string
	Attempts    int
	RecordedAt  time.Time
}

// ProjectStore owns the project-level read model used by list/detail queries.
type ProjectStore interface {
	PutProject(ctx context.Context, record ProjectRecord) error
	GetProject(ctx context.Context, projectID string) (ProjectRecord, error)
	// ListProjectsByOrganization returns projects for an organization ordered
	// by name. Deleted projects are excluded.
	ListProjectsByOrganization(ctx context.Context, organizationID string) ([]ProjectRecord, error)
	DeleteProject(ctx context.Context, projectID string) error
}

// ServiceStore owns the per-project service read model.
type ServiceStore interface {
	PutService(ctx context.Context, record ServiceRecord) error
	ListServices(ctx context.Context, projectID string) ([]ServiceRecord, error)
	DeleteService(ctx context.Context, projectID, serviceID string) error
}

// RelationshipStore owns the dependency edge read model.
type RelationshipStore interface {
	PutRelationship(ctx context.Context, record RelationshipRecord) error
	ListRelationships(ctx context.Context, projectID string) ([]RelationshipRecord, error)
	DeleteRelationship(ctx context.Context, projectID, relationshipID string) error
	DeleteRelationshipsForService(ctx context.Context, projectID, serviceID string) error
}

// WatermarkStore owns per-project projection watermarks.
type WatermarkStore interface {
	GetProjectionWatermark(ctx context.Context, projectID string) (ProjectionWatermark, error)
	SaveProjectionWatermark(ctx context.Context, watermark ProjectionWatermark) error
	ListProjectionWatermarks(ctx context.Context) ([]ProjectionWatermark, error)
}

// AuditStore records the audit trail.
type AuditStore interface {
	PutAuditEvent(ctx context.Context, entry AuditEvent) error
	ListAuditEvents(ctx context.Context, projectID string, limit int) ([]AuditEvent, error)
}
