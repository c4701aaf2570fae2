// Package projection maintains the read model from journal events.
package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
	"github.com/skafu/skafu/internal/services/scaffold/domain/project"
	"github.com/skafu/skafu/internal/services/scaffold/observability/audit"
	"github.com/skafu/skafu/internal/services/scaffold/storage"
)

// Stores bundles the read-model stores the applier writes to.
type Stores interface {
	storage.ProjectStore
	storage.ServiceStore
	storage.RelationshipStore
	storage.WatermarkStore
}

// Applier folds journal events into read-model records.
//
// Application is idempotent: the per-project watermark records the highest
// applied sequence, re-delivered events at or below it are skipped, and a
// sequence above watermark+1 is a gap error so ordering violations surface
// instead of corrupting the read model.
type Applier struct {
	Stores Stores
	Audit  *audit.Emitter
	Now    func() time.Time
}

// Apply applies one journal event to the read model. It reports whether the
// event was applied (false means it was already applied earlier).
func (a Applier) Apply(ctx context.Context, evt event.Event) (bool, error) {
	if a.Stores == nil {
		return false, fmt.Errorf("stores are required")
	}
	if evt.ProjectID == "" {
		return false, fmt.Errorf("project id is required")
	}
	if evt.Seq == 0 {
		return false, fmt.Errorf("event sequence must be greater than zero")
	}

	applied := uint64(0)
	watermark, err := a.Stores.GetProjectionWatermark(ctx, evt.ProjectID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return false, err
		}
	} else {
		applied = watermark.AppliedSeq
	}

	if evt.Seq <= applied {
		return false, nil
	}
	if evt.Seq != applied+1 {
		return false, fmt.Errorf("projection sequence gap for %s: expected %d got %d", evt.ProjectID, applied+1, evt.Seq)
	}

	if err := a.applyEvent(ctx, evt); err != nil {
		return false, err
	}

	now := time.Now().UTC()
	if a.Now != nil {
		now = a.Now()
	}
	if err := a.Stores.SaveProjectionWatermark(ctx, storage.ProjectionWatermark{
		ProjectID:  evt.ProjectID,
		AppliedSeq: evt.Seq,
		UpdatedAt:  now,
	}); err != nil {
		return false, err
	}

	if err := a.Audit.Emit(ctx, storage.AuditEvent{
		ProjectID: evt.ProjectID,
		Seq:       evt.Seq,
		EventType: string(evt.Type),
		ActorID:   evt.ActorID,
		RequestID: evt.RequestID,
		Timestamp: evt.Timestamp,
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (a Applier) applyEvent(ctx context.Context, evt event.Event) error {
	switch evt.Type {
	case event.TypeProjectCreated:
		return a.applyProjectCreated(ctx, evt)
	case event.TypeProjectUpdated:
		return a.applyProjectUpdated(ctx, evt)
	case event.TypeProjectDeleted:
		return a.applyProjectDeleted(ctx, evt)
	case event.TypeServiceAdded:
		return a.applyServiceAdded(ctx, evt)
	case event.TypeServiceUpdated:
		return a.applyServiceUpdated(ctx, evt)
	case event.TypeServiceRemoved:
		return a.applyServiceRemoved(ctx, evt)
	case event.TypeRelationshipEstablished:
		return a.applyRelationshipEstablished(ctx, evt)
	case event.TypeRelationshipRemoved:
		return a.applyRelationshipRemoved(ctx, evt)
	case event.TypeTemplateRechecked:
		return a.applyTemplateRechecked(ctx, evt)
	case event.TypeRepositoryAttached:
		return a.applyRepositoryAttached(ctx, evt)
	case event.TypeDeploymentCompleted:
		return a.applyDeploymentCompleted(ctx, evt)
	default:
		// Unknown event types advance the watermark without read-model changes
		// so a journal with newer schema does not wedge the projection.
		log.Printf("projection: skipping unknown event type %s at %s/%d", evt.Type, evt.ProjectID, evt.Seq)
		return nil
	}
}

func (a Applier) applyProjectCreated(ctx context.Context, evt event.Event) error {
	var payload project.CreatePayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		return fmt.Errorf("decode project created payload: %w", err)
	}
	return a.Stores.PutProject(ctx, storage.ProjectRecord{
		ProjectID:          evt.ProjectID,
		Name:               payload.Name,
		Description:        payload.Description,
		OwnerID:            evt.ActorID,
		OrganizationID:     payload.OrganizationID,
		TemplateID:         payload.TemplateID,
		TemplateVersion:    payload.TemplateVersion,
		TemplateCompatible: true,
		Status:             project.StatusDraft,
		CreatedAt:          evt.Timestamp,
		UpdatedAt:          evt.Timestamp,
	})
}

func (a Applier) applyProjectUpdated(ctx context.Context, evt event.Event) error {
	var payload project.UpdatePayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		return fmt.Errorf("decode project updated payload: %w", err)
	}
	record, err := a.Stores.GetProject(ctx, evt.ProjectID)
	if err != nil {
		return err
	}
	for key, value := range payload.Fields {
		switch key {
		case "name":
			record.Name = value
		case "description":
			record.Description = value
		case "status":
			record.Status = project.Status(value)
		}
	}
	record.UpdatedAt = evt.Timestamp
	return a.Stores.PutProject(ctx, record)
}

func (a Applier) applyProjectDeleted(ctx context.Context, evt event.Event) error {
	record, err := a.Stores.GetProject(ctx, evt.ProjectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	// Deleted projects stay queryable by id but drop out of org listings.
	record.Status = project.StatusDeleted
	record.UpdatedAt = evt.Timestamp
	return a.Stores.PutProject(ctx, record)
}

func (a Applier) applyServiceAdded(ctx context.Context, evt event.Event) error {
	var payload project.ServiceAddPayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		return fmt.Errorf("decode service added payload: %w", err)
	}
	if err := a.Stores.PutService(ctx, storage.ServiceRecord{
		ProjectID: evt.ProjectID,
		ServiceID: payload.ServiceID,
		Name:      payload.Name,
		Type:      project.ServiceType(payload.Type),
		Status:    project.ServiceStatusPending,
		CreatedAt: evt.Timestamp,
		UpdatedAt: evt.Timestamp,
	}); err != nil {
		return err
	}
	return a.refreshServiceCount(ctx, evt.ProjectID, evt.Timestamp)
}

func (a Applier) applyServiceUpdated(ctx context.Context, evt event.Event) error {
	var payload project.ServiceUpdatePayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		return fmt.Errorf("decode service updated payload: %w", err)
	}
	record, err := a.findService(ctx, evt.ProjectID, payload.ServiceID)
	if err != nil {
		return err
	}
	for key, value := range payload.Fields {
		switch key {
		case "name":
			record.Name = value
		case "status":
			record.Status = project.ServiceStatus(value)
		}
	}
	record.UpdatedAt = evt.Timestamp
	return a.Stores.PutService(ctx, record)
}

func (a Applier) applyServiceRemoved(ctx context.Context, evt event.Event) error {
	var payload project.ServiceRemovePayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		return fmt.Errorf("decode service removed payload: %w", err)
	}
	if err := a.Stores.DeleteRelationshipsForService(ctx, evt.ProjectID, payload.ServiceID); err != nil {
		return err
	}
	if err := a.Stores.DeleteService(ctx, evt.ProjectID, payload.ServiceID); err != nil {
		return err
	}
	return a.refreshServiceCount(ctx, evt.ProjectID, evt.Timestamp)
}

func (a Applier) applyRelationshipEstablished(ctx context.Context, evt event.Event) error {
	var payload project.RelationshipEstablishPayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		return fmt.Errorf("decode relationship established payload: %w", err)
	}
	return a.Stores.PutRelationship(ctx, storage.RelationshipRecord{
		ProjectID:      evt.ProjectID,
		RelationshipID: payload.RelationshipID,
		SourceID:       payload.SourceID,
		TargetID:       payload.TargetID,
		Type:           project.RelationshipType(payload.Type),
		CreatedAt:      evt.Timestamp,
	})
}

func (a Applier) applyRelationshipRemoved(ctx context.Context, evt event.Event) error {
	var payload project.RelationshipRemovePayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		return fmt.Errorf("decode relationship removed payload: %w", err)
	}
	return a.Stores.DeleteRelationship(ctx, evt.ProjectID, payload.RelationshipID)
}

func (a Applier) applyTemplateRechecked(ctx context.Context, evt event.Event) error {
	var payload project.TemplateRecheckPayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		return fmt.Errorf("decode template rechecked payload: %w", err)
	}
	record, err := a.Stores.GetProject(ctx, evt.ProjectID)
	if err != nil {
		return err
	}
	if payload.TemplateVersion != "" {
		record.TemplateVersion = payload.TemplateVersion
	}
	record.TemplateCompatible = payload.Compatible
	record.UpdatedAt = evt.Timestamp
	return a.Stores.PutProject(ctx, record)
}

func (a Applier) applyRepositoryAttached(ctx context.Context, evt event.Event) error {
	var payload project.RepositoryAttachPayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		return fmt.Errorf("decode repository attached payload: %w", err)
	}
	record, err := a.Stores.GetProject(ctx, evt.ProjectID)
	if err != nil {
		return err
	}
	record.RepositoryURL = payload.RepositoryURL
	record.UpdatedAt = evt.Timestamp
	return a.Stores.PutProject(ctx, record)
}

func (a Applier) applyDeploymentCompleted(ctx context.Context, evt event.Event) error {
	var payload project.DeploymentCompletePayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		return fmt.Errorf("decode deployment completed payload: %w", err)
	}
	record, err := a.findService(ctx, evt.ProjectID, payload.ServiceID)
	if err != nil {
		return err
	}
	record.Status = project.ServiceStatusActive
	record.DeploymentID = payload.DeploymentID
	record.UpdatedAt = evt.Timestamp
	if err := a.Stores.PutService(ctx, record); err != nil {
		return err
	}

	projectRecord, err := a.Stores.GetProject(ctx, evt.ProjectID)
	if err != nil {
		return err
	}
	if projectRecord.Status == project.StatusDraft {
		projectRecord.Status = project.StatusActive
		projectRecord.UpdatedAt = evt.Timestamp
		return a.Stores.PutProject(ctx, projectRecord)
	}
	return nil
}

func (a Applier) findService(ctx context.Context, projectID, serviceID string) (storage.ServiceRecord, error) {
	services, err := a.Stores.ListServices(ctx, projectID)
	if err != nil {
		return storage.ServiceRecord{}, err
	}
	for _, record := range services {
		if record.ServiceID == serviceID {
			return record, nil
		}
	}
	return storage.ServiceRecord{}, storage.ErrNotFound
}

func (a Applier) refreshServiceCount(ctx context.Context, projectID string, at time.Time) error {
	record, err := a.Stores.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	services, err := a.Stores.ListServices(ctx, projectID)
	if err != nil {
		return err
	}
	record.ServiceCount = len(services)
	record.UpdatedAt = at
	return a.Stores.PutProject(ctx, record)
}
