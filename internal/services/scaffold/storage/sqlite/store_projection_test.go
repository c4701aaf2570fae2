package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/skafu/skafu/internal/services/scaffold/domain/project"
	"github.com/skafu/skafu/internal/services/scaffold/storage"
)

func openTestProjections(t *testing.T) *Store {
	t.Helper()
	store, err := OpenProjections(filepath.Join(t.TempDir(), "projections.db"))
	if err != nil {
		t.Fatalf("open projections: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func projectRecord(projectID, organizationID, name string) storage.ProjectRecord {
	now := time.Date(2026, 5, 10, 8, 30, 0, 0, time.UTC)
	return storage.ProjectRecord{
		ProjectID:          projectID,
		Name:               name,
		OwnerID:            "user-1",
		OrganizationID:     organizationID,
		TemplateID:         "tmpl-1",
		TemplateCompatible: true,
		Status:             project.StatusDraft,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestProjectPutGetRoundTrip(t *testing.T) {
	store := openTestProjections(t)
	ctx := context.Background()

	record := projectRecord("proj-1", "org-1", "Orders")
	if err := store.PutProject(ctx, record); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.GetProject(ctx, "proj-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Orders" || got.Status != project.StatusDraft || !got.TemplateCompatible {
		t.Fatalf("unexpected record %+v", got)
	}

	// Upsert updates in place.
	record.Status = project.StatusActive
	record.ServiceCount = 3
	if err := store.PutProject(ctx, record); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err = store.GetProject(ctx, "proj-1")
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if got.Status != project.StatusActive || got.ServiceCount != 3 {
		t.Fatalf("expected updated record, got %+v", got)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	store := openTestProjections(t)
	_, err := store.GetProject(context.Background(), "proj-missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListProjectsByOrganizationExcludesDeleted(t *testing.T) {
	store := openTestProjections(t)
	ctx := context.Background()

	if err := store.PutProject(ctx, projectRecord("proj-b", "org-1", "Billing")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.PutProject(ctx, projectRecord("proj-a", "org-1", "Accounts")); err != nil {
		t.Fatalf("put: %v", err)
	}
	deleted := projectRecord("proj-c", "org-1", "Cart")
	deleted.Status = project.StatusDeleted
	if err := store.PutProject(ctx, deleted); err != nil {
		t.Fatalf("put deleted: %v", err)
	}
	if err := store.PutProject(ctx, projectRecord("proj-d", "org-2", "Other")); err != nil {
		t.Fatalf("put other org: %v", err)
	}

	records, err := store.ListProjectsByOrganization(ctx, "org-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 || records[0].Name != "Accounts" || records[1].Name != "Billing" {
		t.Fatalf("expected name-ordered org projects, got %+v", records)
	}
}

func TestServiceAndRelationshipRoundTrip(t *testing.T) {
	store := openTestProjections(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 8, 30, 0, 0, time.UTC)

	for _, record := range []storage.ServiceRecord{
		{ProjectID: "proj-1", ServiceID: "svc-b", Name: "web", Type: project.ServiceTypeFrontend, Status: project.ServiceStatusPending, CreatedAt: now, UpdatedAt: now},
		{ProjectID: "proj-1", ServiceID: "svc-a", Name: "api", Type: project.ServiceTypeBackend, Status: project.ServiceStatusActive, DeploymentID: "dep-1", CreatedAt: now, UpdatedAt: now},
	} {
		if err := store.PutService(ctx, record); err != nil {
			t.Fatalf("put service: %v", err)
		}
	}

	services, err := store.ListServices(ctx, "proj-1")
	if err != nil {
		t.Fatalf("list services: %v", err)
	}
	if len(services) != 2 || services[0].Name != "api" || services[1].Name != "web" {
		t.Fatalf("expected name-ordered services, got %+v", services)
	}

	rel := storage.RelationshipRecord{
		ProjectID:      "proj-1",
		RelationshipID: "rel-1",
		SourceID:       "svc-b",
		TargetID:       "svc-a",
		Type:           project.RelationshipSyncAPI,
		CreatedAt:      now,
	}
	if err := store.PutRelationship(ctx, rel); err != nil {
		t.Fatalf("put relationship: %v", err)
	}
	relationships, err := store.ListRelationships(ctx, "proj-1")
	if err != nil {
		t.Fatalf("list relationships: %v", err)
	}
	if len(relationships) != 1 || relationships[0].SourceID != "svc-b" {
		t.Fatalf("unexpected relationships %+v", relationships)
	}

	if err := store.DeleteRelationshipsForService(ctx, "proj-1", "svc-a"); err != nil {
		t.Fatalf("delete relationships for service: %v", err)
	}
	relationships, err = store.ListRelationships(ctx, "proj-1")
	if err != nil {
		t.Fatalf("list relationships after delete: %v", err)
	}
	if len(relationships) != 0 {
		t.Fatalf("expected edges removed with service, got %+v", relationships)
	}

	if err := store.DeleteService(ctx, "proj-1", "svc-a"); err != nil {
		t.Fatalf("delete service: %v", err)
	}
	services, err = store.ListServices(ctx, "proj-1")
	if err != nil {
		t.Fatalf("list services after delete: %v", err)
	}
	if len(services) != 1 {
		t.Fatalf("expected one service left, got %+v", services)
	}
}

func TestProjectionWatermarkUpsert(t *testing.T) {
	store := openTestProjections(t)
	ctx := context.Background()

	_, err := store.GetProjectionWatermark(ctx, "proj-1")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	now := time.Date(2026, 5, 10, 8, 30, 0, 0, time.UTC)
	if err := store.SaveProjectionWatermark(ctx, storage.ProjectionWatermark{ProjectID: "proj-1", AppliedSeq: 4, UpdatedAt: now}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveProjectionWatermark(ctx, storage.ProjectionWatermark{ProjectID: "proj-1", AppliedSeq: 5, UpdatedAt: now}); err != nil {
		t.Fatalf("save again: %v", err)
	}

	watermark, err := store.GetProjectionWatermark(ctx, "proj-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if watermark.AppliedSeq != 5 {
		t.Fatalf("expected applied seq 5, got %d", watermark.AppliedSeq)
	}

	watermarks, err := store.ListProjectionWatermarks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(watermarks) != 1 {
		t.Fatalf("expected one watermark, got %d", len(watermarks))
	}
}

func TestAuditTrailRoundTrip(t *testing.T) {
	store := openTestProjections(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 8, 30, 0, 0, time.UTC)

	for seq := uint64(1); seq <= 3; seq++ {
		if err := store.PutAuditEvent(ctx, storage.AuditEvent{
			ProjectID: "proj-1",
			Seq:       seq,
			EventType: "project.updated",
			ActorID:   "user-1",
			Timestamp: now,
		}); err != nil {
			t.Fatalf("put audit event: %v", err)
		}
	}

	entries, err := store.ListAuditEvents(ctx, "proj-1", 2)
	if err != nil {
		t.Fatalf("list audit events: %v", err)
	}
	if len(entries) != 2 || entries[0].Seq != 3 || entries[1].Seq != 2 {
		t.Fatalf("expected newest-first audit page, got %+v", entries)
	}
}
