package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/skafu/skafu/internal/services/scaffold/domain/project"
	"github.com/skafu/skafu/internal/services/scaffold/storage"
)

const projectColumns = `project_id, name, description, owner_id, organization_id,
	template_id, template_version, template_compatible, repository_url, status,
	service_count, created_at, updated_at`

// PutProject upserts a project read-model record.
func (s *Store) PutProject(ctx context.Context, record storage.ProjectRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.ProjectID = strings.TrimSpace(record.ProjectID)
	if record.ProjectID == "" {
		return fmt.Errorf("project id is required")
	}

	compatible := 0
	if record.TemplateCompatible {
		compatible = 1
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (project_id) DO UPDATE SET
		     name = excluded.name,
		     description = excluded.description,
		     owner_id = excluded.owner_id,
		     organization_id = excluded.organization_id,
		     template_id = excluded.template_id,
		     template_version = excluded.template_version,
		     template_compatible = excluded.template_compatible,
		     repository_url = excluded.repository_url,
		     status = excluded.status,
		     service_count = excluded.service_count,
		     updated_at = excluded.updated_at`,
		record.ProjectID,
		record.Name,
		record.Description,
		record.OwnerID,
		record.OrganizationID,
		record.TemplateID,
		record.TemplateVersion,
		compatible,
		record.RepositoryURL,
		string(record.Status),
		record.ServiceCount,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put project: %w", err)
	}
	return nil
}

// GetProject returns one project record.
func (s *Store) GetProject(ctx context.Context, projectID string) (storage.ProjectRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ProjectRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ProjectRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE project_id = ?`,
		projectID,
	)
	record, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ProjectRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ProjectRecord{}, err
	}
	return record, nil
}

// ListProjectsByOrganization returns non-deleted projects for an organization
// ordered by name.
func (s *Store) ListProjectsByOrganization(ctx context.Context, organizationID string) ([]storage.ProjectRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+projectColumns+`
		 FROM projects
		 WHERE organization_id = ? AND status != 'deleted'
		 ORDER BY name ASC, project_id ASC`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var records []storage.ProjectRecord
	for rows.Next() {
		record, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteProject removes a project record and its dependent rows.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete project tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM relationships WHERE project_id = ?`,
		`DELETE FROM services WHERE project_id = ?`,
		`DELETE FROM projects WHERE project_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, projectID); err != nil {
			return fmt.Errorf("delete project rows: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete project tx: %w", err)
	}
	return nil
}

// PutService upserts a service read-model record.
func (s *Store) PutService(ctx context.Context, record storage.ServiceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if record.ProjectID == "" || record.ServiceID == "" {
		return fmt.Errorf("project id and service id are required")
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO services (project_id, service_id, name, type, status, deployment_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (project_id, service_id) DO UPDATE SET
		     name = excluded.name,
		     type = excluded.type,
		     status = excluded.status,
		     deployment_id = excluded.deployment_id,
		     updated_at = excluded.updated_at`,
		record.ProjectID,
		record.ServiceID,
		record.Name,
		string(record.Type),
		string(record.Status),
		record.DeploymentID,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put service: %w", err)
	}
	return nil
}

// ListServices returns services for a project ordered by name.
func (s *Store) ListServices(ctx context.Context, projectID string) ([]storage.ServiceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT project_id, service_id, name, type, status, deployment_id, created_at, updated_at
		 FROM services
		 WHERE project_id = ?
		 ORDER BY name ASC, service_id ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var records []storage.ServiceRecord
	for rows.Next() {
		var (
			record          storage.ServiceRecord
			serviceType     string
			serviceStatus   string
			createdAtMillis int64
			updatedAtMillis int64
		)
		if err := rows.Scan(
			&record.ProjectID,
			&record.ServiceID,
			&record.Name,
			&serviceType,
			&serviceStatus,
			&record.DeploymentID,
			&createdAtMillis,
			&updatedAtMillis,
		); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		record.Type = project.ServiceType(serviceType)
		record.Status = project.ServiceStatus(serviceStatus)
		record.CreatedAt = fromMillis(createdAtMillis)
		record.UpdatedAt = fromMillis(updatedAtMillis)
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteService removes one service record.
func (s *Store) DeleteService(ctx context.Context, projectID, serviceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM services WHERE project_id = ? AND service_id = ?`,
		projectID, serviceID,
	); err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	return nil
}

// PutRelationship upserts a relationship read-model record.
func (s *Store) PutRelationship(ctx context.Context, record storage.RelationshipRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if record.ProjectID == "" || record.RelationshipID == "" {
		return fmt.Errorf("project id and relationship id are required")
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO relationships (project_id, relationship_id, source_id, target_id, type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (project_id, relationship_id) DO UPDATE SET
		     source_id = excluded.source_id,
		     target_id = excluded.target_id,
		     type = excluded.type`,
		record.ProjectID,
		record.RelationshipID,
		record.SourceID,
		record.TargetID,
		string(record.Type),
		toMillis(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("put relationship: %w", err)
	}
	return nil
}

// ListRelationships returns relationships for a project ordered by id.
func (s *Store) ListRelationships(ctx context.Context, projectID string) ([]storage.RelationshipRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT project_id, relationship_id, source_id, target_id, type, created_at
		 FROM relationships
		 WHERE project_id = ?
		 ORDER BY relationship_id ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	defer rows.Close()

	var records []storage.RelationshipRecord
	for rows.Next() {
		var (
			record          storage.RelationshipRecord
			relType         string
			createdAtMillis int64
		)
		if err := rows.Scan(
			&record.ProjectID,
			&record.RelationshipID,
			&record.SourceID,
			&record.TargetID,
			&relType,
			&createdAtMillis,
		); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		record.Type = project.RelationshipType(relType)
		record.CreatedAt = fromMillis(createdAtMillis)
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteRelationship removes one relationship record.
func (s *Store) DeleteRelationship(ctx context.Context, projectID, relationshipID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM relationships WHERE project_id = ? AND relationship_id = ?`,
		projectID, relationshipID,
	); err != nil {
		return fmt.Errorf("delete relationship: %w", err)
	}
	return nil
}

// DeleteRelationshipsForService removes every edge touching a service.
func (s *Store) DeleteRelationshipsForService(ctx context.Context, projectID, serviceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM relationships WHERE project_id = ? AND (source_id = ? OR target_id = ?)`,
		projectID, serviceID, serviceID,
	); err != nil {
		return fmt.Errorf("delete relationships for service: %w", err)
	}
	return nil
}

func scanProject(row rowScanner) (storage.ProjectRecord, error) {
	var (
		record          storage.ProjectRecord
		status          string
		compatible      int
		createdAtMillis int64
		updatedAtMillis int64
	)
	if err := row.Scan(
		&record.ProjectID,
		&record.Name,
		&record.Description,
		&record.OwnerID,
		&record.OrganizationID,
		&record.TemplateID,
		&record.TemplateVersion,
		&compatible,
		&record.RepositoryURL,
		&status,
		&record.ServiceCount,
		&createdAtMillis,
		&updatedAtMillis,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ProjectRecord{}, err
		}
		return storage.ProjectRecord{}, fmt.Errorf("scan project: %w", err)
	}
	record.Status = project.Status(status)
	record.TemplateCompatible = compatible != 0
	record.CreatedAt = fromMillis(createdAtMillis)
	record.UpdatedAt = fromMillis(updatedAtMillis)
	return record, nil
}
