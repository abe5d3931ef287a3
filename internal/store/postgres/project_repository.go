// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/opentrusty/tenantdesk/internal/project"
)

const projectColumns = `id::text, tenant_id::text, name, description, status, COALESCE(created_by::text, ''), created_at, updated_at`

// ProjectRepository implements project.ProjectRepository
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

var _ project.ProjectRepository = (*ProjectRepository)(nil)

func scanProject(row pgx.Row) (*project.Project, error) {
	var p project.Project
	var status string
	if err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = project.Status(status)
	return &p, nil
}

// Create creates a new project
func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) error {
	createdBy := p.CreatedBy
	if !validID(createdBy) {
		createdBy = ""
	}
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO projects (id, tenant_id, name, description, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.TenantID, p.Name, p.Description, string(p.Status), nullable(createdBy), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by ID
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*project.Project, error) {
	if !validID(id) {
		return nil, project.ErrProjectNotFound
	}
	p, err := scanProject(r.db.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, project.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// Update updates a project. The owning tenant never changes.
func (r *ProjectRepository) Update(ctx context.Context, p *project.Project) error {
	if !validID(p.ID) {
		return project.ErrProjectNotFound
	}
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE projects SET name = $2, description = $3, status = $4, updated_at = $5
		WHERE id = $1
	`, p.ID, p.Name, p.Description, string(p.Status), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return project.ErrProjectNotFound
	}
	return nil
}

// Delete deletes a project; its tasks cascade
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return project.ErrProjectNotFound
	}
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return project.ErrProjectNotFound
	}
	return nil
}

// List lists projects newest first with the total number of matches
func (r *ProjectRepository) List(ctx context.Context, filter project.ProjectFilter) ([]*project.Project, int, error) {
	var w where
	if filter.TenantID != "" {
		if !validID(filter.TenantID) {
			return []*project.Project{}, 0, nil
		}
		w.add("tenant_id = ?", filter.TenantID)
	}

	var total int
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	clause, args := w.page(filter.Limit, filter.Offset)
	rows, err := r.db.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects`+w.String()+` ORDER BY created_at DESC, id DESC`+clause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	out := []*project.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}
