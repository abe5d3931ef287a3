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

const taskColumns = `id::text, tenant_id::text, project_id::text, title, description, status, priority,
	COALESCE(assigned_to::text, ''), due_date, created_at, updated_at`

// TaskRepository implements project.TaskRepository
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

var _ project.TaskRepository = (*TaskRepository)(nil)

func scanTask(row pgx.Row) (*project.Task, error) {
	var t project.Task
	var status, priority string
	err := row.Scan(&t.ID, &t.TenantID, &t.ProjectID, &t.Title, &t.Description, &status, &priority,
		&t.AssignedTo, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = project.TaskStatus(status)
	t.Priority = project.Priority(priority)
	return &t, nil
}

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, t *project.Task) error {
	if !validID(t.ProjectID) {
		return project.ErrProjectNotFound
	}
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO tasks (id, tenant_id, project_id, title, description, status, priority, assigned_to, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, t.TenantID, t.ProjectID, t.Title, t.Description, string(t.Status), string(t.Priority),
		nullable(t.AssignedTo), t.DueDate, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if code, constraint := pgCode(err); code == codeForeignKeyViolation {
			if constraint == "tasks_assigned_to_fkey" {
				return project.ErrInvalidAssignee
			}
			return project.ErrProjectNotFound
		}
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*project.Task, error) {
	if !validID(id) {
		return nil, project.ErrTaskNotFound
	}
	t, err := scanTask(r.db.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, project.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// Update updates a task. Tenant and project never change.
func (r *TaskRepository) Update(ctx context.Context, t *project.Task) error {
	if !validID(t.ID) {
		return project.ErrTaskNotFound
	}
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5, assigned_to = $6, due_date = $7, updated_at = $8
		WHERE id = $1
	`, t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), nullable(t.AssignedTo), t.DueDate, t.UpdatedAt)
	if err != nil {
		if code, _ := pgCode(err); code == codeForeignKeyViolation {
			return project.ErrInvalidAssignee
		}
		return fmt.Errorf("failed to update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return project.ErrTaskNotFound
	}
	return nil
}

// Delete deletes a task
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return project.ErrTaskNotFound
	}
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return project.ErrTaskNotFound
	}
	return nil
}

// List lists tasks newest first with the total number of matches
func (r *TaskRepository) List(ctx context.Context, filter project.TaskFilter) ([]*project.Task, int, error) {
	var w where
	if filter.TenantID != "" {
		if !validID(filter.TenantID) {
			return []*project.Task{}, 0, nil
		}
		w.add("tenant_id = ?", filter.TenantID)
	}
	if filter.ProjectID != "" {
		if !validID(filter.ProjectID) {
			return []*project.Task{}, 0, nil
		}
		w.add("project_id = ?", filter.ProjectID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}

	var total int
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	clause, args := w.page(filter.Limit, filter.Offset)
	rows, err := r.db.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks`+w.String()+` ORDER BY created_at DESC, id DESC`+clause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	out := []*project.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// CountByProject counts the tasks of a project
func (r *TaskRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	if !validID(projectID) {
		return 0, nil
	}
	var n int
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE project_id = $1`, projectID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}
