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

package memory

import (
	"context"

	"github.com/opentrusty/tenantdesk/internal/project"
)

// ProjectRepository implements project.ProjectRepository
type ProjectRepository struct {
	db *DB
}

// Create stores a new project
func (r *ProjectRepository) Create(_ context.Context, p *project.Project) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cp := *p
	r.db.projects[p.ID] = &cp
	return nil
}

// GetByID retrieves a project by ID
func (r *ProjectRepository) GetByID(_ context.Context, id string) (*project.Project, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.projects[id]
	if !ok {
		return nil, project.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

// Update replaces a project record. The owning tenant is kept.
func (r *ProjectRepository) Update(_ context.Context, p *project.Project) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.projects[p.ID]
	if !ok {
		return project.ErrProjectNotFound
	}
	cp := *p
	cp.TenantID = existing.TenantID
	r.db.projects[p.ID] = &cp
	return nil
}

// Delete removes a project and its tasks
func (r *ProjectRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.projects[id]; !ok {
		return project.ErrProjectNotFound
	}
	delete(r.db.projects, id)
	for k, t := range r.db.tasks {
		if t.ProjectID == id {
			delete(r.db.tasks, k)
		}
	}
	return nil
}

// List returns projects newest first with the total number of matches
func (r *ProjectRepository) List(_ context.Context, filter project.ProjectFilter) ([]*project.Project, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var matched []*project.Project
	for _, p := range r.db.projects {
		if filter.TenantID != "" && p.TenantID != filter.TenantID {
			continue
		}
		cp := *p
		matched = append(matched, &cp)
	}
	sortByCreated(matched, func(p *project.Project) (int64, string) { return p.CreatedAt.UnixNano(), p.ID })
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

// TaskRepository implements project.TaskRepository
type TaskRepository struct {
	db *DB
}

// Create stores a new task. The project must exist.
func (r *TaskRepository) Create(_ context.Context, t *project.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.projects[t.ProjectID]; !ok {
		return project.ErrProjectNotFound
	}
	cp := copyTask(t)
	r.db.tasks[t.ID] = cp
	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(_ context.Context, id string) (*project.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, ok := r.db.tasks[id]
	if !ok {
		return nil, project.ErrTaskNotFound
	}
	return copyTask(t), nil
}

// Update replaces a task record. Tenant and project are kept.
func (r *TaskRepository) Update(_ context.Context, t *project.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.tasks[t.ID]
	if !ok {
		return project.ErrTaskNotFound
	}
	cp := copyTask(t)
	cp.TenantID = existing.TenantID
	cp.ProjectID = existing.ProjectID
	r.db.tasks[t.ID] = cp
	return nil
}

// Delete removes a task
func (r *TaskRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.tasks[id]; !ok {
		return project.ErrTaskNotFound
	}
	delete(r.db.tasks, id)
	return nil
}

// List returns tasks newest first with the total number of matches
func (r *TaskRepository) List(_ context.Context, filter project.TaskFilter) ([]*project.Task, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var matched []*project.Task
	for _, t := range r.db.tasks {
		if filter.TenantID != "" && t.TenantID != filter.TenantID {
			continue
		}
		if filter.ProjectID != "" && t.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		matched = append(matched, copyTask(t))
	}
	sortByCreated(matched, func(t *project.Task) (int64, string) { return t.CreatedAt.UnixNano(), t.ID })
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

// CountByProject counts the tasks of a project
func (r *TaskRepository) CountByProject(_ context.Context, projectID string) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	n := 0
	for _, t := range r.db.tasks {
		if t.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func copyTask(t *project.Task) *project.Task {
	cp := *t
	if t.DueDate != nil {
		d := *t.DueDate
		cp.DueDate = &d
	}
	return &cp
}
