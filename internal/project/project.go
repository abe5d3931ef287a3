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

package project

import (
	"context"
	"errors"
	"time"

	"github.com/opentrusty/tenantdesk/internal/authz"
)

// Domain errors
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrInvalidInput    = errors.New("invalid project input")
	ErrInvalidAssignee = errors.New("invalid assigned user")
	ErrTenantRequired  = errors.New("tenant id is required")
)

// Status is the lifecycle state of a project.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusArchived  Status = "ARCHIVED"
	StatusCompleted Status = "COMPLETED"
)

// Valid reports whether s is a known project status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusArchived, StatusCompleted:
		return true
	}
	return false
}

// TaskStatus is the progress state of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// Priority orders tasks.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Project groups tasks inside a tenant. TenantID never changes after
// creation.
type Project struct {
	ID          string
	TenantID    string
	Name        string
	Description string
	Status      Status
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Target returns the project as an authorization target.
func (p *Project) Target() authz.Target {
	return authz.Target{TenantID: p.TenantID}
}

// Task is a unit of work in a project. TenantID always equals the
// project's tenant.
type Task struct {
	ID          string
	TenantID    string
	ProjectID   string
	Title       string
	Description string
	Status      TaskStatus
	Priority    Priority
	AssignedTo  string
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Target returns the task as an authorization target.
func (t *Task) Target() authz.Target {
	return authz.Target{TenantID: t.TenantID}
}

// ProjectFilter narrows project listings.
type ProjectFilter struct {
	TenantID string
	Limit    int
	Offset   int
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	TenantID  string
	ProjectID string
	Status    TaskStatus
	Limit     int
	Offset    int
}

// ProjectRepository defines the interface for project persistence
type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, id string) (*Project, error)
	Update(ctx context.Context, project *Project) error
	// Delete removes the project and its tasks.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ProjectFilter) ([]*Project, int, error)
}

// TaskRepository defines the interface for task persistence
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TaskFilter) ([]*Task, int, error)
	CountByProject(ctx context.Context, projectID string) (int, error)
}
