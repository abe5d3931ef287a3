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
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opentrusty/tenantdesk/internal/audit"
	"github.com/opentrusty/tenantdesk/internal/authz"
	"github.com/opentrusty/tenantdesk/internal/id"
	"github.com/opentrusty/tenantdesk/internal/identity"
	"github.com/opentrusty/tenantdesk/internal/observability/logger"
	"github.com/opentrusty/tenantdesk/internal/tenant"
)

var tracer = otel.Tracer("github.com/opentrusty/tenantdesk/internal/project")

// CreateProjectRequest creates a project. TenantID is honored only for
// super administrators; everyone else creates in their own tenant.
type CreateProjectRequest struct {
	TenantID    string
	Name        string
	Description string
	Status      Status
}

// UpdateProjectRequest carries optional project changes.
type UpdateProjectRequest struct {
	Name        *string
	Description *string
	Status      *Status
}

// Details is a project with its task count.
type Details struct {
	Project   *Project
	TaskCount int
}

// CreateTaskRequest creates a task in a project. Status defaults to TODO
// and Priority to MEDIUM.
type CreateTaskRequest struct {
	Title       string
	Description string
	Status      TaskStatus
	Priority    Priority
	AssignedTo  string
	DueDate     *time.Time
}

// UpdateTaskRequest carries optional task changes. An empty AssignedTo
// clears the assignee; ClearDueDate removes the due date.
type UpdateTaskRequest struct {
	Title        *string
	Description  *string
	Status       *TaskStatus
	Priority     *Priority
	AssignedTo   *string
	DueDate      *time.Time
	ClearDueDate bool
}

// Service provides project and task business logic
type Service struct {
	projects    ProjectRepository
	tasks       TaskRepository
	accounts    identity.AccountRepository
	tenants     tenant.Repository
	usage       tenant.UsageCounter
	gate        *tenant.Gate
	authz       *authz.Service
	auditLogger audit.Logger
}

// NewService creates a new project service
func NewService(
	projects ProjectRepository,
	tasks TaskRepository,
	accounts identity.AccountRepository,
	tenants tenant.Repository,
	usage tenant.UsageCounter,
	authzService *authz.Service,
	auditLogger audit.Logger,
) *Service {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &Service{
		projects:    projects,
		tasks:       tasks,
		accounts:    accounts,
		tenants:     tenants,
		usage:       usage,
		gate:        tenant.NewGate(tenants),
		authz:       authzService,
		auditLogger: auditLogger,
	}
}

// CreateProject creates a project, subject to the tenant's project limit.
func (s *Service) CreateProject(ctx context.Context, actor authz.Identity, req CreateProjectRequest) (*Details, error) {
	ctx, span := tracer.Start(ctx, "project.CreateProject")
	defer span.End()

	tenantID := actor.TenantID
	if actor.IsSuperAdmin() && req.TenantID != "" {
		tenantID = req.TenantID
	}
	if !actor.Authenticated() {
		return nil, authz.ErrUnauthenticated
	}
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	if err := s.authz.Authorize(ctx, actor, authz.OpProjectCreate, authz.Target{TenantID: tenantID}); err != nil {
		return nil, err
	}
	if err := s.gate.Check(ctx, actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	status := req.Status
	if status == "" {
		status = StatusActive
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	t, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	count, err := s.usage.CountProjects(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}
	if err := s.authz.CheckQuota(ctx, actor, tenantID, "project", count, t.MaxProjects); err != nil {
		return nil, err
	}

	now := time.Now()
	p := &Project{
		ID:          id.NewUUIDv7(),
		TenantID:    tenantID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Status:      status,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeProjectCreated,
		TenantID: tenantID,
		ActorID:  actor.UserID,
		Resource: "project:" + p.ID,
	})
	slog.InfoContext(ctx, "project created", logger.TenantID(tenantID), logger.ProjectID(p.ID))
	return &Details{Project: p}, nil
}

// ListProjects lists projects. Super administrators see every tenant
// unless filter.TenantID is set; tenant admins see their own tenant only.
func (s *Service) ListProjects(ctx context.Context, actor authz.Identity, filter ProjectFilter) ([]*Details, int, error) {
	if !actor.IsSuperAdmin() {
		filter.TenantID = actor.TenantID
	}
	target := authz.Target{TenantID: filter.TenantID}
	if err := s.authz.Authorize(ctx, actor, authz.OpProjectList, target); err != nil {
		return nil, 0, err
	}
	if err := s.gate.Check(ctx, actor); err != nil {
		return nil, 0, err
	}

	filter.Limit, filter.Offset = tenant.ClampPage(filter.Limit, filter.Offset)
	projects, total, err := s.projects.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	out := make([]*Details, 0, len(projects))
	for _, p := range projects {
		d, err := s.details(ctx, p)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, nil
}

// GetProject returns one project with its task count.
func (s *Service) GetProject(ctx context.Context, actor authz.Identity, projectID string) (*Details, error) {
	p, err := s.loadProject(ctx, actor, authz.OpProjectRead, projectID)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, p)
}

// UpdateProject applies req to a project.
func (s *Service) UpdateProject(ctx context.Context, actor authz.Identity, projectID string, req UpdateProjectRequest) (*Details, error) {
	p, err := s.loadProject(ctx, actor, authz.OpProjectUpdate, projectID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be blank", ErrInvalidInput)
		}
		p.Name = name
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *req.Status)
		}
		p.Status = *req.Status
	}
	p.UpdatedAt = time.Now()

	if err := s.projects.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return s.details(ctx, p)
}

// DeleteProject removes a project and its tasks.
func (s *Service) DeleteProject(ctx context.Context, actor authz.Identity, projectID string) error {
	p, err := s.loadProject(ctx, actor, authz.OpProjectDelete, projectID)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeProjectDeleted,
		TenantID: p.TenantID,
		ActorID:  actor.UserID,
		Resource: "project:" + p.ID,
	})
	slog.InfoContext(ctx, "project deleted", logger.TenantID(p.TenantID), logger.ProjectID(p.ID))
	return nil
}

// CreateTask adds a task to a project. The task inherits the project's
// tenant, and an assignee must belong to that tenant.
func (s *Service) CreateTask(ctx context.Context, actor authz.Identity, projectID string, req CreateTaskRequest) (*Task, error) {
	ctx, span := tracer.Start(ctx, "project.CreateTask", trace.WithAttributes(attribute.String("project.id", projectID)))
	defer span.End()

	p, err := s.loadProject(ctx, actor, authz.OpTaskCreate, projectID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	status := req.Status
	if status == "" {
		status = TaskTodo
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown task status %q", ErrInvalidInput, status)
	}
	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, priority)
	}
	if err := s.checkAssignee(ctx, p.TenantID, req.AssignedTo); err != nil {
		return nil, err
	}

	now := time.Now()
	t := &Task{
		ID:          id.NewUUIDv7(),
		TenantID:    p.TenantID,
		ProjectID:   p.ID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      status,
		Priority:    priority,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTaskCreated,
		TenantID: t.TenantID,
		ActorID:  actor.UserID,
		Resource: "task:" + t.ID,
		Metadata: map[string]any{"project_id": p.ID},
	})
	slog.InfoContext(ctx, "task created", logger.ProjectID(p.ID), logger.TaskID(t.ID))
	return t, nil
}

// ListProjectTasks lists the tasks of one project.
func (s *Service) ListProjectTasks(ctx context.Context, actor authz.Identity, projectID string, filter TaskFilter) ([]*Task, int, error) {
	p, err := s.loadProject(ctx, actor, authz.OpTaskList, projectID)
	if err != nil {
		return nil, 0, err
	}

	filter.TenantID = p.TenantID
	filter.ProjectID = p.ID
	return s.listTasks(ctx, filter)
}

// ListTasks lists tasks across tenants, filtered by tenant, project and
// status.
func (s *Service) ListTasks(ctx context.Context, actor authz.Identity, filter TaskFilter) ([]*Task, int, error) {
	if err := s.authz.Authorize(ctx, actor, authz.OpTaskListAll, authz.Target{TenantID: filter.TenantID}); err != nil {
		return nil, 0, err
	}
	return s.listTasks(ctx, filter)
}

func (s *Service) listTasks(ctx context.Context, filter TaskFilter) ([]*Task, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown task status %q", ErrInvalidInput, filter.Status)
	}
	filter.Limit, filter.Offset = tenant.ClampPage(filter.Limit, filter.Offset)
	tasks, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// GetTask returns one task.
func (s *Service) GetTask(ctx context.Context, actor authz.Identity, taskID string) (*Task, error) {
	return s.loadTask(ctx, actor, authz.OpTaskRead, taskID)
}

// UpdateTask applies req to a task.
func (s *Service) UpdateTask(ctx context.Context, actor authz.Identity, taskID string, req UpdateTaskRequest) (*Task, error) {
	t, err := s.loadTask(ctx, actor, authz.OpTaskUpdate, taskID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be blank", ErrInvalidInput)
		}
		t.Title = title
	}
	if req.Description != nil {
		t.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown task status %q", ErrInvalidInput, *req.Status)
		}
		t.Status = *req.Status
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *req.Priority)
		}
		t.Priority = *req.Priority
	}
	if req.AssignedTo != nil {
		if err := s.checkAssignee(ctx, t.TenantID, *req.AssignedTo); err != nil {
			return nil, err
		}
		t.AssignedTo = *req.AssignedTo
	}
	if req.ClearDueDate {
		t.DueDate = nil
	} else if req.DueDate != nil {
		t.DueDate = req.DueDate
	}

	return s.saveTask(ctx, t)
}

// UpdateTaskStatus changes only the status of a task.
func (s *Service) UpdateTaskStatus(ctx context.Context, actor authz.Identity, taskID string, status TaskStatus) (*Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown task status %q", ErrInvalidInput, status)
	}
	t, err := s.loadTask(ctx, actor, authz.OpTaskUpdateStatus, taskID)
	if err != nil {
		return nil, err
	}
	t.Status = status
	return s.saveTask(ctx, t)
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, actor authz.Identity, taskID string) error {
	t, err := s.loadTask(ctx, actor, authz.OpTaskDelete, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, t.ID); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTaskDeleted,
		TenantID: t.TenantID,
		ActorID:  actor.UserID,
		Resource: "task:" + t.ID,
	})
	slog.InfoContext(ctx, "task deleted", logger.ProjectID(t.ProjectID), logger.TaskID(t.ID))
	return nil
}

func (s *Service) saveTask(ctx context.Context, t *Task) (*Task, error) {
	t.UpdatedAt = time.Now()
	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return t, nil
}

// loadProject fetches a project and authorizes op against its tenant.
func (s *Service) loadProject(ctx context.Context, actor authz.Identity, op authz.Operation, projectID string) (*Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actor, op, p.Target()); err != nil {
		return nil, err
	}
	if err := s.gate.Check(ctx, actor); err != nil {
		return nil, err
	}
	return p, nil
}

// loadTask fetches a task and authorizes op against its tenant.
func (s *Service) loadTask(ctx context.Context, actor authz.Identity, op authz.Operation, taskID string) (*Task, error) {
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actor, op, t.Target()); err != nil {
		return nil, err
	}
	if err := s.gate.Check(ctx, actor); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) checkAssignee(ctx context.Context, tenantID, accountID string) error {
	if accountID == "" {
		return nil
	}
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, identity.ErrAccountNotFound) {
			return ErrInvalidAssignee
		}
		return fmt.Errorf("failed to load assignee: %w", err)
	}
	if a.TenantID != tenantID {
		return ErrInvalidAssignee
	}
	return nil
}

func (s *Service) details(ctx context.Context, p *Project) (*Details, error) {
	n, err := s.tasks.CountByProject(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	return &Details{Project: p, TaskCount: n}, nil
}
