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

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opentrusty/tenantdesk/internal/project"
)

const defaultProjectPageSize = 20

// CreateProjectRequest represents project creation data
type CreateProjectRequest struct {
	Name        string `json:"name" example:"Website relaunch"`
	Description string `json:"description" example:"Q3 marketing site"`
	Status      string `json:"status,omitempty" example:"ACTIVE"`
	// TenantID is only honored for platform administrators.
	TenantID string `json:"tenantId,omitempty"`
}

// ProjectListResponse is one page of projects.
type ProjectListResponse struct {
	Projects   []*ProjectResponse `json:"projects"`
	Pagination Pagination         `json:"pagination"`
}

// CreateProject creates a project
// @Summary Create Project
// @Description Create a project in the caller's tenant, subject to the plan's project limit
// @Tags Project
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateProjectRequest true "Project Data"
// @Success 201 {object} Envelope{data=ProjectResponse}
// @Failure 400 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.projectService.CreateProject(r.Context(), IdentityFromContext(r.Context()), project.CreateProjectRequest{
		TenantID:    req.TenantID,
		Name:        req.Name,
		Description: req.Description,
		Status:      project.Status(req.Status),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, "Project created successfully", newProjectResponse(d))
}

// ListProjects lists projects
// @Summary List Projects
// @Tags Project
// @Produce json
// @Security BearerAuth
// @Param tenantId query string false "Tenant ID (platform administrators)"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} Envelope{data=ProjectListResponse}
// @Failure 403 {object} Envelope
// @Router /projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r, defaultProjectPageSize)

	list, total, err := h.projectService.ListProjects(r.Context(), IdentityFromContext(r.Context()), project.ProjectFilter{
		TenantID: r.URL.Query().Get("tenantId"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]*ProjectResponse, 0, len(list))
	for _, d := range list {
		out = append(out, newProjectResponse(d))
	}
	respondOK(w, http.StatusOK, "", ProjectListResponse{
		Projects:   out,
		Pagination: newPagination(page, limit, total),
	})
}

// GetProject returns a project with its task count
// @Summary Get Project
// @Tags Project
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Success 200 {object} Envelope{data=ProjectResponse}
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /projects/{projectID} [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	d, err := h.projectService.GetProject(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "projectID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", newProjectResponse(d))
}

// UpdateProjectRequest carries optional project changes.
type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" example:"COMPLETED"`
}

// UpdateProject changes a project
// @Summary Update Project
// @Tags Project
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Param request body UpdateProjectRequest true "Changes"
// @Success 200 {object} Envelope{data=ProjectResponse}
// @Failure 400 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /projects/{projectID} [put]
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req UpdateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	upd := project.UpdateProjectRequest{Name: req.Name, Description: req.Description}
	if req.Status != nil {
		s := project.Status(*req.Status)
		upd.Status = &s
	}

	d, err := h.projectService.UpdateProject(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "projectID"), upd)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "Project updated successfully", newProjectResponse(d))
}

// DeleteProject removes a project and its tasks
// @Summary Delete Project
// @Tags Project
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Success 200 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /projects/{projectID} [delete]
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.projectService.DeleteProject(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "projectID")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "Project deleted successfully", nil)
}

// CreateTaskRequest represents task creation data
type CreateTaskRequest struct {
	Title       string `json:"title" example:"Draft copy"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty" example:"TODO"`
	Priority    string `json:"priority,omitempty" example:"HIGH"`
	AssignedTo  string `json:"assignedTo,omitempty"`
	DueDate     string `json:"dueDate,omitempty" example:"2026-12-31"`
}

// TaskListResponse is one page of tasks.
type TaskListResponse struct {
	Tasks      []*TaskResponse `json:"tasks"`
	Pagination Pagination      `json:"pagination"`
}

// CreateTask adds a task to a project
// @Summary Create Task
// @Tags Task
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Param request body CreateTaskRequest true "Task Data"
// @Success 201 {object} Envelope{data=TaskResponse}
// @Failure 400 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /projects/{projectID}/tasks [post]
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "dueDate must be formatted as YYYY-MM-DD")
		return
	}

	t, err := h.projectService.CreateTask(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "projectID"), project.CreateTaskRequest{
		Title:       req.Title,
		Description: req.Description,
		Status:      project.TaskStatus(req.Status),
		Priority:    project.Priority(req.Priority),
		AssignedTo:  req.AssignedTo,
		DueDate:     due,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, "Task created successfully", newTaskResponse(t))
}

// ListProjectTasks lists the tasks of one project
// @Summary List Project Tasks
// @Tags Task
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Param status query string false "Task status"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} Envelope{data=TaskListResponse}
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /projects/{projectID}/tasks [get]
func (h *Handler) ListProjectTasks(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r, defaultProjectPageSize)

	tasks, total, err := h.projectService.ListProjectTasks(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "projectID"), project.TaskFilter{
		Status: project.TaskStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", TaskListResponse{
		Tasks:      newTaskList(tasks),
		Pagination: newPagination(page, limit, total),
	})
}

// ListTasks lists tasks across projects
// @Summary List Tasks
// @Tags Task
// @Produce json
// @Security BearerAuth
// @Param tenantId query string false "Tenant ID (platform administrators)"
// @Param projectId query string false "Project ID"
// @Param status query string false "Task status"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} Envelope{data=TaskListResponse}
// @Failure 403 {object} Envelope
// @Router /tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r, defaultProjectPageSize)
	q := r.URL.Query()

	tasks, total, err := h.projectService.ListTasks(r.Context(), IdentityFromContext(r.Context()), project.TaskFilter{
		TenantID:  q.Get("tenantId"),
		ProjectID: q.Get("projectId"),
		Status:    project.TaskStatus(q.Get("status")),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", TaskListResponse{
		Tasks:      newTaskList(tasks),
		Pagination: newPagination(page, limit, total),
	})
}

// GetTask returns one task
// @Summary Get Task
// @Tags Task
// @Produce json
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Success 200 {object} Envelope{data=TaskResponse}
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /tasks/{taskID} [get]
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.projectService.GetTask(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "taskID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", newTaskResponse(t))
}

// UpdateTaskRequest carries optional task changes. An empty assignedTo
// unassigns the task and an empty dueDate clears it.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" example:"IN_PROGRESS"`
	Priority    *string `json:"priority,omitempty" example:"LOW"`
	AssignedTo  *string `json:"assignedTo,omitempty"`
	DueDate     *string `json:"dueDate,omitempty" example:"2026-12-31"`
}

// UpdateTask changes a task
// @Summary Update Task
// @Tags Task
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Param request body UpdateTaskRequest true "Changes"
// @Success 200 {object} Envelope{data=TaskResponse}
// @Failure 400 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /tasks/{taskID} [put]
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	upd := project.UpdateTaskRequest{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
	}
	if req.Status != nil {
		s := project.TaskStatus(*req.Status)
		upd.Status = &s
	}
	if req.Priority != nil {
		p := project.Priority(*req.Priority)
		upd.Priority = &p
	}
	if req.DueDate != nil {
		due, err := parseDate(*req.DueDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "dueDate must be formatted as YYYY-MM-DD")
			return
		}
		upd.DueDate = due
		upd.ClearDueDate = due == nil
	}

	t, err := h.projectService.UpdateTask(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "taskID"), upd)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "Task updated successfully", newTaskResponse(t))
}

// UpdateTaskStatusRequest moves a task to a new status.
type UpdateTaskStatusRequest struct {
	Status string `json:"status" example:"COMPLETED"`
}

// UpdateTaskStatus changes only the status of a task
// @Summary Update Task Status
// @Tags Task
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Param request body UpdateTaskStatusRequest true "New status"
// @Success 200 {object} Envelope{data=TaskResponse}
// @Failure 400 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /tasks/{taskID}/status [patch]
func (h *Handler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.projectService.UpdateTaskStatus(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "taskID"), project.TaskStatus(req.Status))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "Task status updated successfully", newTaskResponse(t))
}

// DeleteTask removes a task
// @Summary Delete Task
// @Tags Task
// @Produce json
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Success 200 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /tasks/{taskID} [delete]
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.projectService.DeleteTask(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "taskID")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "Task deleted successfully", nil)
}
