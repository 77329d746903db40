package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"taskmaster/backend/middleware"
	"taskmaster/backend/repositories"
	"taskmaster/backend/services"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

func ownerFromRequest(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	owner, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Invalid user authentication")
	}
	return owner, ok
}

func taskIDFromRequest(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid task ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	var input services.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	task, err := h.service.CreateTask(r.Context(), owner, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Task created successfully",
		"task":    task,
	})
}

func parsePositiveInt(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func (h *TaskHandler) GetAllTasks(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	params := r.URL.Query()
	query := repositories.ListQuery{
		Status:    params.Get("status"),
		Priority:  params.Get("priority"),
		Search:    params.Get("search"),
		Page:      parsePositiveInt(params.Get("page"), 1),
		Limit:     parsePositiveInt(params.Get("limit"), 50),
		SortBy:    params.Get("sortBy"),
		SortOrder: params.Get("sortOrder"),
	}

	tasks, result, err := h.service.ListTasks(r.Context(), owner, query)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"tasks":       tasks,
		"currentPage": result.CurrentPage,
		"totalPages":  result.TotalPages,
		"totalTasks":  result.TotalTasks,
	})
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	var update services.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	task, err := h.service.UpdateTask(r.Context(), owner, id, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Task updated successfully",
		"task":    task,
	})
}

func (h *TaskHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	task, err := h.service.UpdateTaskStatus(r.Context(), owner, id, body.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Task status updated successfully",
		"task":    task,
	})
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	task, err := h.service.DeleteTask(r.Context(), owner, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Task deleted successfully",
		"deletedTask": map[string]interface{}{
			"id":    task.ID,
			"title": task.Title,
		},
	})
}
