package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"taskmaster/backend/middleware"
	"taskmaster/backend/models"
	"taskmaster/backend/repositories"
	"taskmaster/backend/services"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// memTaskRepo mirrors the Mongo repository's visible behavior for handler
// tests: owner scoping, archived exclusion, substring search, createdAt
// ordering and skip/limit pagination.
type memTaskRepo struct {
	tasks []models.Task
}

func (m *memTaskRepo) Insert(ctx context.Context, task *models.Task) (*models.Task, error) {
	task.ID = primitive.NewObjectID()
	m.tasks = append(m.tasks, *task)
	return task, nil
}

func matchesSearch(task models.Task, search string) bool {
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(task.Title), needle) ||
		strings.Contains(strings.ToLower(task.Description), needle)
}

func (m *memTaskRepo) FindByOwner(ctx context.Context, owner primitive.ObjectID, q repositories.ListQuery) ([]models.Task, int64, error) {
	var matched []models.Task
	for _, task := range m.tasks {
		if task.User != owner || task.IsArchived {
			continue
		}
		if q.Status != "" && string(task.Status) != q.Status {
			continue
		}
		if q.Priority != "" && string(task.Priority) != q.Priority {
			continue
		}
		if q.Search != "" && !matchesSearch(task, q.Search) {
			continue
		}
		matched = append(matched, task)
	}

	asc := q.SortOrder == "asc"
	sort.SliceStable(matched, func(i, j int) bool {
		if asc {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (q.Page - 1) * q.Limit
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *memTaskRepo) UpdateFields(ctx context.Context, owner, id primitive.ObjectID, fields bson.M) (*models.Task, error) {
	for i := range m.tasks {
		if m.tasks[i].ID != id || m.tasks[i].User != owner {
			continue
		}
		task := &m.tasks[i]
		for key, value := range fields {
			switch key {
			case "title":
				task.Title = value.(string)
			case "description":
				task.Description = value.(string)
			case "status":
				task.Status = models.TaskStatus(value.(string))
			case "priority":
				task.Priority = models.TaskPriority(value.(string))
			case "dueDate":
				due := value.(time.Time)
				task.DueDate = &due
			case "category":
				task.Category = value.(string)
			case "tags":
				task.Tags = value.([]string)
			case "estimatedTime":
				estimate := value.(int)
				task.EstimatedTime = &estimate
			case "isArchived":
				task.IsArchived = value.(bool)
			case "updatedAt":
				task.UpdatedAt = value.(time.Time)
			}
		}
		copied := *task
		return &copied, nil
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memTaskRepo) Delete(ctx context.Context, owner, id primitive.ObjectID) (*models.Task, error) {
	for i := range m.tasks {
		if m.tasks[i].ID == id && m.tasks[i].User == owner {
			removed := m.tasks[i]
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return &removed, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func newTaskTestHandler() (*TaskHandler, *memTaskRepo) {
	repo := &memTaskRepo{}
	return NewTaskHandler(services.NewTaskService(repo)), repo
}

func authedRequest(method, target string, owner primitive.ObjectID, payload interface{}) *http.Request {
	var body *bytes.Buffer
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewBuffer(raw)
	} else {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(middleware.WithUserID(req.Context(), owner))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestCreateTaskHandler(t *testing.T) {
	handler, _ := newTaskTestHandler()
	owner := primitive.NewObjectID()

	rec := httptest.NewRecorder()
	handler.CreateTask(rec, authedRequest(http.MethodPost, "/api/tasks", owner, map[string]interface{}{
		"title": "Pay bills",
	}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool        `json:"success"`
		Task    models.Task `json:"task"`
	}
	decodeBody(t, rec, &resp)
	if !resp.Success {
		t.Fatal("expected success envelope")
	}
	if resp.Task.Status != models.StatusToDo || resp.Task.Priority != models.PriorityMedium {
		t.Fatalf("expected defaults in response, got %q/%q", resp.Task.Status, resp.Task.Priority)
	}
	if resp.Task.User != owner {
		t.Fatal("owner must come from the authenticated identity")
	}
}

func TestCreateTaskHandlerRejectsInvalidStatus(t *testing.T) {
	handler, repo := newTaskTestHandler()

	rec := httptest.NewRecorder()
	handler.CreateTask(rec, authedRequest(http.MethodPost, "/api/tasks", primitive.NewObjectID(), map[string]interface{}{
		"title":  "x",
		"status": "Done",
	}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(repo.tasks) != 0 {
		t.Fatal("invalid task must not be stored")
	}

	var resp struct {
		Message string `json:"message"`
	}
	decodeBody(t, rec, &resp)
	if !strings.Contains(resp.Message, "Invalid status") {
		t.Fatalf("message = %q, want invalid-status text", resp.Message)
	}
}

func TestCreateTaskHandlerIgnoresClientOwnerField(t *testing.T) {
	handler, _ := newTaskTestHandler()
	owner := primitive.NewObjectID()

	rec := httptest.NewRecorder()
	handler.CreateTask(rec, authedRequest(http.MethodPost, "/api/tasks", owner, map[string]interface{}{
		"title": "sneaky",
		"user":  primitive.NewObjectID().Hex(),
	}))

	var resp struct {
		Task models.Task `json:"task"`
	}
	decodeBody(t, rec, &resp)
	if resp.Task.User != owner {
		t.Fatal("client-supplied owner must be ignored")
	}
}

func TestGetAllTasksSearch(t *testing.T) {
	handler, _ := newTaskTestHandler()
	owner := primitive.NewObjectID()

	for _, title := range []string{"Pay bills", "Buy groceries"} {
		rec := httptest.NewRecorder()
		handler.CreateTask(rec, authedRequest(http.MethodPost, "/api/tasks", owner, map[string]interface{}{"title": title}))
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed create failed: %s", rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	handler.GetAllTasks(rec, authedRequest(http.MethodGet, "/api/tasks?search=bills", owner, nil))

	var resp struct {
		Tasks      []models.Task `json:"tasks"`
		TotalTasks int64         `json:"totalTasks"`
	}
	decodeBody(t, rec, &resp)
	if resp.TotalTasks != 1 || len(resp.Tasks) != 1 || resp.Tasks[0].Title != "Pay bills" {
		t.Fatalf("search=bills returned %+v", resp)
	}
}

func TestGetAllTasksPagination(t *testing.T) {
	handler, _ := newTaskTestHandler()
	owner := primitive.NewObjectID()

	for i := 0; i < 12; i++ {
		rec := httptest.NewRecorder()
		handler.CreateTask(rec, authedRequest(http.MethodPost, "/api/tasks", owner, map[string]interface{}{
			"title": fmt.Sprintf("task %d", i),
		}))
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed create failed: %s", rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	handler.GetAllTasks(rec, authedRequest(http.MethodGet, "/api/tasks?page=1&limit=5", owner, nil))

	var resp struct {
		Tasks       []models.Task `json:"tasks"`
		CurrentPage int64         `json:"currentPage"`
		TotalPages  int64         `json:"totalPages"`
		TotalTasks  int64         `json:"totalTasks"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Tasks) != 5 {
		t.Fatalf("page 1 size = %d, want 5", len(resp.Tasks))
	}
	if resp.TotalPages != 3 || resp.TotalTasks != 12 || resp.CurrentPage != 1 {
		t.Fatalf("pagination = %+v, want 12 tasks over 3 pages", resp)
	}
}

func TestGetAllTasksExcludesArchivedAndForeign(t *testing.T) {
	handler, repo := newTaskTestHandler()
	owner := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	now := time.Now()
	repo.tasks = []models.Task{
		{ID: primitive.NewObjectID(), Title: "mine", User: owner, CreatedAt: now},
		{ID: primitive.NewObjectID(), Title: "mine archived", User: owner, IsArchived: true, CreatedAt: now},
		{ID: primitive.NewObjectID(), Title: "theirs", User: stranger, CreatedAt: now},
	}

	rec := httptest.NewRecorder()
	handler.GetAllTasks(rec, authedRequest(http.MethodGet, "/api/tasks", owner, nil))

	var resp struct {
		Tasks []models.Task `json:"tasks"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Tasks) != 1 || resp.Tasks[0].Title != "mine" {
		t.Fatalf("listing = %+v, want only the owner's live task", resp.Tasks)
	}
}

func TestUpdateTaskHandlerOwnership(t *testing.T) {
	handler, repo := newTaskTestHandler()
	owner := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	task := models.Task{ID: primitive.NewObjectID(), Title: "mine", User: owner, CreatedAt: time.Now()}
	repo.tasks = []models.Task{task}

	req := authedRequest(http.MethodPut, "/api/tasks/"+task.ID.Hex(), stranger, map[string]interface{}{"title": "stolen"})
	req = mux.SetURLVars(req, map[string]string{"id": task.ID.Hex()})
	rec := httptest.NewRecorder()
	handler.UpdateTask(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for foreign task", rec.Code)
	}
	if repo.tasks[0].Title != "mine" {
		t.Fatal("foreign update must not modify the record")
	}
}

func TestUpdateTaskHandlerInvalidID(t *testing.T) {
	handler, _ := newTaskTestHandler()

	req := authedRequest(http.MethodPut, "/api/tasks/nonsense", primitive.NewObjectID(), map[string]interface{}{"title": "x"})
	req = mux.SetURLVars(req, map[string]string{"id": "nonsense"})
	rec := httptest.NewRecorder()
	handler.UpdateTask(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for malformed id", rec.Code)
	}
}

func TestUpdateTaskStatusHandlerIdempotent(t *testing.T) {
	handler, repo := newTaskTestHandler()
	owner := primitive.NewObjectID()

	task := models.Task{ID: primitive.NewObjectID(), Title: "t", Status: models.StatusToDo, User: owner, CreatedAt: time.Now()}
	repo.tasks = []models.Task{task}

	for i := 0; i < 2; i++ {
		req := authedRequest(http.MethodPatch, "/api/tasks/"+task.ID.Hex()+"/status", owner, map[string]interface{}{"status": "Completed"})
		req = mux.SetURLVars(req, map[string]string{"id": task.ID.Hex()})
		rec := httptest.NewRecorder()
		handler.UpdateTaskStatus(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: status = %d, want 200: %s", i+1, rec.Code, rec.Body.String())
		}
	}
	if repo.tasks[0].Status != models.StatusCompleted {
		t.Fatalf("stored status = %q, want Completed", repo.tasks[0].Status)
	}
}

func TestDeleteTaskHandlerTwice(t *testing.T) {
	handler, repo := newTaskTestHandler()
	owner := primitive.NewObjectID()

	task := models.Task{ID: primitive.NewObjectID(), Title: "Pay bills", User: owner, CreatedAt: time.Now()}
	repo.tasks = []models.Task{task}

	del := func() *httptest.ResponseRecorder {
		req := authedRequest(http.MethodDelete, "/api/tasks/"+task.ID.Hex(), owner, nil)
		req = mux.SetURLVars(req, map[string]string{"id": task.ID.Hex()})
		rec := httptest.NewRecorder()
		handler.DeleteTask(rec, req)
		return rec
	}

	first := del()
	if first.Code != http.StatusOK {
		t.Fatalf("first delete status = %d, want 200", first.Code)
	}
	var resp struct {
		DeletedTask struct {
			Title string `json:"title"`
		} `json:"deletedTask"`
	}
	decodeBody(t, first, &resp)
	if resp.DeletedTask.Title != "Pay bills" {
		t.Fatalf("deletedTask = %+v, want echoed title", resp.DeletedTask)
	}

	second := del()
	if second.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", second.Code)
	}
}
