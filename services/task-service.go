package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"taskmaster/backend/models"
	"taskmaster/backend/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	defaultPage  = 1
	defaultLimit = 50
)

// TaskRepository is the persistence surface the task service needs. The Mongo
// implementation lives in repositories; tests substitute an in-memory fake.
type TaskRepository interface {
	Insert(ctx context.Context, task *models.Task) (*models.Task, error)
	FindByOwner(ctx context.Context, owner primitive.ObjectID, q repositories.ListQuery) ([]models.Task, int64, error)
	UpdateFields(ctx context.Context, owner, id primitive.ObjectID, fields bson.M) (*models.Task, error)
	Delete(ctx context.Context, owner, id primitive.ObjectID) (*models.Task, error)
}

type TaskService struct {
	repo TaskRepository
}

func NewTaskService(repo TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

// TaskInput is the create payload. Owner is never part of it; it always comes
// from the authenticated identity.
type TaskInput struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	DueDate       *time.Time `json:"dueDate"`
	Category      string     `json:"category"`
	Tags          []string   `json:"tags"`
	EstimatedTime *int       `json:"estimatedTime"`
}

// TaskUpdate is the partial-update payload. Pointer fields distinguish "leave
// unchanged" (nil, whether the key was omitted or sent as null) from "set to
// this value". Tags uses slice nil-ness the same way.
type TaskUpdate struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Status        *string    `json:"status"`
	Priority      *string    `json:"priority"`
	DueDate       *time.Time `json:"dueDate"`
	Category      *string    `json:"category"`
	Tags          []string   `json:"tags"`
	EstimatedTime *int       `json:"estimatedTime"`
	IsArchived    *bool      `json:"isArchived"`
}

// ListResult carries the pagination metadata returned with a listing.
type ListResult struct {
	CurrentPage int64
	TotalPages  int64
	TotalTasks  int64
}

func cleanTags(tags []string) []string {
	cleaned := []string{}
	for _, tag := range tags {
		if strings.TrimSpace(tag) != "" {
			cleaned = append(cleaned, tag)
		}
	}
	return cleaned
}

// CreateTask validates the payload, applies defaults and persists the task
// with the owner fixed to the authenticated identity.
func (s *TaskService) CreateTask(ctx context.Context, owner primitive.ObjectID, input TaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if len(title) > 200 {
		return nil, ErrTitleTooLong
	}

	description := strings.TrimSpace(input.Description)
	if len(description) > 1000 {
		return nil, ErrDescriptionTooLong
	}

	status := models.StatusToDo
	if input.Status != "" {
		status = models.TaskStatus(input.Status)
		if !status.IsValid() {
			return nil, ErrInvalidStatus
		}
	}

	priority := models.PriorityMedium
	if input.Priority != "" {
		priority = models.TaskPriority(input.Priority)
		if !priority.IsValid() {
			return nil, ErrInvalidPriority
		}
	}

	if input.EstimatedTime != nil && *input.EstimatedTime < 0 {
		return nil, ErrNegativeEstimate
	}

	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = "General"
	}

	now := time.Now()
	task := &models.Task{
		Title:         title,
		Description:   description,
		Status:        status,
		Priority:      priority,
		DueDate:       input.DueDate,
		Category:      category,
		Tags:          cleanTags(input.Tags),
		EstimatedTime: input.EstimatedTime,
		IsArchived:    false,
		User:          owner,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	return s.repo.Insert(ctx, task)
}

// ListTasks returns one page of the owner's tasks. Archived tasks are always
// excluded; the filter values must be canonical enum members.
func (s *TaskService) ListTasks(ctx context.Context, owner primitive.ObjectID, q repositories.ListQuery) ([]models.Task, ListResult, error) {
	if q.Status != "" && !models.TaskStatus(q.Status).IsValid() {
		return nil, ListResult{}, ErrInvalidStatus
	}
	if q.Priority != "" && !models.TaskPriority(q.Priority).IsValid() {
		return nil, ListResult{}, ErrInvalidPriority
	}

	if q.Page < 1 {
		q.Page = defaultPage
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = "createdAt"
	}
	if q.SortOrder != "asc" {
		q.SortOrder = "desc"
	}

	tasks, total, err := s.repo.FindByOwner(ctx, owner, q)
	if err != nil {
		return nil, ListResult{}, err
	}

	result := ListResult{
		CurrentPage: q.Page,
		TotalPages:  totalPages(total, q.Limit),
		TotalTasks:  total,
	}
	return tasks, result, nil
}

func totalPages(total, limit int64) int64 {
	if limit < 1 {
		return 0
	}
	return (total + limit - 1) / limit
}

// UpdateTask applies a partial update. A task that does not exist and a task
// owned by someone else are indistinguishable to the caller.
func (s *TaskService) UpdateTask(ctx context.Context, owner, id primitive.ObjectID, update TaskUpdate) (*models.Task, error) {
	fields := bson.M{}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		if len(title) > 200 {
			return nil, ErrTitleTooLong
		}
		fields["title"] = title
	}
	if update.Description != nil {
		description := strings.TrimSpace(*update.Description)
		if len(description) > 1000 {
			return nil, ErrDescriptionTooLong
		}
		fields["description"] = description
	}
	if update.Status != nil {
		if !models.TaskStatus(*update.Status).IsValid() {
			return nil, ErrInvalidStatus
		}
		fields["status"] = *update.Status
	}
	if update.Priority != nil {
		if !models.TaskPriority(*update.Priority).IsValid() {
			return nil, ErrInvalidPriority
		}
		fields["priority"] = *update.Priority
	}
	if update.DueDate != nil {
		fields["dueDate"] = *update.DueDate
	}
	if update.Category != nil {
		fields["category"] = strings.TrimSpace(*update.Category)
	}
	if update.Tags != nil {
		fields["tags"] = cleanTags(update.Tags)
	}
	if update.EstimatedTime != nil {
		if *update.EstimatedTime < 0 {
			return nil, ErrNegativeEstimate
		}
		fields["estimatedTime"] = *update.EstimatedTime
	}
	if update.IsArchived != nil {
		fields["isArchived"] = *update.IsArchived
	}

	fields["updatedAt"] = time.Now()

	task, err := s.repo.UpdateFields(ctx, owner, id, fields)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTaskStatus is the narrow status-only form of UpdateTask.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, owner, id primitive.ObjectID, status string) (*models.Task, error) {
	if status == "" {
		return nil, ErrStatusRequired
	}
	if !models.TaskStatus(status).IsValid() {
		return nil, ErrInvalidStatus
	}

	fields := bson.M{
		"status":    status,
		"updatedAt": time.Now(),
	}

	task, err := s.repo.UpdateFields(ctx, owner, id, fields)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask hard-deletes the task and returns the removed document so the
// handler can echo its id and title.
func (s *TaskService) DeleteTask(ctx context.Context, owner, id primitive.ObjectID) (*models.Task, error) {
	task, err := s.repo.Delete(ctx, owner, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}
