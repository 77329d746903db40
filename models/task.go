package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusToDo       TaskStatus = "To Do"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

func ValidStatuses() []TaskStatus {
	return []TaskStatus{StatusToDo, StatusInProgress, StatusCompleted}
}

func ValidPriorities() []TaskPriority {
	return []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh}
}

func (s TaskStatus) IsValid() bool {
	return s == StatusToDo || s == StatusInProgress || s == StatusCompleted
}

func (p TaskPriority) IsValid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// NormalizeStatus maps case-variant and legacy stored values to a canonical
// status. The collection has historically accepted inconsistent casing, so
// every read path that buckets by status must go through here. Unrecognized
// values land in "To Do".
func NormalizeStatus(raw string) TaskStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "to do", "todo", "to-do", "pending":
		return StatusToDo
	case "in progress", "in-progress", "inprogress":
		return StatusInProgress
	case "completed", "complete", "done":
		return StatusCompleted
	default:
		return StatusToDo
	}
}

// NormalizePriority is the priority counterpart of NormalizeStatus.
// Unrecognized values land in "Medium".
func NormalizePriority(raw string) TaskPriority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return PriorityLow
	case "medium":
		return PriorityMedium
	case "high":
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// PriorityRank orders priorities for sorting, higher is more urgent.
func PriorityRank(raw string) int {
	switch NormalizePriority(raw) {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

type Task struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title         string             `json:"title" bson:"title"`
	Description   string             `json:"description" bson:"description"`
	Status        TaskStatus         `json:"status" bson:"status"`
	Priority      TaskPriority       `json:"priority" bson:"priority"`
	DueDate       *time.Time         `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	Category      string             `json:"category" bson:"category"`
	Tags          []string           `json:"tags" bson:"tags"`
	EstimatedTime *int               `json:"estimatedTime,omitempty" bson:"estimatedTime,omitempty"`
	IsArchived    bool               `json:"isArchived" bson:"isArchived"`
	User          primitive.ObjectID `json:"user" bson:"user"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}
