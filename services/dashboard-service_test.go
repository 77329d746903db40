package services

import (
	"context"
	"testing"
	"time"

	"taskmaster/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeDashboardRepo struct {
	all    []models.Task
	recent []models.Task
	due    []models.Task
}

func (f *fakeDashboardRepo) FindAllByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Task, error) {
	return f.all, nil
}

func (f *fakeDashboardRepo) FindRecent(ctx context.Context, owner primitive.ObjectID, limit int64) ([]models.Task, error) {
	if int64(len(f.recent)) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeDashboardRepo) FindDueBetween(ctx context.Context, owner primitive.ObjectID, from, to time.Time) ([]models.Task, error) {
	return f.due, nil
}

func taskWith(status models.TaskStatus, priority models.TaskPriority, due *time.Time) models.Task {
	return models.Task{
		ID:       primitive.NewObjectID(),
		Title:    "t",
		Status:   status,
		Priority: priority,
		DueDate:  due,
	}
}

func TestCompletionRate(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{completed: 0, total: 0, want: 0},
		{completed: 1, total: 4, want: 25},
		{completed: 2, total: 3, want: 67},
		{completed: 3, total: 3, want: 100},
	}
	for _, tt := range tests {
		if got := CompletionRate(tt.completed, tt.total); got != tt.want {
			t.Fatalf("CompletionRate(%d, %d) = %d, want %d", tt.completed, tt.total, got, tt.want)
		}
	}
}

func TestComputeOverviewOverdue(t *testing.T) {
	now := time.Now()
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	tasks := []models.Task{
		taskWith(models.StatusToDo, models.PriorityMedium, &yesterday),
		taskWith(models.StatusInProgress, models.PriorityHigh, &tomorrow),
		taskWith(models.StatusCompleted, models.PriorityLow, &yesterday),
		taskWith(models.StatusToDo, models.PriorityLow, nil),
	}

	stats := ComputeOverview(tasks, now)
	if stats.TotalTasks != 4 {
		t.Fatalf("TotalTasks = %d, want 4", stats.TotalTasks)
	}
	if stats.CompletedTasks != 1 {
		t.Fatalf("CompletedTasks = %d, want 1", stats.CompletedTasks)
	}
	if stats.OverdueTasks != 1 {
		t.Fatalf("OverdueTasks = %d, want 1: completed and undated tasks never count", stats.OverdueTasks)
	}
	if stats.CompletionRate != 25 {
		t.Fatalf("CompletionRate = %d, want 25", stats.CompletionRate)
	}
}

func TestComputeOverviewOverdueClearsOnCompletion(t *testing.T) {
	now := time.Now()
	yesterday := now.Add(-24 * time.Hour)

	task := taskWith(models.StatusToDo, models.PriorityMedium, &yesterday)
	if got := ComputeOverview([]models.Task{task}, now).OverdueTasks; got != 1 {
		t.Fatalf("OverdueTasks = %d, want 1 before completion", got)
	}

	task.Status = models.StatusCompleted
	if got := ComputeOverview([]models.Task{task}, now).OverdueTasks; got != 0 {
		t.Fatalf("OverdueTasks = %d, want 0 after completion", got)
	}
}

func TestComputeOverviewHighPriorityCountsOpenTasksOnly(t *testing.T) {
	tasks := []models.Task{
		taskWith(models.StatusToDo, models.PriorityHigh, nil),
		taskWith(models.StatusInProgress, models.PriorityHigh, nil),
		taskWith(models.StatusCompleted, models.PriorityHigh, nil),
	}
	if got := ComputeOverview(tasks, time.Now()).HighPriorityTasks; got != 2 {
		t.Fatalf("HighPriorityTasks = %d, want 2", got)
	}
}

func TestComputeStatusBucketsNormalizesLegacyValues(t *testing.T) {
	tasks := []models.Task{
		{Status: "To Do"},
		{Status: "pending"},
		{Status: "in-progress"},
		{Status: "IN PROGRESS"},
		{Status: "done"},
		{Status: "Completed"},
		{Status: "garbage"},
	}

	buckets := ComputeStatusBuckets(tasks)
	if buckets.ToDo != 3 {
		t.Fatalf("todo bucket = %d, want 3 (canonical, legacy, unrecognized)", buckets.ToDo)
	}
	if buckets.InProgress != 2 {
		t.Fatalf("in-progress bucket = %d, want 2", buckets.InProgress)
	}
	if buckets.Completed != 2 {
		t.Fatalf("completed bucket = %d, want 2", buckets.Completed)
	}
}

func TestComputePriorityBucketsOnePerLevel(t *testing.T) {
	tasks := []models.Task{
		{Priority: models.PriorityLow},
		{Priority: models.PriorityMedium},
		{Priority: models.PriorityHigh},
	}

	buckets := ComputePriorityBuckets(tasks)
	if buckets.Low != 1 || buckets.Medium != 1 || buckets.High != 1 {
		t.Fatalf("buckets = %+v, want one per level", buckets)
	}
}

func TestComputePriorityBucketsUnrecognizedDefaultsToMedium(t *testing.T) {
	buckets := ComputePriorityBuckets([]models.Task{{Priority: "critical"}, {Priority: "LOW"}})
	if buckets.Medium != 1 || buckets.Low != 1 {
		t.Fatalf("buckets = %+v, want unrecognized in medium and case-variant in low", buckets)
	}
}

func TestDayWindow(t *testing.T) {
	at := time.Date(2026, 9, 1, 15, 30, 45, 0, time.Local)
	start, end := DayWindow(at)

	if !start.Equal(time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local)) {
		t.Fatalf("start = %v, want local midnight", start)
	}
	if !end.After(at) || !end.Before(start.Add(24*time.Hour)) {
		t.Fatalf("end = %v, want just before next midnight", end)
	}
}

func TestSortTodayTasksPriorityThenCreation(t *testing.T) {
	base := time.Now()
	tasks := []models.Task{
		{Title: "old low", Priority: models.PriorityLow, CreatedAt: base},
		{Title: "new high", Priority: models.PriorityHigh, CreatedAt: base.Add(2 * time.Hour)},
		{Title: "old high", Priority: models.PriorityHigh, CreatedAt: base.Add(time.Hour)},
		{Title: "medium", Priority: models.PriorityMedium, CreatedAt: base},
	}

	SortTodayTasks(tasks)

	wantOrder := []string{"old high", "new high", "medium", "old low"}
	for i, want := range wantOrder {
		if tasks[i].Title != want {
			t.Fatalf("position %d = %q, want %q", i, tasks[i].Title, want)
		}
	}
}

func TestGetTodayTasksCapAndNormalization(t *testing.T) {
	repo := &fakeDashboardRepo{}
	for i := 0; i < 15; i++ {
		repo.due = append(repo.due, models.Task{
			Title:     "due",
			Status:    "pending",
			Priority:  "high",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		})
	}
	service := NewDashboardService(repo)

	tasks, err := service.GetTodayTasks(context.Background(), primitive.NewObjectID())
	if err != nil {
		t.Fatalf("GetTodayTasks: %v", err)
	}
	if len(tasks) != 10 {
		t.Fatalf("expected page cap of 10, got %d", len(tasks))
	}
	if tasks[0].Status != models.StatusToDo || tasks[0].Priority != models.PriorityHigh {
		t.Fatalf("expected normalized enums, got %q/%q", tasks[0].Status, tasks[0].Priority)
	}
}

func TestGetStatsShapesRecentActivity(t *testing.T) {
	repo := &fakeDashboardRepo{
		all: []models.Task{
			taskWith(models.StatusCompleted, models.PriorityLow, nil),
			taskWith(models.StatusToDo, models.PriorityHigh, nil),
		},
		recent: []models.Task{
			{ID: primitive.NewObjectID(), Title: "newest", Status: "pending", Priority: "HIGH", CreatedAt: time.Now()},
		},
	}
	service := NewDashboardService(repo)

	stats, err := service.GetStats(context.Background(), primitive.NewObjectID())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}

	if stats.Overview.TotalTasks != 2 || stats.Overview.CompletedTasks != 1 {
		t.Fatalf("unexpected overview: %+v", stats.Overview)
	}
	if stats.Overview.CompletionRate != 50 {
		t.Fatalf("CompletionRate = %d, want 50", stats.Overview.CompletionRate)
	}
	if len(stats.RecentActivity) != 1 {
		t.Fatalf("expected 1 activity item, got %d", len(stats.RecentActivity))
	}
	item := stats.RecentActivity[0]
	if item.Title != "newest" || item.Status != models.StatusToDo || item.Priority != models.PriorityHigh {
		t.Fatalf("unexpected activity item: %+v", item)
	}
}
