package services

import (
	"context"
	"math"
	"sort"
	"time"

	"taskmaster/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	todayTasksLimit    = 10
	recentActivitySize = 5
)

// DashboardRepository is the read surface the aggregation needs.
type DashboardRepository interface {
	FindAllByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Task, error)
	FindRecent(ctx context.Context, owner primitive.ObjectID, limit int64) ([]models.Task, error)
	FindDueBetween(ctx context.Context, owner primitive.ObjectID, from, to time.Time) ([]models.Task, error)
}

type DashboardService struct {
	repo DashboardRepository
}

func NewDashboardService(repo DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

type OverviewStats struct {
	TotalTasks        int `json:"totalTasks"`
	CompletedTasks    int `json:"completedTasks"`
	OverdueTasks      int `json:"overdueTasks"`
	HighPriorityTasks int `json:"highPriorityTasks"`
	CompletionRate    int `json:"completionRate"`
}

// StatusBuckets uses the lowercase keys the chart component binds to.
type StatusBuckets struct {
	ToDo       int `json:"todo"`
	InProgress int `json:"in-progress"`
	Completed  int `json:"completed"`
}

type PriorityBuckets struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

type ChartData struct {
	TasksByStatus   StatusBuckets   `json:"tasksByStatus"`
	TasksByPriority PriorityBuckets `json:"tasksByPriority"`
}

// ActivityItem is the trimmed task shape shown in the recent-activity feed.
type ActivityItem struct {
	ID        primitive.ObjectID  `json:"id"`
	Title     string              `json:"title"`
	Status    models.TaskStatus   `json:"status"`
	Priority  models.TaskPriority `json:"priority"`
	DueDate   *time.Time          `json:"dueDate,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

type DashboardStats struct {
	Overview       OverviewStats  `json:"overview"`
	ChartData      ChartData      `json:"chartData"`
	RecentActivity []ActivityItem `json:"recentActivity"`
}

// GetStats fetches the owner's tasks once and reduces them in process. The
// result is best-effort with respect to concurrent writes.
func (s *DashboardService) GetStats(ctx context.Context, owner primitive.ObjectID) (*DashboardStats, error) {
	tasks, err := s.repo.FindAllByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.FindRecent(ctx, owner, recentActivitySize)
	if err != nil {
		return nil, err
	}

	activity := make([]ActivityItem, 0, len(recent))
	for _, task := range recent {
		activity = append(activity, ActivityItem{
			ID:        task.ID,
			Title:     task.Title,
			Status:    models.NormalizeStatus(string(task.Status)),
			Priority:  models.NormalizePriority(string(task.Priority)),
			DueDate:   task.DueDate,
			CreatedAt: task.CreatedAt,
		})
	}

	return &DashboardStats{
		Overview: ComputeOverview(tasks, time.Now()),
		ChartData: ChartData{
			TasksByStatus:   ComputeStatusBuckets(tasks),
			TasksByPriority: ComputePriorityBuckets(tasks),
		},
		RecentActivity: activity,
	}, nil
}

// GetTodayTasks returns the tasks due within the current local day, most
// urgent first, oldest first within the same priority, capped at the
// dashboard page size.
func (s *DashboardService) GetTodayTasks(ctx context.Context, owner primitive.ObjectID) ([]models.Task, error) {
	start, end := DayWindow(time.Now())

	tasks, err := s.repo.FindDueBetween(ctx, owner, start, end)
	if err != nil {
		return nil, err
	}

	SortTodayTasks(tasks)
	if len(tasks) > todayTasksLimit {
		tasks = tasks[:todayTasksLimit]
	}

	for i := range tasks {
		tasks[i].Status = models.NormalizeStatus(string(tasks[i].Status))
		tasks[i].Priority = models.NormalizePriority(string(tasks[i].Priority))
	}
	return tasks, nil
}

// DayWindow returns the inclusive bounds of the local calendar day containing t.
func DayWindow(t time.Time) (time.Time, time.Time) {
	local := t.Local()
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	end := start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}

// ComputeOverview reduces the owner's tasks to the headline numbers. A task
// counts as overdue when it is not completed and its due date fell before the
// start of the current local day.
func ComputeOverview(tasks []models.Task, now time.Time) OverviewStats {
	todayStart, _ := DayWindow(now)

	stats := OverviewStats{TotalTasks: len(tasks)}
	for _, task := range tasks {
		status := models.NormalizeStatus(string(task.Status))
		completed := status == models.StatusCompleted
		if completed {
			stats.CompletedTasks++
		}
		if !completed && task.DueDate != nil && task.DueDate.Before(todayStart) {
			stats.OverdueTasks++
		}
		if !completed && models.NormalizePriority(string(task.Priority)) == models.PriorityHigh {
			stats.HighPriorityTasks++
		}
	}

	stats.CompletionRate = CompletionRate(stats.CompletedTasks, stats.TotalTasks)
	return stats
}

// CompletionRate is the completed share in whole percent, 0 when there are no
// tasks.
func CompletionRate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// ComputeStatusBuckets counts tasks per canonical status. Legacy stored
// values are normalized; anything unrecognized lands in the "todo" bucket.
func ComputeStatusBuckets(tasks []models.Task) StatusBuckets {
	var buckets StatusBuckets
	for _, task := range tasks {
		switch models.NormalizeStatus(string(task.Status)) {
		case models.StatusInProgress:
			buckets.InProgress++
		case models.StatusCompleted:
			buckets.Completed++
		default:
			buckets.ToDo++
		}
	}
	return buckets
}

// ComputePriorityBuckets counts all tasks per canonical priority;
// unrecognized values land in "medium".
func ComputePriorityBuckets(tasks []models.Task) PriorityBuckets {
	var buckets PriorityBuckets
	for _, task := range tasks {
		switch models.NormalizePriority(string(task.Priority)) {
		case models.PriorityLow:
			buckets.Low++
		case models.PriorityHigh:
			buckets.High++
		default:
			buckets.Medium++
		}
	}
	return buckets
}

// SortTodayTasks orders by priority descending, then creation ascending.
func SortTodayTasks(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := models.PriorityRank(string(tasks[i].Priority)), models.PriorityRank(string(tasks[j].Priority))
		if ri != rj {
			return ri > rj
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}
