package repositories

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"taskmaster/backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListQuery carries the filter/sort/pagination parameters for a task listing.
// Zero values mean "not applied"; Page and Limit are normalized by the service
// before the query reaches the repository.
type ListQuery struct {
	Status    string
	Priority  string
	Search    string
	Page      int64
	Limit     int64
	SortBy    string
	SortOrder string
}

type TaskRepo struct {
	collection *mongo.Collection
}

func NewTaskRepo(collection *mongo.Collection) *TaskRepo {
	return &TaskRepo{collection: collection}
}

// EnsureIndexes creates the owner/createdAt index the list and dashboard
// queries run against.
func (r *TaskRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create task indexes: %v", err)
	}
	return nil
}

// buildListFilter assembles the Mongo filter for a listing. Ownership and the
// archived exclusion are unconditional; everything else comes from the query.
func buildListFilter(owner primitive.ObjectID, q ListQuery) bson.M {
	filter := bson.M{
		"user":       owner,
		"isArchived": bson.M{"$ne": true},
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.Priority != "" {
		filter["priority"] = q.Priority
	}
	if q.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}
	return filter
}

func buildListSort(q ListQuery) bson.D {
	field := q.SortBy
	if field == "" {
		field = "createdAt"
	}
	direction := -1
	if q.SortOrder == "asc" {
		direction = 1
	}
	return bson.D{{Key: field, Value: direction}}
}

func (r *TaskRepo) Insert(ctx context.Context, task *models.Task) (*models.Task, error) {
	result, err := r.collection.InsertOne(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %v", err)
	}
	task.ID = result.InsertedID.(primitive.ObjectID)
	return task, nil
}

// FindByOwner returns one page of the owner's tasks plus the total count
// matching the filter. Pages are not snapshot-isolated: writes between page
// fetches may shift results.
func (r *TaskRepo) FindByOwner(ctx context.Context, owner primitive.ObjectID, q ListQuery) ([]models.Task, int64, error) {
	filter := buildListFilter(owner, q)

	opts := options.Find().
		SetSort(buildListSort(q)).
		SetSkip((q.Page - 1) * q.Limit).
		SetLimit(q.Limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve tasks: %v", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, 0, fmt.Errorf("failed to decode tasks: %v", err)
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %v", err)
	}

	return tasks, total, nil
}

// FindAllByOwner returns every non-archived task the owner has. The dashboard
// fetches once and reduces in process.
func (r *TaskRepo) FindAllByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Task, error) {
	filter := bson.M{"user": owner, "isArchived": bson.M{"$ne": true}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %v", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %v", err)
	}
	return tasks, nil
}

// UpdateFields applies a partial $set to the task and returns the updated
// document. The owner is part of the match, so a task that exists but belongs
// to someone else surfaces as mongo.ErrNoDocuments.
func (r *TaskRepo) UpdateFields(ctx context.Context, owner, id primitive.ObjectID, fields bson.M) (*models.Task, error) {
	filter := bson.M{"_id": id, "user": owner}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var task models.Task
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": fields}, opts).Decode(&task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete hard-deletes the task and returns the removed document under the
// same ownership rule as UpdateFields.
func (r *TaskRepo) Delete(ctx context.Context, owner, id primitive.ObjectID) (*models.Task, error) {
	filter := bson.M{"_id": id, "user": owner}

	var task models.Task
	err := r.collection.FindOneAndDelete(ctx, filter).Decode(&task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// FindRecent returns the owner's most recently created tasks, newest first.
func (r *TaskRepo) FindRecent(ctx context.Context, owner primitive.ObjectID, limit int64) ([]models.Task, error) {
	filter := bson.M{"user": owner, "isArchived": bson.M{"$ne": true}}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve recent tasks: %v", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode recent tasks: %v", err)
	}
	return tasks, nil
}

// FindDueBetween returns the owner's tasks whose due date falls inside the
// window, bounds inclusive.
func (r *TaskRepo) FindDueBetween(ctx context.Context, owner primitive.ObjectID, from, to time.Time) ([]models.Task, error) {
	filter := bson.M{
		"user":       owner,
		"isArchived": bson.M{"$ne": true},
		"dueDate":    bson.M{"$gte": from, "$lte": to},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve due tasks: %v", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode due tasks: %v", err)
	}
	return tasks, nil
}
