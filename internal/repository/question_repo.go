package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"classboard/internal/apperr"
	"classboard/internal/model"
)

type QuestionRepo interface {
	Create(ctx context.Context, question *model.Question) error
	GetByID(ctx context.Context, id string) (*model.Question, error)
	Update(ctx context.Context, question *model.Question) error
	ListBySession(ctx context.Context, sessionID string, status *model.QuestionStatus) ([]*model.Question, error)
	ArchiveAll(ctx context.Context, sessionID string) (int64, error)
	CountByStatus(ctx context.Context, sessionID string) (map[model.QuestionStatus]int, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}

type questionRepo struct {
	collection *mongo.Collection
}

func NewQuestionRepo(db *mongo.Database) QuestionRepo {
	return &questionRepo{
		collection: db.Collection("questions"),
	}
}

// Create inserts the question. The partial unique index on
// (sessionId, normalizedText) where archived=false turns a concurrent
// duplicate submission into a duplicate-key error here, so the check and the
// insert are a single atomic step rather than read-then-write.
func (r *questionRepo) Create(ctx context.Context, question *model.Question) error {
	_, err := r.collection.InsertOne(ctx, question)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Wrap(apperr.Conflict, "question already asked in this session", err)
		}
		return err
	}
	return nil
}

func (r *questionRepo) GetByID(ctx context.Context, id string) (*model.Question, error) {
	var question model.Question
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&question)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &question, nil
}

func (r *questionRepo) Update(ctx context.Context, question *model.Question) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": question.ID}, question)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "question not found")
	}
	return nil
}

// ListBySession returns questions ordered by displayOrder. Without a status
// filter, archived questions are excluded; a filter returns exactly that
// status, archived included when asked for.
func (r *questionRepo) ListBySession(ctx context.Context, sessionID string, status *model.QuestionStatus) ([]*model.Question, error) {
	filter := bson.M{"sessionId": sessionID}
	if status != nil {
		filter["status"] = *status
	} else {
		filter["archived"] = false
	}

	opts := options.Find().SetSort(bson.D{{Key: "displayOrder", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var questions []*model.Question
	if err = cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// ArchiveAll transitions every non-archived question in the session to
// archived. Safe to re-run: an empty match is a no-op.
func (r *questionRepo) ArchiveAll(ctx context.Context, sessionID string) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"sessionId": sessionID, "archived": false},
		bson.M{"$set": bson.M{
			"status":   model.StatusArchived,
			"archived": true,
		}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *questionRepo) CountByStatus(ctx context.Context, sessionID string) (map[model.QuestionStatus]int, error) {
	cursor, err := r.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"sessionId": sessionID}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status model.QuestionStatus `bson:"_id"`
		Count  int                  `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[model.QuestionStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// DeleteBySession removes all of a session's questions; used when a session
// is permanently removed so no orphan questions survive it.
func (r *questionRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"sessionId": sessionID})
	return err
}
