package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"classboard/internal/apperr"
	"classboard/internal/model"
)

type SessionRepo interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	GetByJoinCode(ctx context.Context, code string) (*model.Session, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Session, error)
	AddMember(ctx context.Context, id, userID string) error
	AddAssistant(ctx context.Context, id, userID string) error
	End(ctx context.Context, id string, at time.Time) (bool, error)
	NextDisplayOrder(ctx context.Context, id string) (int64, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type sessionRepo struct {
	collection *mongo.Collection
}

func NewSessionRepo(db *mongo.Database) SessionRepo {
	return &sessionRepo{
		collection: db.Collection("sessions"),
	}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		// Unique index on joinCode: a concurrent creator won the code.
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Wrap(apperr.Conflict, "join code already in use", err)
		}
		return err
	}
	return nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) GetByJoinCode(ctx context.Context, code string) (*model.Session, error) {
	var session model.Session
	err := r.collection.FindOne(ctx, bson.M{"joinCode": code}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) AddMember(ctx context.Context, id, userID string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"memberIds": userID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "session not found")
	}
	return nil
}

func (r *sessionRepo) AddAssistant(ctx context.Context, id, userID string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{
			"assistantIds": userID,
			"memberIds":    userID,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "session not found")
	}
	return nil
}

// End stamps endedAt once. The conditional filter makes concurrent end
// requests race on the document: exactly one caller observes stamped=true.
func (r *sessionRepo) End(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "endedAt": nil},
		bson.M{"$set": bson.M{"endedAt": at}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// NextDisplayOrder atomically increments and returns the session's question
// sequence. One document write, no counters collection.
func (r *sessionRepo) NextDisplayOrder(ctx context.Context, id string) (int64, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var session model.Session
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"questionSeq": 1}},
		opts,
	).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, apperr.New(apperr.NotFound, "session not found")
		}
		return 0, err
	}
	return session.QuestionSeq, nil
}

func (r *sessionRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"joinCode": code}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
