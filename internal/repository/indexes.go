package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the services rely on. The two unique
// indexes are load-bearing: joinCode uniqueness backs code generation, and
// the partial index on (sessionId, normalizedText) for non-archived questions
// is what makes the duplicate check atomic with the insert.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("sessions").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "joinCode", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("questions").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "normalizedText", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"archived": false}),
		},
		{
			Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "displayOrder", Value: 1}},
		},
	})
	return err
}
