// Seeds a demo instructor session with a few questions. Re-running purges
// the previous demo session first, cascading to its questions.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"classboard/config"
	"classboard/internal/cache"
	"classboard/internal/repository"
	"classboard/internal/service"
)

const demoOwnerID = "instr_instructor"

func main() {
	cfg := config.Load()
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("failed to ensure indexes: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	sessionRepo := repository.NewSessionRepo(db)
	questionRepo := repository.NewQuestionRepo(db)
	sessionCache := cache.NewSessionCache(rdb)

	members := service.NewMembershipDirectory(sessionRepo)
	guard := service.NewGuard(members)
	sessionSvc := service.NewSessionService(sessionRepo, questionRepo, sessionCache, guard, logger, cfg.JoinCodeLength, cfg.JoinCodeAttempts)
	questionSvc := service.NewQuestionService(questionRepo, sessionRepo, guard, logger)

	// Drop the previous demo session, questions cascade with it.
	existing, err := sessionRepo.ListByOwner(ctx, demoOwnerID)
	if err != nil {
		log.Fatalf("failed to list demo sessions: %v", err)
	}
	for _, s := range existing {
		if err := sessionSvc.Purge(ctx, s.ID); err != nil {
			log.Fatalf("failed to purge old demo session %s: %v", s.ID, err)
		}
	}

	session, err := sessionSvc.Create(ctx, demoOwnerID, "Intro to Algorithms: Lecture 7", 90)
	if err != nil {
		log.Fatalf("failed to create demo session: %v", err)
	}

	student1, student2 := "stud_demo1", "stud_demo2"
	if _, err := sessionSvc.Join(ctx, session.JoinCode, student1); err != nil {
		log.Fatalf("failed to join demo student: %v", err)
	}
	if _, err := sessionSvc.Join(ctx, session.JoinCode, student2); err != nil {
		log.Fatalf("failed to join demo student: %v", err)
	}

	texts := []struct {
		author string
		text   string
	}{
		{student1, "Why does quicksort degrade to O(n^2) on sorted input?"},
		{student2, "What is the difference between memoization and tabulation?"},
		{student1, "Can we get the midterm study guide?"},
	}
	for _, t := range texts {
		if _, err := questionSvc.Create(ctx, session.ID, t.author, t.text); err != nil {
			log.Fatalf("failed to seed question: %v", err)
		}
	}

	fmt.Printf("seeded session %s with join code %s\n", session.ID, session.JoinCode)
}
