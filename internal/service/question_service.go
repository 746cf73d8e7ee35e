package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"classboard/internal/apperr"
	"classboard/internal/model"
	"classboard/internal/repository"
)

// QuestionService owns question creation, the status state machine, and
// board-wide archiving. Status transitions are last-write-wins; the only
// operation needing stronger atomicity is the duplicate-checked insert, which
// the repository enforces via its unique index.
type QuestionService struct {
	questions   repository.QuestionRepo
	sessions    repository.SessionRepo
	guard       *Guard
	broadcaster Broadcaster
	logger      *zap.Logger
}

func NewQuestionService(
	questions repository.QuestionRepo,
	sessions repository.SessionRepo,
	guard *Guard,
	logger *zap.Logger,
) *QuestionService {
	return &QuestionService{
		questions: questions,
		sessions:  sessions,
		guard:     guard,
		logger:    logger,
	}
}

// SetBroadcaster sets the broadcaster for realtime events.
func (s *QuestionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Create posts a question to the session board. The normalized-text
// uniqueness check happens inside the insert itself; two students racing the
// same wording get exactly one question and one Conflict.
func (s *QuestionService) Create(ctx context.Context, sessionID, authorID, rawText string) (*model.Question, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperr.New(apperr.NotFound, "session not found")
	}
	if _, err := s.guard.RequireForSession(session, authorID, ActionCreateQuestion); err != nil {
		return nil, err
	}
	if !session.IsActive(time.Now()) {
		return nil, apperr.New(apperr.SessionEnded, "session has ended")
	}

	text := strings.TrimSpace(rawText)
	if text == "" {
		return nil, apperr.New(apperr.InvalidArgument, "question text is empty")
	}

	order, err := s.sessions.NextDisplayOrder(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to assign display order: %w", err)
	}

	question := &model.Question{
		ID:             uuid.New().String(),
		SessionID:      sessionID,
		AuthorID:       authorID,
		Text:           text,
		NormalizedText: model.NormalizeText(text),
		Status:         model.StatusOpen,
		Archived:       false,
		CreatedAt:      time.Now().UTC(),
		DisplayOrder:   order,
	}

	if err := s.questions.Create(ctx, question); err != nil {
		return nil, err
	}

	s.publish(model.Event{
		Type:       model.EventCreate,
		SessionID:  sessionID,
		QuestionID: question.ID,
		Payload:    question,
	})
	return question, nil
}

// SetStatus applies a role-gated status transition. Archived questions are
// immutable; transitions outside the state machine are rejected.
func (s *QuestionService) SetStatus(ctx context.Context, questionID, requesterID string, newStatus model.QuestionStatus, answerText *string) (*model.Question, error) {
	if !model.ValidStatus(newStatus) {
		return nil, apperr.Newf(apperr.InvalidArgument, "unknown status %q", newStatus)
	}

	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, apperr.New(apperr.NotFound, "question not found")
	}

	session, err := s.sessions.GetByID(ctx, question.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperr.New(apperr.NotFound, "session not found")
	}
	if _, err := s.guard.RequireForSession(session, requesterID, ActionChangeStatus); err != nil {
		return nil, err
	}

	if question.Status == model.StatusArchived {
		return nil, apperr.New(apperr.Conflict, "question is archived")
	}
	if !model.CanTransition(question.Status, newStatus) {
		return nil, apperr.Newf(apperr.InvalidArgument, "cannot transition %s to %s", question.Status, newStatus)
	}

	if newStatus == model.StatusAnswered {
		// An empty string is a valid answer (status flip only); a missing
		// one is not.
		if answerText == nil {
			return nil, apperr.New(apperr.InvalidArgument, "answerText required when answering")
		}
		now := time.Now().UTC()
		question.AnswerText = answerText
		question.AnsweredByID = &requesterID
		question.AnsweredAt = &now
	}

	question.Status = newStatus
	question.Archived = newStatus == model.StatusArchived

	if err := s.questions.Update(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	eventType := model.EventUpdate
	if newStatus == model.StatusArchived {
		eventType = model.EventDelete
	}
	s.publish(model.Event{
		Type:       eventType,
		SessionID:  question.SessionID,
		QuestionID: question.ID,
		Payload:    question,
	})
	return question, nil
}

// List returns the session's questions in display order: important first,
// then ascending displayOrder. Archived questions are excluded unless
// explicitly filtered for.
func (s *QuestionService) List(ctx context.Context, sessionID, requesterID string, status *model.QuestionStatus) ([]*model.Question, error) {
	if status != nil && !model.ValidStatus(*status) {
		return nil, apperr.Newf(apperr.InvalidArgument, "unknown status %q", *status)
	}
	if _, err := s.guard.Require(ctx, sessionID, requesterID, ActionListQuestions); err != nil {
		return nil, err
	}

	questions, err := s.questions.ListBySession(ctx, sessionID, status)
	if err != nil {
		return nil, err
	}

	// Repo ordering is displayOrder; stable sort lifts important questions
	// to the top without disturbing relative order.
	sort.SliceStable(questions, func(i, j int) bool {
		ii := questions[i].Status == model.StatusImportant
		ji := questions[j].Status == model.StatusImportant
		return ii && !ji
	})
	return questions, nil
}

// Stats returns the per-status tally for the session board.
func (s *QuestionService) Stats(ctx context.Context, sessionID, requesterID string) (*model.BoardStats, error) {
	if _, err := s.guard.Require(ctx, sessionID, requesterID, ActionListQuestions); err != nil {
		return nil, err
	}

	counts, err := s.questions.CountByStatus(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	stats := &model.BoardStats{
		Open:      counts[model.StatusOpen],
		Important: counts[model.StatusImportant],
		Answered:  counts[model.StatusAnswered],
		Archived:  counts[model.StatusArchived],
	}
	stats.Total = stats.Open + stats.Important + stats.Answered + stats.Archived
	return stats, nil
}

// ArchiveAll clears the board: every non-archived question becomes archived.
// Idempotent, and emits a single boardCleared event rather than one per
// question.
func (s *QuestionService) ArchiveAll(ctx context.Context, sessionID, requesterID string) error {
	if _, err := s.guard.Require(ctx, sessionID, requesterID, ActionArchiveAll); err != nil {
		return err
	}

	n, err := s.questions.ArchiveAll(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to archive questions: %w", err)
	}

	if n == 0 {
		// Nothing left to archive, successful no-op.
		return nil
	}

	s.logger.Info("board cleared",
		zap.String("sessionId", sessionID),
		zap.Int64("archived", n),
	)

	s.publish(model.Event{
		Type:      model.EventBoardCleared,
		SessionID: sessionID,
	})
	return nil
}

func (s *QuestionService) publish(event model.Event) {
	if s.broadcaster != nil {
		s.broadcaster.Publish(event.SessionID, event)
	}
}
