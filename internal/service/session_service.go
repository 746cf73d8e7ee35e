package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"classboard/internal/apperr"
	"classboard/internal/cache"
	"classboard/internal/model"
	"classboard/internal/repository"
)

// codeAlphabet avoids 0/O and 1/I so codes survive being read off a screen.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// SessionService handles the session lifecycle: creation with a unique join
// code, membership admission, assistants, and idempotent ending.
type SessionService struct {
	sessions     repository.SessionRepo
	questions    repository.QuestionRepo
	sessionCache cache.SessionCache
	guard        *Guard
	broadcaster  Broadcaster
	logger       *zap.Logger

	codeLength   int
	codeAttempts int
}

func NewSessionService(
	sessions repository.SessionRepo,
	questions repository.QuestionRepo,
	sessionCache cache.SessionCache,
	guard *Guard,
	logger *zap.Logger,
	codeLength, codeAttempts int,
) *SessionService {
	if codeLength <= 0 {
		codeLength = 6
	}
	if codeAttempts <= 0 {
		codeAttempts = 10
	}
	return &SessionService{
		sessions:     sessions,
		questions:    questions,
		sessionCache: sessionCache,
		guard:        guard,
		logger:       logger,
		codeLength:   codeLength,
		codeAttempts: codeAttempts,
	}
}

// SetBroadcaster sets the broadcaster for realtime events.
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Create allocates a session owned by ownerID. Join code generation retries
// on collision up to the attempt budget; the unique index on joinCode is the
// authoritative check, the cache and count probe only skip doomed inserts.
func (s *SessionService) Create(ctx context.Context, ownerID, title string, durationMinutes int) (*model.Session, error) {
	if ownerID == "" {
		return nil, apperr.New(apperr.InvalidArgument, "owner id required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.New(apperr.InvalidArgument, "title required")
	}

	now := time.Now().UTC()
	session := &model.Session{
		ID:           uuid.New().String(),
		Title:        title,
		OwnerID:      ownerID,
		AssistantIDs: []string{},
		MemberIDs:    []string{ownerID},
		CreatedAt:    now,
	}
	if durationMinutes > 0 {
		expires := now.Add(time.Duration(durationMinutes) * time.Minute)
		session.ExpiresAt = &expires
	}

	for attempt := 0; attempt < s.codeAttempts; attempt++ {
		code, err := s.randomCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate join code: %w", err)
		}

		if taken, err := s.codeTaken(ctx, code); err != nil {
			return nil, err
		} else if taken {
			continue
		}

		session.JoinCode = code
		err = s.sessions.Create(ctx, session)
		if apperr.IsKind(err, apperr.Conflict) {
			// Lost the code to a concurrent creator; try a fresh one.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}

		if err := s.sessionCache.Set(ctx, session); err != nil {
			s.logger.Warn("session cache set failed", zap.String("code", code), zap.Error(err))
		}
		return session, nil
	}

	return nil, apperr.New(apperr.ResourceExhausted, "could not allocate a unique join code")
}

// Get returns the session if the requester is a member of it.
func (s *SessionService) Get(ctx context.Context, sessionID, requesterID string) (*model.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperr.New(apperr.NotFound, "session not found")
	}
	if _, err := s.guard.RequireForSession(session, requesterID, ActionViewSession); err != nil {
		return nil, err
	}
	return session, nil
}

// ListByOwner returns the sessions ownerID created, newest first.
func (s *SessionService) ListByOwner(ctx context.Context, ownerID string) ([]*model.Session, error) {
	return s.sessions.ListByOwner(ctx, ownerID)
}

// Join admits userID into the session matching the join code or session id.
// Codes are case-insensitive. Re-joining an existing member is a successful
// no-op.
func (s *SessionService) Join(ctx context.Context, codeOrID, userID string) (*model.Session, error) {
	if userID == "" {
		return nil, apperr.New(apperr.InvalidArgument, "user id required")
	}
	raw := strings.TrimSpace(codeOrID)

	session, err := s.lookupByCode(ctx, strings.ToUpper(raw))
	if err != nil {
		return nil, err
	}
	if session == nil {
		if session, err = s.sessions.GetByID(ctx, raw); err != nil {
			return nil, err
		}
	}
	if session == nil {
		return nil, apperr.New(apperr.NotFound, "no session with that join code")
	}
	if !session.IsActive(time.Now()) {
		return nil, apperr.New(apperr.SessionEnded, "session has ended")
	}

	if session.IsMember(userID) {
		return session, nil
	}

	if err := s.sessions.AddMember(ctx, session.ID, userID); err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}
	session.MemberIDs = append(session.MemberIDs, userID)

	if err := s.sessionCache.Set(ctx, session); err != nil {
		s.logger.Warn("session cache refresh failed", zap.String("code", session.JoinCode), zap.Error(err))
	}

	if s.broadcaster != nil {
		s.broadcaster.Publish(session.ID, model.Event{
			Type:      model.EventMemberJoined,
			SessionID: session.ID,
			Payload:   map[string]string{"userId": userID},
		})
	}
	return session, nil
}

// AddAssistant promotes targetUserID to assistant. Owner only, idempotent.
func (s *SessionService) AddAssistant(ctx context.Context, sessionID, requesterID, targetUserID string) error {
	if targetUserID == "" {
		return apperr.New(apperr.InvalidArgument, "target user id required")
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return apperr.New(apperr.NotFound, "session not found")
	}
	if _, err := s.guard.RequireForSession(session, requesterID, ActionAddAssistant); err != nil {
		return err
	}

	if err := s.sessions.AddAssistant(ctx, sessionID, targetUserID); err != nil {
		return err
	}
	return nil
}

// End stamps endedAt exactly once. Concurrent and repeated end requests all
// succeed; only the call that actually stamped the timestamp emits the
// sessionEnded event, so subscribers see it once. Connections are left open,
// clients are expected to stop publishing on receipt.
func (s *SessionService) End(ctx context.Context, sessionID, requesterID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return apperr.New(apperr.NotFound, "session not found")
	}
	if _, err := s.guard.RequireForSession(session, requesterID, ActionEndSession); err != nil {
		return err
	}

	now := time.Now().UTC()
	stamped, err := s.sessions.End(ctx, sessionID, now)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if !stamped {
		// Already ended, treat as success.
		return nil
	}

	session.EndedAt = &now
	if err := s.sessionCache.Set(ctx, session); err != nil {
		s.logger.Warn("session cache refresh failed", zap.String("code", session.JoinCode), zap.Error(err))
	}

	s.logger.Info("session ended",
		zap.String("sessionId", sessionID),
		zap.String("by", requesterID),
	)

	if s.broadcaster != nil {
		s.broadcaster.Publish(sessionID, model.Event{
			Type:      model.EventSessionEnded,
			SessionID: sessionID,
		})
	}
	return nil
}

// Purge permanently removes a session and cascades to its questions; no
// orphan questions survive the session that owned them.
func (s *SessionService) Purge(ctx context.Context, sessionID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}
	if err := s.questions.DeleteBySession(ctx, sessionID); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	if err := s.sessionCache.Delete(ctx, session.JoinCode); err != nil {
		s.logger.Warn("session cache delete failed", zap.String("code", session.JoinCode), zap.Error(err))
	}
	return nil
}

// lookupByCode uses the cache as a code index only; membership and active
// checks always run against the authoritative document, never a snapshot.
func (s *SessionService) lookupByCode(ctx context.Context, code string) (*model.Session, error) {
	cached, err := s.sessionCache.GetByCode(ctx, code)
	if err != nil {
		s.logger.Warn("session cache lookup failed", zap.String("code", code), zap.Error(err))
	}
	if cached != nil {
		return s.sessions.GetByID(ctx, cached.ID)
	}
	return s.sessions.GetByJoinCode(ctx, code)
}

func (s *SessionService) codeTaken(ctx context.Context, code string) (bool, error) {
	if exists, err := s.sessionCache.CodeExists(ctx, code); err == nil && exists {
		return true, nil
	}
	return s.sessions.CodeExists(ctx, code)
}

func (s *SessionService) randomCode() (string, error) {
	b := make([]byte, s.codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	code := make([]byte, s.codeLength)
	for i := range code {
		code[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(code), nil
}
