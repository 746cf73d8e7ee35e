package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"classboard/internal/apperr"
	"classboard/internal/model"
	"classboard/internal/service"
)

// fakeSessionRepo mirrors the Mongo repo's semantics in memory: per-document
// atomic mutations under one mutex, unique join codes, conditional end.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session

	// codeAlwaysTaken forces every generated join code to collide.
	codeAlwaysTaken bool
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.Session)}
}

func copySession(s *model.Session) *model.Session {
	c := *s
	c.AssistantIDs = append([]string(nil), s.AssistantIDs...)
	c.MemberIDs = append([]string(nil), s.MemberIDs...)
	return &c
}

func (r *fakeSessionRepo) Create(_ context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.JoinCode == session.JoinCode {
			return apperr.New(apperr.Conflict, "join code already in use")
		}
	}
	r.sessions[session.ID] = copySession(session)
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

func (r *fakeSessionRepo) GetByJoinCode(_ context.Context, code string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.JoinCode == code {
			return copySession(s), nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) ListByOwner(_ context.Context, ownerID string) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Session
	for _, s := range r.sessions {
		if s.OwnerID == ownerID {
			out = append(out, copySession(s))
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) AddMember(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return apperr.New(apperr.NotFound, "session not found")
	}
	for _, m := range s.MemberIDs {
		if m == userID {
			return nil
		}
	}
	s.MemberIDs = append(s.MemberIDs, userID)
	return nil
}

func (r *fakeSessionRepo) AddAssistant(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return apperr.New(apperr.NotFound, "session not found")
	}
	found := false
	for _, a := range s.AssistantIDs {
		if a == userID {
			found = true
		}
	}
	if !found {
		s.AssistantIDs = append(s.AssistantIDs, userID)
	}
	found = false
	for _, m := range s.MemberIDs {
		if m == userID {
			found = true
		}
	}
	if !found {
		s.MemberIDs = append(s.MemberIDs, userID)
	}
	return nil
}

func (r *fakeSessionRepo) End(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.EndedAt != nil {
		return false, nil
	}
	s.EndedAt = &at
	return true, nil
}

func (r *fakeSessionRepo) NextDisplayOrder(_ context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return 0, apperr.New(apperr.NotFound, "session not found")
	}
	s.QuestionSeq++
	return s.QuestionSeq, nil
}

func (r *fakeSessionRepo) CodeExists(_ context.Context, code string) (bool, error) {
	if r.codeAlwaysTaken {
		return true, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.JoinCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// fakeQuestionRepo enforces the same uniqueness the partial index provides:
// duplicate (sessionId, normalizedText) among non-archived questions fails
// inside the insert, under the same lock.
type fakeQuestionRepo struct {
	mu        sync.Mutex
	questions map[string]*model.Question
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{questions: make(map[string]*model.Question)}
}

func copyQuestion(q *model.Question) *model.Question {
	c := *q
	return &c
}

func (r *fakeQuestionRepo) Create(_ context.Context, question *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.questions {
		if q.SessionID == question.SessionID && q.NormalizedText == question.NormalizedText && !q.Archived {
			return apperr.New(apperr.Conflict, "question already asked in this session")
		}
	}
	r.questions[question.ID] = copyQuestion(question)
	return nil
}

func (r *fakeQuestionRepo) GetByID(_ context.Context, id string) (*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok {
		return nil, nil
	}
	return copyQuestion(q), nil
}

func (r *fakeQuestionRepo) Update(_ context.Context, question *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.questions[question.ID]; !ok {
		return apperr.New(apperr.NotFound, "question not found")
	}
	r.questions[question.ID] = copyQuestion(question)
	return nil
}

func (r *fakeQuestionRepo) ListBySession(_ context.Context, sessionID string, status *model.QuestionStatus) ([]*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Question
	for _, q := range r.questions {
		if q.SessionID != sessionID {
			continue
		}
		if status != nil {
			if q.Status != *status {
				continue
			}
		} else if q.Archived {
			continue
		}
		out = append(out, copyQuestion(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (r *fakeQuestionRepo) ArchiveAll(_ context.Context, sessionID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, q := range r.questions {
		if q.SessionID == sessionID && !q.Archived {
			q.Status = model.StatusArchived
			q.Archived = true
			n++
		}
	}
	return n, nil
}

func (r *fakeQuestionRepo) CountByStatus(_ context.Context, sessionID string) (map[model.QuestionStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[model.QuestionStatus]int)
	for _, q := range r.questions {
		if q.SessionID == sessionID {
			counts[q.Status]++
		}
	}
	return counts, nil
}

func (r *fakeQuestionRepo) DeleteBySession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, q := range r.questions {
		if q.SessionID == sessionID {
			delete(r.questions, id)
		}
	}
	return nil
}

// fakeSessionCache is a map-backed stand-in for the Redis cache.
type fakeSessionCache struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{sessions: make(map[string]*model.Session)}
}

func (c *fakeSessionCache) Set(_ context.Context, session *model.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[session.JoinCode] = copySession(session)
	return nil
}

func (c *fakeSessionCache) GetByCode(_ context.Context, code string) (*model.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[code]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

func (c *fakeSessionCache) CodeExists(_ context.Context, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[code]
	return ok, nil
}

func (c *fakeSessionCache) Delete(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, code)
	return nil
}

// fakeBroadcaster records published events.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []model.Event
}

func (b *fakeBroadcaster) Publish(_ string, event model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *fakeBroadcaster) countType(t model.EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// testEnv wires the services against the in-memory fakes.
type testEnv struct {
	sessionRepo  *fakeSessionRepo
	questionRepo *fakeQuestionRepo
	cache        *fakeSessionCache
	broadcaster  *fakeBroadcaster
	guard        *service.Guard
	sessionSvc   *service.SessionService
	questionSvc  *service.QuestionService
}

func newTestEnv() *testEnv {
	sessionRepo := newFakeSessionRepo()
	questionRepo := newFakeQuestionRepo()
	sessionCache := newFakeSessionCache()
	broadcaster := &fakeBroadcaster{}

	members := service.NewMembershipDirectory(sessionRepo)
	guard := service.NewGuard(members)
	logger := zap.NewNop()

	sessionSvc := service.NewSessionService(sessionRepo, questionRepo, sessionCache, guard, logger, 6, 10)
	questionSvc := service.NewQuestionService(questionRepo, sessionRepo, guard, logger)
	sessionSvc.SetBroadcaster(broadcaster)
	questionSvc.SetBroadcaster(broadcaster)

	return &testEnv{
		sessionRepo:  sessionRepo,
		questionRepo: questionRepo,
		cache:        sessionCache,
		broadcaster:  broadcaster,
		guard:        guard,
		sessionSvc:   sessionSvc,
		questionSvc:  questionSvc,
	}
}
