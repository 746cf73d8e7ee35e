package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classboard/internal/apperr"
	"classboard/internal/model"
	"classboard/internal/service"
)

func TestCreateSessionGeneratesJoinCode(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.sessionSvc.Create(ctx, "instr_amara", "Operating Systems", 0)
	require.NoError(t, err)

	assert.Len(t, session.JoinCode, 6)
	for _, ch := range session.JoinCode {
		assert.Contains(t, "ABCDEFGHJKLMNPQRSTUVWXYZ23456789", string(ch))
	}
	assert.Equal(t, "instr_amara", session.OwnerID)
	assert.True(t, session.IsActive(time.Now()))
	assert.Contains(t, session.MemberIDs, "instr_amara")
}

func TestCreateSessionValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.sessionSvc.Create(ctx, "instr_amara", "   ", 0)
	assert.True(t, apperr.IsKind(err, apperr.InvalidArgument))

	_, err = env.sessionSvc.Create(ctx, "", "Databases", 0)
	assert.True(t, apperr.IsKind(err, apperr.InvalidArgument))
}

func TestCreateSessionCodeExhaustion(t *testing.T) {
	env := newTestEnv()
	env.sessionRepo.codeAlwaysTaken = true
	ctx := context.Background()

	_, err := env.sessionSvc.Create(ctx, "instr_amara", "Networks", 0)
	assert.True(t, apperr.IsKind(err, apperr.ResourceExhausted))
}

func TestJoinByCode(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.sessionSvc.Create(ctx, "instr_amara", "Compilers", 0)
	require.NoError(t, err)

	// Codes are case-insensitive; joins idempotent.
	joined, err := env.sessionSvc.Join(ctx, strings.ToLower(session.JoinCode), "stud_1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, joined.ID)

	again, err := env.sessionSvc.Join(ctx, session.JoinCode, "stud_1")
	require.NoError(t, err)

	role, err := env.guard.Require(ctx, again.ID, "stud_1", service.ActionViewSession)
	require.NoError(t, err)
	assert.Equal(t, model.RoleParticipant, role)

	stored, err := env.sessionRepo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	count := 0
	for _, m := range stored.MemberIDs {
		if m == "stud_1" {
			count++
		}
	}
	assert.Equal(t, 1, count, "no duplicate membership on repeated join")

	assert.Equal(t, 1, env.broadcaster.countType(model.EventMemberJoined))
}

func TestJoinBySessionID(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.sessionSvc.Create(ctx, "instr_amara", "Office Hours", 0)
	require.NoError(t, err)

	joined, err := env.sessionSvc.Join(ctx, session.ID, "stud_1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, joined.ID)
}

func TestJoinUnknownCode(t *testing.T) {
	env := newTestEnv()

	_, err := env.sessionSvc.Join(context.Background(), "ZZZZZZ", "stud_1")
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestJoinEndedSession(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.sessionSvc.Create(ctx, "instr_amara", "Ethics", 0)
	require.NoError(t, err)
	require.NoError(t, env.sessionSvc.End(ctx, session.ID, "instr_amara"))

	_, err = env.sessionSvc.Join(ctx, session.JoinCode, "stud_1")
	assert.True(t, apperr.IsKind(err, apperr.SessionEnded))
}

func TestJoinExpiredSession(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.sessionSvc.Create(ctx, "instr_amara", "Short Session", 1)
	require.NoError(t, err)

	// Rewind expiry into the past; no background timer exists, the lazy
	// check at join time must notice.
	past := time.Now().Add(-time.Minute)
	env.sessionRepo.mu.Lock()
	env.sessionRepo.sessions[session.ID].ExpiresAt = &past
	env.sessionRepo.mu.Unlock()

	_, err = env.sessionSvc.Join(ctx, session.JoinCode, "stud_1")
	assert.True(t, apperr.IsKind(err, apperr.SessionEnded))
}

func TestEndSessionIdempotentUnderConcurrency(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.sessionSvc.Create(ctx, "instr_amara", "Final Review", 0)
	require.NoError(t, err)

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = env.sessionSvc.End(ctx, session.ID, "instr_amara")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
	}

	stored, err := env.sessionRepo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.EndedAt)

	// Only the stamping call may announce the end.
	assert.Equal(t, 1, env.broadcaster.countType(model.EventSessionEnded))
}

func TestEndSessionForbiddenForNonOwner(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.sessionSvc.Create(ctx, "instr_amara", "Lecture 3", 0)
	require.NoError(t, err)
	_, err = env.sessionSvc.Join(ctx, session.JoinCode, "stud_1")
	require.NoError(t, err)

	err = env.sessionSvc.End(ctx, session.ID, "stud_1")
	assert.True(t, apperr.IsKind(err, apperr.Forbidden))

	// Assistants may not end sessions either.
	require.NoError(t, env.sessionSvc.AddAssistant(ctx, session.ID, "instr_amara", "ta_1"))
	err = env.sessionSvc.End(ctx, session.ID, "ta_1")
	assert.True(t, apperr.IsKind(err, apperr.Forbidden))
}

func TestAddAssistant(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.sessionSvc.Create(ctx, "instr_amara", "Lab Session", 0)
	require.NoError(t, err)

	require.NoError(t, env.sessionSvc.AddAssistant(ctx, session.ID, "instr_amara", "ta_1"))
	// Idempotent.
	require.NoError(t, env.sessionSvc.AddAssistant(ctx, session.ID, "instr_amara", "ta_1"))

	stored, err := env.sessionRepo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ta_1"}, stored.AssistantIDs)
	assert.Equal(t, model.RoleAssistant, stored.RoleOf("ta_1"))

	// Only the owner may promote.
	_, err = env.sessionSvc.Join(ctx, session.JoinCode, "stud_1")
	require.NoError(t, err)
	err = env.sessionSvc.AddAssistant(ctx, session.ID, "stud_1", "stud_2")
	assert.True(t, apperr.IsKind(err, apperr.Forbidden))
}

func TestPurgeCascadesToQuestions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.sessionSvc.Create(ctx, "instr_amara", "Old Session", 0)
	require.NoError(t, err)
	_, err = env.questionSvc.Create(ctx, session.ID, "instr_amara", "Leftover question?")
	require.NoError(t, err)

	require.NoError(t, env.sessionSvc.Purge(ctx, session.ID))

	stored, err := env.sessionRepo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	env.questionRepo.mu.Lock()
	remaining := len(env.questionRepo.questions)
	env.questionRepo.mu.Unlock()
	assert.Zero(t, remaining, "no orphan questions after purge")
}
