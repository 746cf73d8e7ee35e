package service

import (
	"context"

	"classboard/internal/apperr"
	"classboard/internal/model"
	"classboard/internal/repository"
)

// MembershipDirectory resolves a user's role within a session. It is the
// single source of truth for authorization decisions: roles are always
// derived from the current session document, never from cached copies.
type MembershipDirectory struct {
	sessions repository.SessionRepo
}

func NewMembershipDirectory(sessions repository.SessionRepo) *MembershipDirectory {
	return &MembershipDirectory{sessions: sessions}
}

// RoleOf returns userID's role in the session, or NotFound if the session
// does not exist.
func (d *MembershipDirectory) RoleOf(ctx context.Context, sessionID, userID string) (model.Role, error) {
	session, err := d.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return model.RoleNone, err
	}
	if session == nil {
		return model.RoleNone, apperr.New(apperr.NotFound, "session not found")
	}
	return session.RoleOf(userID), nil
}
