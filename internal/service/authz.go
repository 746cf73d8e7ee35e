package service

import (
	"context"

	"classboard/internal/apperr"
	"classboard/internal/model"
)

// Action names a guarded operation against a session.
type Action string

const (
	ActionViewSession    Action = "view_session"
	ActionCreateQuestion Action = "create_question"
	ActionListQuestions  Action = "list_questions"
	ActionChangeStatus   Action = "change_status"
	ActionArchiveAll     Action = "archive_all"
	ActionEndSession     Action = "end_session"
	ActionAddAssistant   Action = "add_assistant"
	ActionSubscribe      Action = "subscribe"
)

// capabilities is the single capability table consulted before every mutating
// or subscribing action. Participants may never change question status,
// including their own questions.
var capabilities = map[Action]map[model.Role]bool{
	ActionViewSession:    {model.RoleOwner: true, model.RoleAssistant: true, model.RoleParticipant: true},
	ActionCreateQuestion: {model.RoleOwner: true, model.RoleAssistant: true, model.RoleParticipant: true},
	ActionListQuestions:  {model.RoleOwner: true, model.RoleAssistant: true, model.RoleParticipant: true},
	ActionChangeStatus:   {model.RoleOwner: true, model.RoleAssistant: true},
	ActionArchiveAll:     {model.RoleOwner: true, model.RoleAssistant: true},
	ActionEndSession:     {model.RoleOwner: true},
	ActionAddAssistant:   {model.RoleOwner: true},
	ActionSubscribe:      {model.RoleOwner: true, model.RoleAssistant: true, model.RoleParticipant: true},
}

// Guard is the authorization check shared by the REST and websocket surfaces.
type Guard struct {
	members *MembershipDirectory
}

func NewGuard(members *MembershipDirectory) *Guard {
	return &Guard{members: members}
}

// Allowed reports whether the capability table grants role the action.
func (g *Guard) Allowed(role model.Role, action Action) bool {
	return capabilities[action][role]
}

// Require resolves the user's role via the membership directory and fails
// with Forbidden unless the capability table grants the action.
func (g *Guard) Require(ctx context.Context, sessionID, userID string, action Action) (model.Role, error) {
	role, err := g.members.RoleOf(ctx, sessionID, userID)
	if err != nil {
		return model.RoleNone, err
	}
	if !g.Allowed(role, action) {
		return role, apperr.Newf(apperr.Forbidden, "%s not permitted", action)
	}
	return role, nil
}

// RequireForSession is Require against an already-loaded session document,
// for callers that need the session anyway and must not re-read state
// between the check and the mutation.
func (g *Guard) RequireForSession(session *model.Session, userID string, action Action) (model.Role, error) {
	role := session.RoleOf(userID)
	if !g.Allowed(role, action) {
		return role, apperr.Newf(apperr.Forbidden, "%s not permitted", action)
	}
	return role, nil
}
