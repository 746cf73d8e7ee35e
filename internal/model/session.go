package model

import "time"

// Role is a user's role within one session. Roles are per-session: the owner
// of one session may be a plain participant of another.
type Role string

const (
	RoleOwner       Role = "owner"
	RoleAssistant   Role = "assistant"
	RoleParticipant Role = "participant"
	RoleNone        Role = "none"
)

type Session struct {
	ID           string     `json:"id" bson:"_id"`
	JoinCode     string     `json:"joinCode" bson:"joinCode"`
	Title        string     `json:"title" bson:"title"`
	OwnerID      string     `json:"ownerId" bson:"ownerId"`
	AssistantIDs []string   `json:"assistantIds" bson:"assistantIds"`
	MemberIDs    []string   `json:"memberIds" bson:"memberIds"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
	EndedAt      *time.Time `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`

	// QuestionSeq backs display ordering; incremented atomically per question.
	QuestionSeq int64 `json:"-" bson:"questionSeq"`
}

// IsActive reports whether the session accepts mutations at the given time.
// Ending is monotonic: once EndedAt is set the session never reactivates.
// Expiry is evaluated lazily here, there is no background timer.
func (s *Session) IsActive(now time.Time) bool {
	if s.EndedAt != nil {
		return false
	}
	if s.ExpiresAt != nil && !now.Before(*s.ExpiresAt) {
		return false
	}
	return true
}

// RoleOf resolves userID's role from the current session state.
// Owner wins over assistant, assistant over plain membership.
func (s *Session) RoleOf(userID string) Role {
	if userID == "" {
		return RoleNone
	}
	if s.OwnerID == userID {
		return RoleOwner
	}
	for _, id := range s.AssistantIDs {
		if id == userID {
			return RoleAssistant
		}
	}
	for _, id := range s.MemberIDs {
		if id == userID {
			return RoleParticipant
		}
	}
	return RoleNone
}

// IsMember reports whether userID holds any role in the session.
func (s *Session) IsMember(userID string) bool {
	return s.RoleOf(userID) != RoleNone
}
