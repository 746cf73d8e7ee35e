package model

// EventType is the wire type of a realtime board event.
type EventType string

const (
	EventCreate       EventType = "create"
	EventUpdate       EventType = "update"
	EventDelete       EventType = "delete"
	EventSessionEnded EventType = "sessionEnded"
	EventBoardCleared EventType = "boardCleared"
	EventMemberJoined EventType = "memberJoined"
)

// Event is the envelope fanned out to every subscriber of a session topic.
type Event struct {
	Type       EventType   `json:"type"`
	SessionID  string      `json:"sessionId"`
	QuestionID string      `json:"questionId,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
}
