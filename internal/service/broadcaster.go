package service

import "classboard/internal/model"

// Broadcaster fans events out to a session's subscribers (avoids an import
// cycle with the websocket transport). Publish is best-effort and must never
// block the mutating request path.
type Broadcaster interface {
	Publish(sessionID string, event model.Event)
}
