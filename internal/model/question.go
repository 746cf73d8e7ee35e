package model

import (
	"strings"
	"time"
)

// QuestionStatus is the lifecycle state of a question on the board.
type QuestionStatus string

const (
	StatusOpen      QuestionStatus = "open"
	StatusImportant QuestionStatus = "important"
	StatusAnswered  QuestionStatus = "answered"
	StatusArchived  QuestionStatus = "archived"
)

// validTransitions is the full status state machine. Archived is absorbing.
var validTransitions = map[QuestionStatus]map[QuestionStatus]bool{
	StatusOpen:      {StatusImportant: true, StatusAnswered: true, StatusArchived: true},
	StatusImportant: {StatusOpen: true, StatusAnswered: true, StatusArchived: true},
	StatusAnswered:  {StatusOpen: true, StatusImportant: true, StatusArchived: true},
	StatusArchived:  {},
}

// ValidStatus reports whether s is a known status value.
func ValidStatus(s QuestionStatus) bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from, to QuestionStatus) bool {
	return validTransitions[from][to]
}

type Question struct {
	ID        string `json:"id" bson:"_id"`
	SessionID string `json:"sessionId" bson:"sessionId"`
	AuthorID  string `json:"authorId" bson:"authorId"`
	Text      string `json:"text" bson:"text"`

	// NormalizedText is the duplicate-detection key within a session.
	NormalizedText string `json:"-" bson:"normalizedText"`

	Status QuestionStatus `json:"status" bson:"status"`

	// Archived mirrors Status == archived so the partial unique index on
	// (sessionId, normalizedText) can filter on a plain boolean equality.
	Archived bool `json:"-" bson:"archived"`

	AnswerText   *string    `json:"answerText,omitempty" bson:"answerText,omitempty"`
	AnsweredByID *string    `json:"answeredById,omitempty" bson:"answeredById,omitempty"`
	AnsweredAt   *time.Time `json:"answeredAt,omitempty" bson:"answeredAt,omitempty"`

	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	DisplayOrder int64     `json:"displayOrder" bson:"displayOrder"`
}

// NormalizeText case-folds and whitespace-collapses raw question text.
// Duplicate detection is intentionally this simple: exact matches after
// normalization only, nothing semantic.
func NormalizeText(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

// BoardStats is the per-session question tally exposed on ended boards.
type BoardStats struct {
	Total     int `json:"total"`
	Open      int `json:"open"`
	Important int `json:"important"`
	Answered  int `json:"answered"`
	Archived  int `json:"archived"`
}
