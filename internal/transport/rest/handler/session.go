package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"classboard/internal/service"
	"classboard/internal/transport/rest/middleware"
)

// SessionHandler handles session lifecycle endpoints.
type SessionHandler struct {
	sessionSvc *service.SessionService
	authSvc    *service.AuthService
}

func NewSessionHandler(sessionSvc *service.SessionService, authSvc *service.AuthService) *SessionHandler {
	return &SessionHandler{
		sessionSvc: sessionSvc,
		authSvc:    authSvc,
	}
}

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	Title           string `json:"title"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

// Create handles POST /v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.sessionSvc.Create(r.Context(), ownerID, req.Title, req.DurationMinutes)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"sessionId": session.ID,
		"joinCode":  session.JoinCode,
	})
}

// List handles GET /v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	sessions, err := h.sessionSvc.ListByOwner(r.Context(), ownerID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}

// Get handles GET /v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	userID := middleware.GetUserID(r.Context())

	session, err := h.sessionSvc.Get(r.Context(), sessionID, userID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// JoinRequest is the request body for joining by code.
type JoinRequest struct {
	Code string `json:"code"`
	// UserID lets an already-known principal (e.g. an instructor joining a
	// colleague's session) keep their identity; absent for fresh students.
	UserID string `json:"userId,omitempty"`
}

// Join handles POST /v1/sessions/join. Students need no prior account: a
// fresh user id is minted and bound into the returned session-scoped token.
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = "stud_" + uuid.New().String()[:8]
	}

	session, err := h.sessionSvc.Join(r.Context(), req.Code, userID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	token, err := h.authSvc.IssueMemberToken(session.ID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"sessionId": session.ID,
		"userId":    userID,
		"token":     token,
	})
}

// End handles POST /v1/sessions/{id}/end. Idempotent.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	userID := middleware.GetUserID(r.Context())

	if err := h.sessionSvc.End(r.Context(), sessionID, userID); err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// AddAssistantRequest is the request body for promoting an assistant.
type AddAssistantRequest struct {
	UserID string `json:"userId"`
}

// AddAssistant handles POST /v1/sessions/{id}/assistants. Owner only,
// idempotent.
func (h *SessionHandler) AddAssistant(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	requesterID := middleware.GetUserID(r.Context())

	var req AddAssistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.sessionSvc.AddAssistant(r.Context(), sessionID, requesterID, req.UserID); err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
