package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"classboard/internal/model"
	"classboard/internal/service"
	"classboard/internal/transport/rest/middleware"
)

// QuestionHandler handles question board endpoints.
type QuestionHandler struct {
	questionSvc *service.QuestionService
}

func NewQuestionHandler(questionSvc *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionSvc: questionSvc}
}

// CreateQuestionRequest is the request body for posting a question.
type CreateQuestionRequest struct {
	Text string `json:"text"`
}

// Create handles POST /v1/sessions/{id}/questions
func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	userID := middleware.GetUserID(r.Context())

	var req CreateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	question, err := h.questionSvc.Create(r.Context(), sessionID, userID, req.Text)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, question)
}

// List handles GET /v1/sessions/{id}/questions?status=
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	userID := middleware.GetUserID(r.Context())

	var status *model.QuestionStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := model.QuestionStatus(v)
		status = &s
	}

	questions, err := h.questionSvc.List(r.Context(), sessionID, userID, status)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if questions == nil {
		questions = []*model.Question{}
	}

	writeJSON(w, http.StatusOK, questions)
}

// Stats handles GET /v1/sessions/{id}/questions/stats
func (h *QuestionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	userID := middleware.GetUserID(r.Context())

	stats, err := h.questionSvc.Stats(r.Context(), sessionID, userID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// UpdateStatusRequest is the request body for a status transition.
type UpdateStatusRequest struct {
	Status     model.QuestionStatus `json:"status"`
	AnswerText *string              `json:"answerText,omitempty"`
}

// UpdateStatus handles PATCH /v1/questions/{id}
func (h *QuestionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	questionID := mux.Vars(r)["id"]
	userID := middleware.GetUserID(r.Context())

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	question, err := h.questionSvc.SetStatus(r.Context(), questionID, userID, req.Status, req.AnswerText)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, question)
}

// ArchiveAll handles DELETE /v1/sessions/{id}/questions. Idempotent.
func (h *QuestionHandler) ArchiveAll(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	userID := middleware.GetUserID(r.Context())

	if err := h.questionSvc.ArchiveAll(r.Context(), sessionID, userID); err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
