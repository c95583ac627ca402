package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/unpuzzle-ai/usagekit/pkg/assistant"
	"github.com/unpuzzle-ai/usagekit/pkg/plan"
	"github.com/unpuzzle-ai/usagekit/pkg/throttle"
)

type handlers struct {
	log       *slog.Logger
	guard     *throttle.Service
	tutor     *assistant.Service
	responder assistant.Responder
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message, Code: status})
}

// handleUsage returns the read-only usage summary for the requesting user.
func (h *handlers) handleUsage(w http.ResponseWriter, r *http.Request) {
	userID, planID := headerIdentity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_identity", "X-User-ID header is required")
		return
	}

	stats, err := h.guard.Stats(r.Context(), userID, planID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to read usage stats", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to read usage")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

type messageRequest struct {
	Message   string  `json:"message"`
	Agent     string  `json:"agent"`
	CourseID  string  `json:"course_id"`
	VideoID   string  `json:"video_id"`
	Timestamp float64 `json:"timestamp"`
}

// handleSendMessage admits and dispatches one tutoring interaction through
// the assistant facade.
func (h *handlers) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, planID := headerIdentity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_identity", "X-User-ID header is required")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}

	resp, err := h.tutor.SendMessage(r.Context(), assistant.ChatRequest{
		UserID:    userID,
		PlanID:    planID,
		Agent:     plan.Feature(req.Agent),
		Message:   req.Message,
		CourseID:  req.CourseID,
		VideoID:   req.VideoID,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		h.writeAssistantError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleGenerateQuiz produces quiz content; admission already happened in
// the throttle middleware.
func (h *handlers) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	userID, planID := headerIdentity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_identity", "X-User-ID header is required")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}

	resp, err := h.responder.Respond(r.Context(), assistant.ChatRequest{
		UserID:    userID,
		PlanID:    planID,
		Agent:     plan.FeatureQuiz,
		Message:   req.Message,
		CourseID:  req.CourseID,
		VideoID:   req.VideoID,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		h.writeAssistantError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeAssistantError maps facade errors onto HTTP statuses. Quota denials
// reuse the throttle's 429 envelope so clients see one shape regardless of
// which layer denied.
func (h *handlers) writeAssistantError(w http.ResponseWriter, r *http.Request, err error) {
	var rle *assistant.RateLimitError
	switch {
	case errors.As(err, &rle):
		writeJSON(w, http.StatusTooManyRequests, throttle.RateLimitBody{
			Error:   "rate_limit_exceeded",
			Message: rle.Message,
			Code:    http.StatusTooManyRequests,
			Details: rle.Details,
		})
	case errors.Is(err, assistant.ErrEmptyMessage), errors.Is(err, assistant.ErrEmptyUserID):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, assistant.ErrTransport):
		h.log.ErrorContext(r.Context(), "assistant backend failure", "error", err)
		writeError(w, http.StatusBadGateway, "backend_unavailable", "assistant backend is unavailable")
	default:
		h.log.ErrorContext(r.Context(), "assistant request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "request failed")
	}
}
