package intake

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type ChatRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

type ChatResponse struct {
	ThreadID string       `json:"thread_id"`
	Result   *StageResult `json:"result"`
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "Missing message", http.StatusBadRequest)
		return
	}

	result, state, err := h.svc.HandleMessage(r.Context(), req.ThreadID, req.Message)
	if err != nil {
		if errors.Is(err, ErrStageSelection) {
			// Operator-facing failure; the patient only gets generic copy.
			log.Error().Err(err).Str("thread_id", req.ThreadID).Msg("stage selection failed")
			writeJSON(w, http.StatusInternalServerError, ChatResponse{
				ThreadID: req.ThreadID,
				Result:   &StageResult{Type: StageError, Message: stateErrorMessage},
			})
			return
		}
		log.Error().Err(err).Str("thread_id", req.ThreadID).Msg("intake turn failed")
		http.Error(w, tryAgainMessage, http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{ThreadID: state.ThreadID, Result: result})
}

func (h *Handler) GetThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	state, err := h.svc.GetState(r.Context(), threadID)
	if err != nil {
		if errors.Is(err, ErrThreadNotFound) {
			http.Error(w, "Thread not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load thread", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) ConfirmCase(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	caseID, suggestion, err := h.svc.ConfirmCase(r.Context(), threadID)
	if err != nil {
		switch {
		case errors.Is(err, ErrThreadNotFound):
			http.Error(w, "Thread not found", http.StatusNotFound)
		case errors.Is(err, ErrCaseNotReady):
			http.Error(w, "Intake is not complete yet", http.StatusConflict)
		default:
			log.Error().Err(err).Str("thread_id", threadID).Msg("case confirmation failed")
			http.Error(w, "Failed to create case", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"case_id":    caseID,
		"suggestion": suggestion,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/intake/chat", h.HandleChat)
	r.Get("/intake/threads/{threadID}", h.GetThread)
	r.Post("/intake/threads/{threadID}/case", h.ConfirmCase)
}
