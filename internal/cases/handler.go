package cases

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler exposes the staff-facing read endpoints for cases. Case creation
// happens through the intake confirmation flow, not here.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "caseID"))
	if err != nil {
		http.Error(w, "Invalid case ID", http.StatusBadRequest)
		return
	}
	c, err := h.svc.GetCase(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrCaseNotFound) {
			http.Error(w, "Case not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load case", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c)
}

func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.svc.ListCases(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to list cases", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/cases", h.ListCases)
	r.Get("/cases/{caseID}", h.GetCase)
}
