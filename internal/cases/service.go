package cases

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"medical-intake-agent/internal/intake"
)

// Service opens and reads clinical cases. It implements intake.CaseCreator.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateCase opens a case from a confirmed intake suggestion. The triage
// assessment and extracted data travel along in the case metadata so staff
// see the full picture without reopening the conversation.
func (s *Service) CreateCase(ctx context.Context, threadID string, suggestion *intake.CaseSuggestion) (string, error) {
	if err := suggestion.Validate(); err != nil {
		return "", fmt.Errorf("invalid suggestion: %w", err)
	}

	c := &Case{
		ID:          uuid.New(),
		ThreadID:    threadID,
		Title:       suggestion.Title,
		Description: suggestion.Description,
		Category:    suggestion.Category,
		Priority:    suggestion.Priority,
		Status:      StatusOpen,
		Metadata: map[string]interface{}{
			"triage_assessment": suggestion.Metadata.TriageAssessment,
			"medical_data":      suggestion.Metadata.MedicalData,
		},
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return "", fmt.Errorf("save case: %w", err)
	}
	log.Info().Str("case_id", c.ID.String()).Str("category", c.Category).Str("priority", c.Priority).Msg("case opened")
	return c.ID.String(), nil
}

func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListCases(ctx context.Context, limit int) ([]Case, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.List(ctx, limit)
}
