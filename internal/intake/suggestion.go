package intake

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hashicorp/go-multierror"
)

const (
	CategoryEmergency = "emergency"
	CategoryGeneral   = "general"

	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"

	// defaultCaseTitle is the legacy placeholder; it is only used when
	// neither the extracted chief complaint nor the transcript offers
	// anything better.
	defaultCaseTitle = "Medical Consultation"

	maxTitleLen = 80
)

// BuildSuggestion synthesizes the case-creation proposal from the immutable
// triage and extraction outputs. Pure and idempotent: the same state always
// yields the same suggestion.
func BuildSuggestion(state *ConversationState) *CaseSuggestion {
	s := &CaseSuggestion{
		Title:    caseTitle(state),
		Category: CategoryGeneral,
		Priority: PriorityMedium,
		Metadata: SuggestionMetadata{
			TriageAssessment: state.TriageResult,
			MedicalData:      state.MedicalData,
		},
	}
	if state.MedicalData != nil {
		s.Description = state.MedicalData.RawText
	}
	if state.TriageResult != nil {
		switch state.TriageResult.Decision {
		case DecisionEmergency:
			s.Category = CategoryEmergency
			s.Priority = PriorityUrgent
		case DecisionUrgent:
			s.Priority = PriorityHigh
		}
	}
	return s
}

// caseTitle derives a title from the extracted chief complaint, falling back
// to the patient's first message and finally the legacy placeholder.
func caseTitle(state *ConversationState) string {
	if state.MedicalData != nil {
		if cc, ok := state.MedicalData.StructuredData["chief_complaint"].(string); ok {
			if cc = strings.TrimSpace(cc); cc != "" {
				return truncateTitle(capitalize(cc))
			}
		}
	}
	for _, t := range state.Messages {
		if t.Role == RoleUser && strings.TrimSpace(t.Content) != "" {
			return truncateTitle(capitalize(strings.TrimSpace(t.Content)))
		}
	}
	return defaultCaseTitle
}

func truncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= maxTitleLen {
		return s
	}
	return strings.TrimSpace(string(runes[:maxTitleLen-1])) + "…"
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Validate checks the suggestion for the fields a case record requires.
// Failures are recoverable: the caller can re-prompt or fill defaults, and
// every missing field is reported at once.
func (s *CaseSuggestion) Validate() error {
	var result *multierror.Error
	if strings.TrimSpace(s.Title) == "" {
		result = multierror.Append(result, fmt.Errorf("title is required"))
	}
	if strings.TrimSpace(s.Description) == "" {
		result = multierror.Append(result, fmt.Errorf("description is required"))
	}
	if s.Category != CategoryEmergency && s.Category != CategoryGeneral {
		result = multierror.Append(result, fmt.Errorf("invalid category: %q", s.Category))
	}
	switch s.Priority {
	case PriorityUrgent, PriorityHigh, PriorityMedium:
	default:
		result = multierror.Append(result, fmt.Errorf("invalid priority: %q", s.Priority))
	}
	if s.Metadata.TriageAssessment == nil {
		result = multierror.Append(result, fmt.Errorf("triage assessment is missing"))
	}
	if s.Metadata.MedicalData == nil {
		result = multierror.Append(result, fmt.Errorf("medical data is missing"))
	}
	return result.ErrorOrNil()
}
