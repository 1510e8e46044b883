package intake

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullState(decision TriageDecision) *ConversationState {
	s := completedInterviewState()
	s.TriageResult = &TriageResult{Decision: decision, Confidence: 0.9, Reasoning: "because"}
	s.MedicalData = &MedicalData{
		StructuredData: map[string]interface{}{"chief_complaint": "chest pain"},
		RawText:        `{"chief_complaint":"chest pain"}`,
	}
	return s
}

func TestBuildSuggestionCategoryAndPriority(t *testing.T) {
	tests := []struct {
		decision TriageDecision
		category string
		priority string
	}{
		{DecisionEmergency, CategoryEmergency, PriorityUrgent},
		{DecisionUrgent, CategoryGeneral, PriorityHigh},
		{DecisionNonUrgent, CategoryGeneral, PriorityMedium},
		{DecisionSelfCare, CategoryGeneral, PriorityMedium},
	}
	for _, tt := range tests {
		t.Run(string(tt.decision), func(t *testing.T) {
			s := BuildSuggestion(fullState(tt.decision))
			assert.Equal(t, tt.category, s.Category)
			assert.Equal(t, tt.priority, s.Priority)
		})
	}
}

func TestSuggestionTitleFromChiefComplaint(t *testing.T) {
	s := BuildSuggestion(fullState(DecisionUrgent))
	assert.Equal(t, "Chest pain", s.Title)
}

func TestSuggestionTitleFallsBackToFirstUserTurn(t *testing.T) {
	state := fullState(DecisionUrgent)
	state.MedicalData.StructuredData = map[string]interface{}{}

	s := BuildSuggestion(state)
	assert.Equal(t, "I have crushing chest pain", s.Title)
}

func TestSuggestionTitleFallsBackToPlaceholder(t *testing.T) {
	state := fullState(DecisionUrgent)
	state.MedicalData.StructuredData = map[string]interface{}{}
	state.Messages = nil

	s := BuildSuggestion(state)
	assert.Equal(t, defaultCaseTitle, s.Title)
}

func TestSuggestionTitleTruncation(t *testing.T) {
	state := fullState(DecisionUrgent)
	state.MedicalData.StructuredData = map[string]interface{}{
		"chief_complaint": strings.Repeat("very long complaint ", 10),
	}

	s := BuildSuggestion(state)
	assert.LessOrEqual(t, len([]rune(s.Title)), maxTitleLen)
}

func TestSuggestionDescriptionIsRawExtraction(t *testing.T) {
	s := BuildSuggestion(fullState(DecisionUrgent))
	assert.Equal(t, `{"chief_complaint":"chest pain"}`, s.Description)
}

func TestValidateReportsAllMissingFields(t *testing.T) {
	s := &CaseSuggestion{Category: "bogus", Priority: "asap"}
	err := s.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "title is required")
	assert.Contains(t, msg, "description is required")
	assert.Contains(t, msg, "invalid category")
	assert.Contains(t, msg, "invalid priority")
	assert.Contains(t, msg, "triage assessment is missing")
	assert.Contains(t, msg, "medical data is missing")
}

func TestValidateAcceptsCompleteSuggestion(t *testing.T) {
	s := BuildSuggestion(fullState(DecisionEmergency))
	assert.NoError(t, s.Validate())
}
