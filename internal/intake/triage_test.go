package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want TriageDecision
	}{
		{"decision line emergency", "DECISION: EMERGENCY\nCONFIDENCE: 0.9", DecisionEmergency},
		{"decision line self care", "DECISION: self_care\nREASONING: rest and fluids", DecisionSelfCare},
		{"decision line non urgent", "DECISION: NON_URGENT", DecisionNonUrgent},
		// Ambiguity always resolves toward the more urgent band.
		{"emergency beats non urgent", "This could be NON_URGENT but the chest pain reads as EMERGENCY.", DecisionEmergency},
		{"urgent beats non urgent", "Either URGENT or NON_URGENT depending on duration.", DecisionUrgent},
		// A clean non-urgent answer must not be read as urgent even though
		// NON_URGENT contains the substring URGENT.
		{"bare non urgent", "I would call this NON_URGENT.", DecisionNonUrgent},
		{"hyphenated non urgent", "non-urgent, see a GP this week", DecisionNonUrgent},
		{"free form urgent", "this is urgent, book a same-day visit", DecisionUrgent},
		{"nothing matches", "please rest and drink fluids", DecisionSelfCare},
		{"empty", "", DecisionSelfCare},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDecision(tt.raw))
		})
	}
}

func TestParseTriageResult(t *testing.T) {
	raw := "DECISION: URGENT\nCONFIDENCE: 0.85\nREASONING: Same-day review is warranted."
	result := parseTriageResult(raw)

	assert.Equal(t, DecisionUrgent, result.Decision)
	assert.InDelta(t, 0.85, result.Confidence, 1e-9)
	assert.Equal(t, "Same-day review is warranted.", result.Reasoning)
}

func TestParseTriageResultFreeForm(t *testing.T) {
	raw := "The symptoms described suggest an EMERGENCY. Seek care now."
	result := parseTriageResult(raw)

	assert.Equal(t, DecisionEmergency, result.Decision)
	// No CONFIDENCE line: fall back to the neutral default.
	assert.InDelta(t, 0.5, result.Confidence, 1e-9)
	// No REASONING line: the whole reply is the reasoning.
	assert.Equal(t, raw, result.Reasoning)
}

func TestParseTriageResultRejectsOutOfRangeConfidence(t *testing.T) {
	result := parseTriageResult("DECISION: URGENT\nCONFIDENCE: 12\nREASONING: x")
	assert.InDelta(t, 0.5, result.Confidence, 1e-9)
}
