package intake

import (
	"strconv"
	"strings"
)

// parseTriageResult turns the triage task's raw reply into a TriageResult.
// The prompt demands a DECISION/CONFIDENCE/REASONING layout, but the parser
// tolerates free-form output: the decision falls back to an ordered
// substring scan and the reasoning falls back to the whole reply.
func parseTriageResult(raw string) TriageResult {
	result := TriageResult{
		Decision:   parseDecision(raw),
		Confidence: 0.5,
		Reasoning:  strings.TrimSpace(raw),
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := cutField(line, "CONFIDENCE:"); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
				result.Confidence = f
			}
		}
		if v, ok := cutField(line, "REASONING:"); ok && v != "" {
			result.Reasoning = v
		}
	}
	return result
}

// parseDecision prefers an exact DECISION: label, then falls back to
// scanning the whole reply.
func parseDecision(raw string) TriageDecision {
	for _, line := range strings.Split(raw, "\n") {
		v, ok := cutField(strings.TrimSpace(line), "DECISION:")
		if !ok {
			continue
		}
		switch TriageDecision(strings.ToUpper(strings.TrimSpace(v))) {
		case DecisionEmergency:
			return DecisionEmergency
		case DecisionUrgent:
			return DecisionUrgent
		case DecisionNonUrgent:
			return DecisionNonUrgent
		case DecisionSelfCare:
			return DecisionSelfCare
		}
	}
	return scanDecision(raw)
}

// nonUrgentMask removes the NON_URGENT spellings before the URGENT check:
// NON_URGENT contains URGENT as a substring, and a clean non-urgent answer
// must not be read as urgent.
var nonUrgentMask = strings.NewReplacer(
	"NON_URGENT", "",
	"NON-URGENT", "",
	"NON URGENT", "",
	"NONURGENT", "",
)

// scanDecision searches the reply for severity bands in strict priority
// order: EMERGENCY before URGENT before NON_URGENT, defaulting to SELF_CARE.
// Ambiguous output mentioning several bands always resolves toward the more
// urgent one; that ordering is a safety requirement, not a style choice.
func scanDecision(raw string) TriageDecision {
	u := strings.ToUpper(raw)
	if strings.Contains(u, string(DecisionEmergency)) {
		return DecisionEmergency
	}
	if strings.Contains(nonUrgentMask.Replace(u), string(DecisionUrgent)) {
		return DecisionUrgent
	}
	if u != nonUrgentMask.Replace(u) {
		return DecisionNonUrgent
	}
	return DecisionSelfCare
}

func cutField(line, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
