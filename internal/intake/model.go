package intake

import (
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is a single role-tagged message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Dimension is one of the six OPQRST history-taking dimensions.
type Dimension string

const (
	DimensionOnset       Dimension = "onset"
	DimensionProvocation Dimension = "provocation"
	DimensionQuality     Dimension = "quality"
	DimensionRadiation   Dimension = "radiation"
	DimensionSeverity    Dimension = "severity"
	DimensionTiming      Dimension = "timing"
)

// DimensionOrder is the fixed interview order. The controller always probes
// the first incomplete dimension in this order, so question ordering is
// repeatable across restarts.
var DimensionOrder = [6]Dimension{
	DimensionOnset,
	DimensionProvocation,
	DimensionQuality,
	DimensionRadiation,
	DimensionSeverity,
	DimensionTiming,
}

// StageStatus tracks which OPQRST dimensions have been fully covered.
// Flags only ever move from false to true.
type StageStatus struct {
	Onset       bool `json:"onset"`
	Provocation bool `json:"provocation"`
	Quality     bool `json:"quality"`
	Radiation   bool `json:"radiation"`
	Severity    bool `json:"severity"`
	Timing      bool `json:"timing"`
}

// Complete reports whether every dimension has been covered.
func (s StageStatus) Complete() bool {
	return s.Onset && s.Provocation && s.Quality && s.Radiation && s.Severity && s.Timing
}

// Next returns the first incomplete dimension in interview order.
func (s StageStatus) Next() (Dimension, bool) {
	for _, d := range DimensionOrder {
		if !s.Done(d) {
			return d, true
		}
	}
	return "", false
}

// Done reports whether a single dimension has been covered.
func (s StageStatus) Done(d Dimension) bool {
	switch d {
	case DimensionOnset:
		return s.Onset
	case DimensionProvocation:
		return s.Provocation
	case DimensionQuality:
		return s.Quality
	case DimensionRadiation:
		return s.Radiation
	case DimensionSeverity:
		return s.Severity
	case DimensionTiming:
		return s.Timing
	}
	return false
}

// Mark flips a dimension to covered.
func (s *StageStatus) Mark(d Dimension) {
	switch d {
	case DimensionOnset:
		s.Onset = true
	case DimensionProvocation:
		s.Provocation = true
	case DimensionQuality:
		s.Quality = true
	case DimensionRadiation:
		s.Radiation = true
	case DimensionSeverity:
		s.Severity = true
	case DimensionTiming:
		s.Timing = true
	}
}

// TriageDecision is one of the four severity bands, most to least severe.
type TriageDecision string

const (
	DecisionEmergency TriageDecision = "EMERGENCY"
	DecisionUrgent    TriageDecision = "URGENT"
	DecisionNonUrgent TriageDecision = "NON_URGENT"
	DecisionSelfCare  TriageDecision = "SELF_CARE"
)

// TriageResult is the outcome of the assessment stage. Immutable once set.
type TriageResult struct {
	Decision   TriageDecision `json:"decision"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
}

// MedicalData is the outcome of the extraction stage. Immutable once set.
type MedicalData struct {
	StructuredData map[string]interface{} `json:"structured_data"`
	RawText        string                 `json:"raw_text"`
}

// SuggestionMetadata bundles the upstream stage outputs into a case suggestion.
type SuggestionMetadata struct {
	TriageAssessment *TriageResult `json:"triage_assessment"`
	MedicalData      *MedicalData  `json:"medical_data"`
}

// CaseSuggestion is the terminal stage's case-creation proposal. It is
// re-synthesized from the immutable stage outputs on every terminal turn.
type CaseSuggestion struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	Priority    string             `json:"priority"`
	Metadata    SuggestionMetadata `json:"metadata"`
}

// ConversationState is the persisted progress of one intake conversation,
// keyed by thread id. It is read-modify-written on every turn.
type ConversationState struct {
	ThreadID     string        `json:"thread_id"`
	Messages     []Turn        `json:"messages"`
	StageStatus  StageStatus   `json:"stage_status"`
	TriageResult *TriageResult `json:"triage_result,omitempty"`
	MedicalData  *MedicalData  `json:"medical_data,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewConversationState returns an empty state for a fresh thread.
func NewConversationState(threadID string) *ConversationState {
	now := time.Now().UTC()
	return &ConversationState{
		ThreadID:  threadID,
		Messages:  []Turn{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone deep-copies the state. The controller mutates only the clone, so a
// failed turn can hand the caller's state back untouched.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = make([]Turn, len(s.Messages))
	copy(c.Messages, s.Messages)
	if s.TriageResult != nil {
		tr := *s.TriageResult
		c.TriageResult = &tr
	}
	if s.MedicalData != nil {
		md := *s.MedicalData
		md.StructuredData = make(map[string]interface{}, len(s.MedicalData.StructuredData))
		for k, v := range s.MedicalData.StructuredData {
			md.StructuredData[k] = v
		}
		c.MedicalData = &md
	}
	return &c
}

// StageType tags the controller's per-turn result.
type StageType string

const (
	StageInterview   StageType = "opqrst_interview"
	StageAssess      StageType = "assess_medical"
	StageExtract     StageType = "extract_medical_data"
	StagePrepareCase StageType = "prepare_case"
	StageError       StageType = "error"
)

// StageResult is the tagged outcome of a single controller invocation.
// Exactly one of the optional fields is set, matching Type.
type StageResult struct {
	Type         StageType       `json:"type"`
	Message      string          `json:"message"`
	CurrentFocus Dimension       `json:"current_focus,omitempty"`
	Result       *TriageResult   `json:"result,omitempty"`
	Data         *MedicalData    `json:"data,omitempty"`
	Suggestion   *CaseSuggestion `json:"suggestion,omitempty"`
}
