package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medical-intake-agent/internal/llm"
)

// ErrStageSelection signals a corrupted conversation record: the stage flags
// claim the interview is incomplete but no unset dimension exists. The turn
// must fail loudly rather than risk a clinically wrong follow-up.
var ErrStageSelection = errors.New("stage selection failed: stage status inconsistent")

const (
	conversationalTemp  float32 = 0.7
	deterministicTemp   float32 = 0
	interviewMaxTokens          = 300
	assessmentMaxTokens         = 500
	extractionMaxTokens         = 800
)

// Controller drives one conversation through the intake pipeline:
// six OPQRST interview dimensions in fixed order, then triage assessment,
// then structured extraction, then the case-creation proposal. At most one
// stage advances per invocation.
//
// Invoke is a pure function of (previous state, new messages): it never
// touches external state beyond the single completion call, and on any
// collaborator failure it returns the caller's state unchanged so the same
// turn can be retried.
type Controller struct {
	completer llm.Completer
}

func NewController(completer llm.Completer) *Controller {
	return &Controller{completer: completer}
}

// Invoke appends newMessages to prev, runs exactly one pipeline stage and
// returns the turn's result plus the next state for the caller to persist.
// prev may be nil for a brand-new thread.
func (c *Controller) Invoke(ctx context.Context, prev *ConversationState, newMessages []Turn) (*StageResult, *ConversationState, error) {
	if prev == nil {
		prev = NewConversationState("")
	}

	// Work on a deep copy; prev stays untouched so a failed turn commits
	// nothing. The persisted record is authoritative for stage outputs.
	next := prev.Clone()
	next.Messages = append(next.Messages, newMessages...)

	switch {
	case !next.StageStatus.Complete():
		return c.runInterview(ctx, prev, next)
	case next.TriageResult == nil:
		return c.runTriage(ctx, prev, next)
	case next.MedicalData == nil:
		return c.runExtraction(ctx, prev, next)
	default:
		return c.prepareCase(next)
	}
}

// runInterview probes the first incomplete dimension. The dimension is
// marked covered only when the task's reply carries the completion marker;
// the marker is stripped before the message is surfaced.
func (c *Controller) runInterview(ctx context.Context, prev, next *ConversationState) (*StageResult, *ConversationState, error) {
	dim, ok := next.StageStatus.Next()
	if !ok {
		// Complete() said no, Next() says yes: the record is corrupt.
		return &StageResult{Type: StageError, Message: stateErrorMessage}, prev, ErrStageSelection
	}

	reply, err := c.completer.Complete(ctx, interviewPrompt(dim), toLLMMessages(next.Messages), llm.Options{
		Temperature: conversationalTemp,
		MaxTokens:   interviewMaxTokens,
	})
	if err != nil {
		return nil, prev, fmt.Errorf("interview task (%s): %w", dim, err)
	}

	message := strings.TrimSpace(reply)
	if summary, found := strings.CutPrefix(message, CompleteMarker); found {
		next.StageStatus.Mark(dim)
		message = strings.TrimSpace(summary)
	}

	next.Messages = append(next.Messages, Turn{Role: RoleAssistant, Content: message})
	return &StageResult{
		Type:         StageInterview,
		Message:      message,
		CurrentFocus: dim,
	}, next, nil
}

// runTriage classifies the completed interview into a severity band. Runs
// once per conversation; the result is immutable afterwards.
func (c *Controller) runTriage(ctx context.Context, prev, next *ConversationState) (*StageResult, *ConversationState, error) {
	raw, err := c.completer.Complete(ctx, triagePrompt, toLLMMessages(next.Messages), llm.Options{
		Temperature: deterministicTemp,
		MaxTokens:   assessmentMaxTokens,
	})
	if err != nil {
		return nil, prev, fmt.Errorf("triage task: %w", err)
	}

	result := parseTriageResult(raw)
	next.TriageResult = &result

	message := result.Reasoning
	if result.Decision == DecisionEmergency {
		message = emergencyBanner + "\n\n" + result.Reasoning
	}

	next.Messages = append(next.Messages, Turn{Role: RoleAssistant, Content: message})
	return &StageResult{
		Type:    StageAssess,
		Message: message,
		Result:  &result,
	}, next, nil
}

// runExtraction pulls the structured intake payload out of the transcript.
// Runs once per conversation; the result is immutable afterwards.
func (c *Controller) runExtraction(ctx context.Context, prev, next *ConversationState) (*StageResult, *ConversationState, error) {
	raw, err := c.completer.Complete(ctx, extractionPrompt, toLLMMessages(next.Messages), llm.Options{
		Temperature: deterministicTemp,
		MaxTokens:   extractionMaxTokens,
	})
	if err != nil {
		return nil, prev, fmt.Errorf("extraction task: %w", err)
	}

	data := parseMedicalData(raw)
	next.MedicalData = &data

	next.Messages = append(next.Messages, Turn{Role: RoleAssistant, Content: extractionConfirmation})
	return &StageResult{
		Type:    StageExtract,
		Message: extractionConfirmation,
		Data:    &data,
	}, next, nil
}

// prepareCase is the terminal stage: it re-synthesizes the case suggestion
// from the immutable triage and extraction outputs. No completion call is
// made, so repeating it always yields the same suggestion.
func (c *Controller) prepareCase(next *ConversationState) (*StageResult, *ConversationState, error) {
	suggestion := BuildSuggestion(next)
	next.Messages = append(next.Messages, Turn{Role: RoleAssistant, Content: casePreparedMessage})
	return &StageResult{
		Type:       StagePrepareCase,
		Message:    casePreparedMessage,
		Suggestion: suggestion,
	}, next, nil
}

func toLLMMessages(turns []Turn) []llm.Message {
	out := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, llm.Message{Role: string(t.Role), Content: t.Content})
	}
	return out
}
