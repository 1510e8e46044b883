package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrThreadNotFound is returned by checkpoint stores for unknown thread ids.
var ErrThreadNotFound = errors.New("conversation thread not found")

// ErrCaseNotReady is returned when case creation is requested before the
// pipeline has produced both a triage result and extracted data.
var ErrCaseNotReady = errors.New("intake is not complete: no case suggestion available yet")

// CheckpointStore persists conversation state keyed by thread id. Per-key
// atomicity is all the controller needs; the service serializes writers.
type CheckpointStore interface {
	Get(ctx context.Context, threadID string) (*ConversationState, error)
	Put(ctx context.Context, state *ConversationState) error
}

// CaseCreator opens a downstream clinical case from a confirmed suggestion.
type CaseCreator interface {
	CreateCase(ctx context.Context, threadID string, suggestion *CaseSuggestion) (string, error)
}

// Notifier pages human staff when a conversation needs handoff.
type Notifier interface {
	NotifyEmergency(ctx context.Context, state *ConversationState) error
}

// Service wraps the stage controller with everything spec'd as the caller's
// responsibility: per-thread serialization of the read-modify-write cycle,
// bounded retry of collaborator failures, checkpoint persistence and the
// emergency handoff.
type Service struct {
	store      CheckpointStore
	controller *Controller
	cases      CaseCreator
	notifier   Notifier
	maxRetries uint64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(store CheckpointStore, controller *Controller, cases CaseCreator, notifier Notifier, maxRetries uint64) *Service {
	return &Service{
		store:      store,
		controller: controller,
		cases:      cases,
		notifier:   notifier,
		maxRetries: maxRetries,
		locks:      make(map[string]*sync.Mutex),
	}
}

// threadLock returns the mutex serializing all work on one thread id.
// Different threads are fully independent and run in parallel.
func (s *Service) threadLock(threadID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[threadID] = l
	}
	return l
}

// HandleMessage runs one intake turn: load the checkpoint, invoke the
// controller (retrying collaborator failures with capped backoff), persist
// the new state and fire the emergency handoff when triage just classified
// the situation as an emergency. An empty threadID starts a new thread.
func (s *Service) HandleMessage(ctx context.Context, threadID, content string) (*StageResult, *ConversationState, error) {
	if threadID == "" {
		threadID = uuid.NewString()
	}

	lock := s.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	prev, err := s.store.Get(ctx, threadID)
	if err != nil {
		if !errors.Is(err, ErrThreadNotFound) {
			return nil, nil, fmt.Errorf("load checkpoint: %w", err)
		}
		prev = NewConversationState(threadID)
	}

	turns := []Turn{{Role: RoleUser, Content: content}}

	var (
		result *StageResult
		next   *ConversationState
	)
	operation := func() error {
		r, n, err := s.controller.Invoke(ctx, prev, turns)
		if err != nil {
			if errors.Is(err, ErrStageSelection) {
				// Corrupted state never recovers by retrying.
				return backoff.Permanent(err)
			}
			log.Warn().Err(err).Str("thread_id", threadID).Msg("collaborator call failed, will retry")
			return err
		}
		result, next = r, n
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		// The previous state was never mutated; the caller may retry the
		// identical turn.
		return nil, prev, fmt.Errorf("intake turn for thread %s: %w", threadID, err)
	}

	next.ThreadID = threadID
	if err := s.store.Put(ctx, next); err != nil {
		return nil, prev, fmt.Errorf("persist checkpoint: %w", err)
	}

	if result.Type == StageAssess && result.Result != nil && result.Result.Decision == DecisionEmergency {
		s.handoff(next)
	}

	return result, next, nil
}

// handoff pages staff in the background so the patient's turn is not held
// up by the notifier. Failures are logged, never surfaced to the patient.
func (s *Service) handoff(state *ConversationState) {
	if s.notifier == nil {
		log.Warn().Str("thread_id", state.ThreadID).Msg("emergency triage with no notifier configured")
		return
	}
	snapshot := state.Clone()
	go func() {
		if err := s.notifier.NotifyEmergency(context.Background(), snapshot); err != nil {
			log.Error().Err(err).Str("thread_id", snapshot.ThreadID).Msg("emergency handoff notification failed")
			return
		}
		log.Info().Str("thread_id", snapshot.ThreadID).Msg("emergency handoff notification sent")
	}()
}

// GetState returns the persisted state for a thread.
func (s *Service) GetState(ctx context.Context, threadID string) (*ConversationState, error) {
	return s.store.Get(ctx, threadID)
}

// ConfirmCase opens a clinical case from the current suggestion. Only valid
// once the pipeline has reached its terminal stage.
func (s *Service) ConfirmCase(ctx context.Context, threadID string) (string, *CaseSuggestion, error) {
	lock := s.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.store.Get(ctx, threadID)
	if err != nil {
		return "", nil, err
	}
	if state.TriageResult == nil || state.MedicalData == nil {
		return "", nil, ErrCaseNotReady
	}

	suggestion := BuildSuggestion(state)
	if err := suggestion.Validate(); err != nil {
		return "", nil, fmt.Errorf("case suggestion invalid: %w", err)
	}

	caseID, err := s.cases.CreateCase(ctx, threadID, suggestion)
	if err != nil {
		return "", nil, fmt.Errorf("create case: %w", err)
	}
	log.Info().Str("thread_id", threadID).Str("case_id", caseID).Str("priority", suggestion.Priority).Msg("case created from intake")
	return caseID, suggestion, nil
}
