package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu     sync.Mutex
	states map[string]*ConversationState
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: make(map[string]*ConversationState)}
}

func (s *fakeStore) Get(ctx context.Context, threadID string) (*ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[threadID]
	if !ok {
		return nil, ErrThreadNotFound
	}
	return state.Clone(), nil
}

func (s *fakeStore) Put(ctx context.Context, state *ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ThreadID] = state.Clone()
	return nil
}

func (s *fakeStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []*ConversationState
}

func (n *fakeNotifier) NotifyEmergency(ctx context.Context, state *ConversationState) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, state)
	return nil
}

func (n *fakeNotifier) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type fakeCaseCreator struct {
	mu         sync.Mutex
	lastThread string
	lastSug    *CaseSuggestion
	err        error
}

func (f *fakeCaseCreator) CreateCase(ctx context.Context, threadID string, sug *CaseSuggestion) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.lastThread = threadID
	f.lastSug = sug
	return "case-123", nil
}

func newTestService(fake *scriptedCompleter) (*Service, *fakeStore, *fakeNotifier, *fakeCaseCreator) {
	st := newFakeStore()
	nt := &fakeNotifier{}
	cc := &fakeCaseCreator{}
	svc := NewService(st, NewController(fake), cc, nt, 2)
	return svc, st, nt, cc
}

func TestHandleMessageStartsNewThread(t *testing.T) {
	fake := &scriptedCompleter{}
	fake.push("When did it start?")
	svc, st, _, _ := newTestService(fake)

	result, state, err := svc.HandleMessage(context.Background(), "", "I feel dizzy")
	require.NoError(t, err)

	assert.Equal(t, StageInterview, result.Type)
	assert.NotEmpty(t, state.ThreadID)
	assert.Equal(t, 1, st.len())

	persisted, err := st.Get(context.Background(), state.ThreadID)
	require.NoError(t, err)
	assert.Len(t, persisted.Messages, 2)
}

func TestHandleMessageRetriesCollaboratorFailure(t *testing.T) {
	fake := &scriptedCompleter{}
	fake.pushErr(errors.New("upstream timeout"))
	fake.push("When did it start?")
	svc, _, _, _ := newTestService(fake)

	result, _, err := svc.HandleMessage(context.Background(), "t-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, StageInterview, result.Type)
	assert.Equal(t, 2, fake.callCount())
}

func TestHandleMessagePersistsNothingOnExhaustedRetries(t *testing.T) {
	fake := &scriptedCompleter{}
	for i := 0; i < 5; i++ {
		fake.pushErr(errors.New("upstream down"))
	}
	svc, st, _, _ := newTestService(fake)

	_, _, err := svc.HandleMessage(context.Background(), "t-1", "hello")
	require.Error(t, err)
	assert.Equal(t, 0, st.len())
	// maxRetries=2 means the initial attempt plus two retries.
	assert.Equal(t, 3, fake.callCount())
}

func TestEmergencyTriageTriggersHandoff(t *testing.T) {
	fake := &scriptedCompleter{}
	fake.push("DECISION: EMERGENCY\nCONFIDENCE: 0.95\nREASONING: Call emergency services.")
	svc, st, nt, _ := newTestService(fake)

	seed := completedInterviewState()
	require.NoError(t, st.Put(context.Background(), seed))

	result, _, err := svc.HandleMessage(context.Background(), seed.ThreadID, "ok")
	require.NoError(t, err)
	assert.Equal(t, StageAssess, result.Type)

	require.Eventually(t, func() bool { return nt.callCount() == 1 }, time.Second, 10*time.Millisecond)
	nt.mu.Lock()
	defer nt.mu.Unlock()
	require.NotNil(t, nt.calls[0].TriageResult)
	assert.Equal(t, DecisionEmergency, nt.calls[0].TriageResult.Decision)
}

func TestNonEmergencyTriageDoesNotPage(t *testing.T) {
	fake := &scriptedCompleter{}
	fake.push("DECISION: SELF_CARE\nCONFIDENCE: 0.7\nREASONING: Rest at home.")
	svc, st, nt, _ := newTestService(fake)

	seed := completedInterviewState()
	require.NoError(t, st.Put(context.Background(), seed))

	_, _, err := svc.HandleMessage(context.Background(), seed.ThreadID, "ok")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, nt.callCount())
}

func TestConfirmCase(t *testing.T) {
	fake := &scriptedCompleter{}
	svc, st, _, cc := newTestService(fake)

	seed := fullState(DecisionEmergency)
	require.NoError(t, st.Put(context.Background(), seed))

	caseID, suggestion, err := svc.ConfirmCase(context.Background(), seed.ThreadID)
	require.NoError(t, err)

	assert.Equal(t, "case-123", caseID)
	assert.Equal(t, CategoryEmergency, suggestion.Category)
	assert.Equal(t, seed.ThreadID, cc.lastThread)
}

func TestConfirmCaseBeforePipelineCompletes(t *testing.T) {
	fake := &scriptedCompleter{}
	svc, st, _, _ := newTestService(fake)

	seed := completedInterviewState() // no triage result yet
	require.NoError(t, st.Put(context.Background(), seed))

	_, _, err := svc.ConfirmCase(context.Background(), seed.ThreadID)
	assert.ErrorIs(t, err, ErrCaseNotReady)
}

func TestConfirmCaseUnknownThread(t *testing.T) {
	fake := &scriptedCompleter{}
	svc, _, _, _ := newTestService(fake)

	_, _, err := svc.ConfirmCase(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestThreadsAreIndependent(t *testing.T) {
	fake := &scriptedCompleter{}
	fake.push("q1", "q2")
	svc, st, _, _ := newTestService(fake)

	_, s1, err := svc.HandleMessage(context.Background(), "a", "hello")
	require.NoError(t, err)
	_, s2, err := svc.HandleMessage(context.Background(), "b", "hi there")
	require.NoError(t, err)

	assert.NotEqual(t, s1.ThreadID, s2.ThreadID)
	assert.Equal(t, 2, st.len())
}
