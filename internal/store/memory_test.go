package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-intake-agent/internal/intake"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	state := intake.NewConversationState("t-1")
	state.Messages = append(state.Messages, intake.Turn{Role: intake.RoleUser, Content: "hello"})
	state.StageStatus.Mark(intake.DimensionOnset)

	require.NoError(t, s.Put(context.Background(), state))

	got, err := s.Get(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", got.ThreadID)
	assert.True(t, got.StageStatus.Onset)
	require.Len(t, got.Messages, 1)
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, intake.ErrThreadNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	state := intake.NewConversationState("t-1")
	state.Messages = append(state.Messages, intake.Turn{Role: intake.RoleUser, Content: "original"})
	require.NoError(t, s.Put(context.Background(), state))

	// Mutating what Put received or Get returned must not touch the record.
	state.Messages[0].Content = "mutated after put"

	first, err := s.Get(context.Background(), "t-1")
	require.NoError(t, err)
	first.Messages[0].Content = "mutated after get"
	first.StageStatus.Mark(intake.DimensionTiming)

	second, err := s.Get(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "original", second.Messages[0].Content)
	assert.False(t, second.StageStatus.Timing)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := NewMemoryStore(20 * time.Millisecond)
	defer s.Close()

	require.NoError(t, s.Put(context.Background(), intake.NewConversationState("t-1")))

	_, err := s.Get(context.Background(), "t-1")
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	_, err = s.Get(context.Background(), "t-1")
	assert.ErrorIs(t, err, intake.ErrThreadNotFound)
}

func TestMemoryStorePutRefreshesTTL(t *testing.T) {
	s := NewMemoryStore(40 * time.Millisecond)
	defer s.Close()

	state := intake.NewConversationState("t-1")
	require.NoError(t, s.Put(context.Background(), state))

	time.Sleep(25 * time.Millisecond)
	require.NoError(t, s.Put(context.Background(), state))

	time.Sleep(25 * time.Millisecond)
	_, err := s.Get(context.Background(), "t-1")
	assert.NoError(t, err)
}
