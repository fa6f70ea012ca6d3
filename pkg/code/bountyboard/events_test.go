package bountyboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/bounty-board/pkg/pointer"
	"github.com/code-payments/bounty-board/pkg/testutil"
)

func TestEvents_Fields(t *testing.T) {
	env := setup(t)

	authority := env.newUser(t, env.mint, 50)
	hunter := env.newUser(t, env.mint, 0)

	require.NoError(t, env.initializeBoard(t, 7, env.mint, authority.key))
	require.NoError(t, env.initializeBounty(t, 7, 3, env.mint, authority.key))
	require.NoError(t, env.deposit(t, 7, 3, authority, 20))
	require.NoError(t, env.deposit(t, 7, 3, authority, 30))
	require.NoError(t, env.closeBounty(t, 7, 3, pointer.String("hunter"), authority.key))
	require.NoError(t, env.sendBounty(t, 7, 3, "hunter", hunter, authority.key))

	// Failed instructions never produce events
	assert.Error(t, env.deposit(t, 7, 3, authority, 1))

	events := env.emitter.events
	require.Len(t, events, 6)

	board, bounty, _, _, _, err := deriveAddresses(7, 3)
	require.NoError(t, err)

	assert.Equal(t, EventTypeBoardInitialized, events[0].Type)
	assert.EqualValues(t, 7, events[0].BoardId)
	assert.EqualValues(t, board, events[0].Board)
	assert.Empty(t, events[0].Bounty)
	assert.EqualValues(t, authority.key, events[0].Authority)

	for _, event := range events[1:] {
		assert.EqualValues(t, 3, event.BountyNumber)
		assert.EqualValues(t, bounty, event.Bounty)
		assert.False(t, event.CreatedAt.IsZero())
	}

	assert.EqualValues(t, 20, events[2].Amount)
	assert.EqualValues(t, 20, events[2].Total)
	assert.EqualValues(t, 30, events[3].Amount)
	assert.EqualValues(t, 50, events[3].Total)

	assert.Equal(t, "hunter", events[4].BountyHunter)

	assert.Equal(t, EventTypeBountySent, events[5].Type)
	assert.EqualValues(t, 50, events[5].Amount)
	assert.EqualValues(t, hunter.key, events[5].Authority)

	kvPairs := events[3].fields()
	assert.Equal(t, "deposited", kvPairs["event_type"])
	assert.EqualValues(t, 30, kvPairs["amount"])
	assert.EqualValues(t, 50, kvPairs["total"])
	assert.NotContains(t, kvPairs, "bounty_hunter")
}

func TestAsyncEmitter_OrderedPerBounty(t *testing.T) {
	delegate := &recordingEmitter{}
	emitter := NewAsyncEmitter(delegate, 4, 1024)

	bounties := [][]byte{
		testutil.NewRandomKey(t),
		testutil.NewRandomKey(t),
		testutil.NewRandomKey(t),
	}

	for i := 0; i < 100; i++ {
		for _, bounty := range bounties {
			emitter.Emit(context.Background(), &Event{
				Type:   EventTypeDeposited,
				Bounty: bounty,
				Total:  uint64(i),
			})
		}
	}
	emitter.Close()

	require.Len(t, delegate.events, 300)

	next := make(map[string]uint64)
	for _, event := range delegate.events {
		key := string(event.Bounty)
		assert.Equal(t, next[key], event.Total)
		next[key]++
	}
	for _, bounty := range bounties {
		assert.EqualValues(t, 100, next[string(bounty)])
	}
}

func TestAsyncEmitter_DropsWhenFull(t *testing.T) {
	blocked := make(chan struct{})
	delegate := &blockingEmitter{
		recordingEmitter: &recordingEmitter{},
		unblock:          blocked,
	}
	emitter := NewAsyncEmitter(delegate, 1, 1)

	bounty := testutil.NewRandomKey(t)
	for i := 0; i < 10; i++ {
		emitter.Emit(context.Background(), &Event{
			Type:   EventTypeDeposited,
			Bounty: bounty,
		})
	}

	close(blocked)
	emitter.Close()

	// At most one event is being delivered and one is queued
	events := delegate.getEventTypes()
	assert.NotEmpty(t, events)
	assert.True(t, len(events) <= 2)
}

type blockingEmitter struct {
	*recordingEmitter
	unblock chan struct{}
}

func (e *blockingEmitter) Emit(ctx context.Context, event *Event) {
	<-e.unblock
	e.recordingEmitter.Emit(ctx, event)
}
