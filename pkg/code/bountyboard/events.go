package bountyboard

import (
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/bounty-board/pkg/metrics"
	sync_util "github.com/code-payments/bounty-board/pkg/sync"
)

type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeBoardInitialized
	EventTypeBountyInitialized
	EventTypeDeposited
	EventTypeBountyClosed
	EventTypeBountySent
)

func (t EventType) String() string {
	switch t {
	case EventTypeBoardInitialized:
		return "board_initialized"
	case EventTypeBountyInitialized:
		return "bounty_initialized"
	case EventTypeDeposited:
		return "deposited"
	case EventTypeBountyClosed:
		return "bounty_closed"
	case EventTypeBountySent:
		return "bounty_sent"
	}
	return "unknown"
}

// Event describes a committed state transition. Fields that don't apply to
// the event type are left empty.
type Event struct {
	Type EventType

	BoardId      uint32
	BountyNumber uint32

	Board     ed25519.PublicKey
	Bounty    ed25519.PublicKey
	Authority ed25519.PublicKey

	Amount       uint64
	Total        uint64
	BountyHunter string

	CreatedAt time.Time
}

// key is the ordering domain of an event. Events for the same board or bounty
// are emitted in commit order, and the async emitter preserves that order per
// key.
func (e *Event) key() []byte {
	if len(e.Bounty) > 0 {
		return e.Bounty
	}
	return e.Board
}

func (e *Event) fields() map[string]interface{} {
	kvPairs := map[string]interface{}{
		"event_type": e.Type.String(),
		"board_id":   e.BoardId,
		"board":      base58.Encode(e.Board),
		"authority":  base58.Encode(e.Authority),
	}
	if len(e.Bounty) > 0 {
		kvPairs["bounty_number"] = e.BountyNumber
		kvPairs["bounty"] = base58.Encode(e.Bounty)
	}
	switch e.Type {
	case EventTypeDeposited:
		kvPairs["amount"] = e.Amount
		kvPairs["total"] = e.Total
	case EventTypeBountySent:
		kvPairs["amount"] = e.Amount
	}
	if len(e.BountyHunter) > 0 {
		kvPairs["bounty_hunter"] = e.BountyHunter
	}
	return kvPairs
}

// Emitter receives events after the state transition they describe has been
// committed. Emit is called while the transition's accounts are still locked,
// so it must not block for long.
type Emitter interface {
	Emit(ctx context.Context, event *Event)
}

type logEmitter struct {
	log *logrus.Entry
}

// NewLogEmitter returns an Emitter that logs every event and records it as a
// New Relic custom event.
func NewLogEmitter() Emitter {
	return &logEmitter{
		log: logrus.StandardLogger().WithField("type", "bountyboard/log_emitter"),
	}
}

// Emit implements Emitter.Emit
func (e *logEmitter) Emit(ctx context.Context, event *Event) {
	kvPairs := event.fields()
	e.log.WithFields(logrus.Fields(kvPairs)).Info("bounty board event")
	metrics.RecordEvent(ctx, "BountyBoardEvent", kvPairs)
}

// AsyncEmitter forwards events to a delegate Emitter from a pool of workers,
// without blocking the instruction that produced them.
type AsyncEmitter struct {
	log      *logrus.Entry
	delegate Emitter
	channels *sync_util.StripedChannel

	workers sync.WaitGroup
}

type asyncEvent struct {
	ctx   context.Context
	event *Event
}

// NewAsyncEmitter returns a started AsyncEmitter. Close must be called to
// drain pending events.
func NewAsyncEmitter(delegate Emitter, workers, queueSize uint) *AsyncEmitter {
	e := &AsyncEmitter{
		log:      logrus.StandardLogger().WithField("type", "bountyboard/async_emitter"),
		delegate: delegate,
		channels: sync_util.NewStripedChannel(workers, queueSize),
	}

	for _, channel := range e.channels.GetChannels() {
		e.workers.Add(1)

		go func(channel <-chan interface{}) {
			defer e.workers.Done()

			for value := range channel {
				queued := value.(*asyncEvent)
				e.delegate.Emit(queued.ctx, queued.event)
			}
		}(channel)
	}

	return e
}

// Emit implements Emitter.Emit. Events are dropped when the worker's queue is
// full.
func (e *AsyncEmitter) Emit(ctx context.Context, event *Event) {
	queued := &asyncEvent{
		ctx:   context.WithoutCancel(ctx),
		event: event,
	}

	if !e.channels.Send(event.key(), queued) {
		e.log.WithField("event_type", event.Type.String()).Warn("event queue is full, dropping event")
	}
}

// Close stops accepting events and waits for queued events to be delivered.
func (e *AsyncEmitter) Close() {
	e.channels.Close()
	e.workers.Wait()
}
