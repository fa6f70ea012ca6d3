package sync

import (
	"fmt"
	"sync"
)

const (
	hashEntriesPerChannel = 200
)

// StripedChannel is a partitioned channel that consistently maps a key space
// to a set of channels. Values sent with the same key are received in order
// by a single receiver.
type StripedChannel struct {
	channels []chan interface{}
	hashRing *ring

	stateMu sync.RWMutex
	closed  bool
}

// NewStripedChannel returns a new StripedChannel with a static number of
// channels.
func NewStripedChannel(count, queueSize uint) *StripedChannel {
	if count == 0 {
		count = 1
	}

	channels := make([]chan interface{}, count)

	ringEntries := make(map[string]interface{})
	for i := range channels {
		channels[i] = make(chan interface{}, queueSize)
		ringEntries[fmt.Sprintf("chan%d", i)] = i
	}

	return &StripedChannel{
		channels: channels,
		hashRing: newRing(ringEntries, hashEntriesPerChannel),
	}
}

// GetChannels returns the set of all receiver channels.
func (c *StripedChannel) GetChannels() []<-chan interface{} {
	receivers := make([]<-chan interface{}, len(c.channels))
	for i, channel := range c.channels {
		receivers[i] = channel
	}
	return receivers
}

// Send sends the value to the channel that maps to the key. It is non-blocking
// and returns whether the value was put on the channel. Sends after Close are
// rejected.
func (c *StripedChannel) Send(key []byte, value interface{}) bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	if c.closed {
		return false
	}

	sharded := c.hashRing.shard(key).(int)
	select {
	case c.channels[sharded] <- value:
	default:
		return false
	}
	return true
}

// Close closes all underlying channels. It is safe to call more than once.
func (c *StripedChannel) Close() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	for _, channel := range c.channels {
		close(channel)
	}
}
