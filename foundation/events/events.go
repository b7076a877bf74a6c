// Package events allows for the registering and receiving of rendered
// messages by websocket clients.
package events

import (
	"fmt"
	"sync"
)

// messageBuffer is the number of messages a slow receiver may fall behind
// before messages to it are dropped.
const messageBuffer = 100

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive messages. The last message sent is kept so a
// newly registered receiver starts with the current state.
type Events struct {
	m    map[string]chan []byte
	last []byte
	mu   sync.RWMutex
}

// New constructs an events for registering and receiving messages.
func New() *Events {
	return &Events{
		m: make(map[string]chan []byte),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive messages.
func (evt *Events) Acquire(id string) <-chan []byte {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if exists {
		return ch
	}

	ch = make(chan []byte, messageBuffer)
	if evt.last != nil {
		ch <- evt.last
	}

	evt.m[id] = ch
	return ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)
	return nil
}

// Send signals a message to every registered channel. Send will not block
// waiting for a receiver on any given channel.
func (evt *Events) Send(msg []byte) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	evt.last = msg

	for _, ch := range evt.m {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Count returns the number of registered receivers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}
