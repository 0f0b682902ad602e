// Package notify publishes row change events on per-table channels.
package notify

import (
	"sync"
	"time"
	"unicode/utf8"
)

// MaxChannelLength is the longest channel name in bytes, longer names are
// truncated at a character boundary.
const MaxChannelLength = 63

// Channel returns the channel name of a table: {namespace}_{table}_changed.
func Channel(namespace, table string) string {
	channel := namespace + "_" + table + "_changed"
	if len(channel) > MaxChannelLength {
		// never split a multi-byte character
		n := MaxChannelLength
		for n > 0 && !utf8.RuneStart(channel[n]) {
			n--
		}
		channel = channel[:n]
	}
	return channel
}

type Event struct {
	Channel   string    `json:"channel"`
	Table     string    `json:"table"`
	Operation string    `json:"operation"`
	Identity  []string  `json:"identity"`
	Keys      int       `json:"keys"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscription receives the events of one channel in publish order. Events
// that do not fit in its buffer are dropped and counted.
type Subscription struct {
	C       <-chan Event
	c       chan Event
	channel string
	broker  *Broker
	dropped int64
	once    sync.Once
}

func (s *Subscription) Dropped() int64 {
	s.broker.mu.RLock()
	defer s.broker.mu.RUnlock()
	return s.dropped
}

// Close unsubscribes and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		defer s.broker.mu.Unlock()
		if subs := s.broker.channels[s.channel]; subs != nil {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.broker.channels, s.channel)
			}
		}
		close(s.c)
	})
}

// Broker is an in-memory fan-out. Publish never blocks on slow subscribers.
type Broker struct {
	mu       sync.RWMutex
	channels map[string]map[*Subscription]struct{}
	bufSize  int
}

func New(bufSize int) *Broker {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Broker{
		channels: map[string]map[*Subscription]struct{}{},
		bufSize:  bufSize,
	}
}

func (b *Broker) Subscribe(channel string) *Subscription {
	c := make(chan Event, b.bufSize)
	s := &Subscription{
		C:       c,
		c:       c,
		channel: channel,
		broker:  b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channels[channel] == nil {
		b.channels[channel] = map[*Subscription]struct{}{}
	}
	b.channels[channel][s] = struct{}{}

	return s
}

func (b *Broker) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	// write lock: sends must not race with Close
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.channels[e.Channel] {
		select {
		case s.c <- e:
		default:
			s.dropped++
		}
	}
}

func (b *Broker) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.channels[channel])
}
