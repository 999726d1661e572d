package broadcast

import (
	"sync"
)

// Bus is a publish/subscribe channel shared by every window of one session
type Bus interface {
	Publish(msg Message)
	Subscribe(topic Topic) *Subscription
}

// Subscription receives the messages published on one topic. Messages from
// one publisher arrive in send order. Close must be called to release it.
type Subscription struct {
	topic  Topic
	out    chan Message
	bus    *MemoryBus
	mu     sync.Mutex
	queue  []Message
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

// C returns the delivery channel. It is closed after Close.
func (s *Subscription) C() <-chan Message {
	return s.out
}

// Topic returns the subscribed topic
func (s *Subscription) Topic() Topic {
	return s.topic
}

func (s *Subscription) enqueue(msg Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump moves queued messages to out so publishers never block on a slow reader.
func (s *Subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		msg := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- msg:
		case <-s.done:
			return
		}
	}
}

// Close detaches the subscription from its bus. It is safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	s.mu.Unlock()

	s.bus.remove(s)
	close(s.done)
}

// MemoryBus is the in-process Bus implementation
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[Topic]map[*Subscription]struct{}
	closed bool
}

// NewMemoryBus creates an empty bus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subs: make(map[Topic]map[*Subscription]struct{}),
	}
}

// Publish delivers msg to every current subscriber of its topic, including
// subscriptions owned by the publishing window; receivers filter by origin.
func (b *MemoryBus) Publish(msg Message) {
	if msg == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for sub := range b.subs[msg.Topic()] {
		sub.enqueue(msg)
	}
}

// Subscribe registers a new subscription on topic. Subscribing to a closed bus
// returns an already-closed subscription.
func (b *MemoryBus) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		out:   make(chan Message),
		bus:   b,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go sub.pump()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.Close()
		return sub
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*Subscription]struct{})
	}
	b.subs[topic][sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

func (b *MemoryBus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[sub.topic], sub)
}

// Subscribers returns the number of live subscriptions on topic
func (b *MemoryBus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Close closes every subscription and drops later publishes
func (b *MemoryBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	var subs []*Subscription
	for _, set := range b.subs {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}
