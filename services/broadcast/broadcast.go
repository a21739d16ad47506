// Package broadcast implements the BroadcastChannel core service
// (spec.md §4.2.4): scope keyed by (name, origin), subscribe returns an
// id, postMessage fans out to every other subscriber.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/teranos/qntx-runtime/rterr"
)

type scopeKey struct {
	name   string
	origin string
}

type subscriber struct {
	id      uint64
	deliver func(message []byte)
}

// Service owns the scope -> subscriber-list table.
type Service struct {
	mu     sync.Mutex
	scopes map[scopeKey][]*subscriber
	nextID uint64
}

// New constructs a BroadcastChannel service.
func New() *Service {
	return &Service{scopes: make(map[scopeKey][]*subscriber)}
}

// Subscribe implements broadcast_channel.subscribe, returning an id used
// both to unsubscribe and to exclude the sender from its own fan-out.
func (s *Service) Subscribe(name, origin string, deliver func(message []byte)) uint64 {
	id := atomic.AddUint64(&s.nextID, 1)
	key := scopeKey{name, origin}
	sub := &subscriber{id: id, deliver: deliver}

	s.mu.Lock()
	s.scopes[key] = append(s.scopes[key], sub)
	s.mu.Unlock()
	return id
}

// Unsubscribe implements broadcast_channel.unsubscribe.
func (s *Service) Unsubscribe(name, origin string, id uint64) error {
	key := scopeKey{name, origin}
	s.mu.Lock()
	defer s.mu.Unlock()
	subs, ok := s.scopes[key]
	if !ok {
		return rterr.NotFound("no broadcast scope %s/%s", name, origin)
	}
	for i, sub := range subs {
		if sub.id == id {
			s.scopes[key] = append(subs[:i], subs[i+1:]...)
			return nil
		}
	}
	return rterr.NotFound("no subscriber %d on scope %s/%s", id, name, origin)
}

// PostMessage implements broadcast_channel's fan-out: delivers to every
// subscriber on the scope except senderID. Reports NotFoundError if
// there are no other subscribers (spec.md §4.2.4).
func (s *Service) PostMessage(name, origin string, senderID uint64, message []byte) error {
	key := scopeKey{name, origin}
	s.mu.Lock()
	subs := append([]*subscriber(nil), s.scopes[key]...)
	s.mu.Unlock()

	delivered := 0
	for _, sub := range subs {
		if sub.id == senderID {
			continue
		}
		sub.deliver(message)
		delivered++
	}
	if delivered == 0 {
		return rterr.NotFound("no subscribers on scope %s/%s", name, origin)
	}
	return nil
}
