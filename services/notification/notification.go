// Package notification implements the Notifications core service
// (spec.md §4.2.4): show/close/list with dedup by id+tag, rate-limited
// per golang.org/x/time/rate the way the teacher's budget-aware services
// throttle bursts.
package notification

import (
	"sync"

	"github.com/teranos/qntx-runtime/rterr"
	"golang.org/x/time/rate"
)

// Notification is one shown notification.
type Notification struct {
	ID    string
	Tag   string
	Title string
	Body  string
}

// Service owns the active-notifications table.
type Service struct {
	mu      sync.Mutex
	active  map[string]*Notification // keyed by id+"\x00"+tag
	limiter *rate.Limiter
}

// New constructs a Notifications service. showsPerSecond bounds how
// often Show may succeed, guarding against a runaway web page spamming
// the OS notification center.
func New(showsPerSecond float64) *Service {
	return &Service{
		active:  make(map[string]*Notification),
		limiter: rate.NewLimiter(rate.Limit(showsPerSecond), int(showsPerSecond)+1),
	}
}

func dedupKey(id, tag string) string { return id + "\x00" + tag }

// Show implements notification.show. A duplicate (same id+tag) replaces
// the prior entry rather than producing a second OS notification.
func (s *Service) Show(n Notification) error {
	if !s.limiter.Allow() {
		return rterr.BadRequest("notification rate limit exceeded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[dedupKey(n.ID, n.Tag)] = &n
	return nil
}

// Close implements notification.close.
func (s *Service) Close(id, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dedupKey(id, tag)
	if _, ok := s.active[key]; !ok {
		return rterr.NotFound("no notification %s/%s", id, tag)
	}
	delete(s.active, key)
	return nil
}

// List implements notification.list.
func (s *Service) List() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, 0, len(s.active))
	for _, n := range s.active {
		out = append(out, *n)
	}
	return out
}
