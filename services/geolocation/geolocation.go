// Package geolocation implements the Geolocation core service (spec.md
// §4.2.4): getCurrentPosition, watchPosition, clearWatch. The actual
// position fix comes from a host collaborator (native location API is
// out of scope per spec.md §1); this service manages watch lifecycle and
// id allocation.
package geolocation

import (
	"sync"
	"sync/atomic"

	"github.com/teranos/qntx-runtime/rterr"
)

// Position is a single location fix.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// Provider is the host collaborator producing actual position fixes.
type Provider interface {
	CurrentPosition() (Position, error)
	WatchPosition(onUpdate func(Position)) (cancel func(), err error)
}

// Service manages watches over a Provider.
type Service struct {
	provider Provider

	mu      sync.Mutex
	watches map[uint64]func()
	nextID  uint64
}

// New constructs a Geolocation service.
func New(provider Provider) *Service {
	return &Service{provider: provider, watches: make(map[uint64]func())}
}

// GetCurrentPosition implements geolocation.getCurrentPosition.
func (s *Service) GetCurrentPosition() (Position, error) {
	if s.provider == nil {
		return Position{}, rterr.NotSupported("no geolocation provider configured")
	}
	return s.provider.CurrentPosition()
}

// WatchPosition implements geolocation.watchPosition, returning a watch
// id usable with ClearWatch.
func (s *Service) WatchPosition(onUpdate func(Position)) (uint64, error) {
	if s.provider == nil {
		return 0, rterr.NotSupported("no geolocation provider configured")
	}
	cancel, err := s.provider.WatchPosition(onUpdate)
	if err != nil {
		return 0, rterr.Internal("watchPosition: %v", err)
	}
	id := atomic.AddUint64(&s.nextID, 1)
	s.mu.Lock()
	s.watches[id] = cancel
	s.mu.Unlock()
	return id, nil
}

// ClearWatch implements geolocation.clearWatch.
func (s *Service) ClearWatch(id uint64) error {
	s.mu.Lock()
	cancel, ok := s.watches[id]
	if ok {
		delete(s.watches, id)
	}
	s.mu.Unlock()
	if !ok {
		return rterr.NotFound("no geolocation watch %d", id)
	}
	cancel()
	return nil
}
