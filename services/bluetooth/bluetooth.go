// Package bluetooth implements the Bluetooth core service (spec.md
// §4.2.4, §6.3): start/subscribe/publish over named service/characteristic
// pairs, gated on the permissions_allow_bluetooth config flag the same
// way the original gates its BluetoothDelegate behind a build-time
// permission (_examples/original_source/src/runtime/ipc/routes.cc
// application.start/subscribe/publish, ~lines 762-861). The actual radio
// is a host collaborator — no GUI toolkit or OS Bluetooth stack is
// implemented — so this service manages an in-memory registry of
// started services and their subscribers.
package bluetooth

import (
	"sync"

	"github.com/teranos/qntx-runtime/rterr"
)

// Adapter is the host collaborator that would actually drive the OS
// Bluetooth stack (CoreBluetooth, BlueZ, ...). Left as an interface
// because no GUI toolkit or real radio is wired in; a nil Adapter still
// lets Start/Subscribe/Publish exercise the registry and permission gate.
type Adapter interface {
	StartService(serviceID string) error
}

type subscription struct {
	serviceID        string
	characteristicID string
	onData           func(data []byte)
}

// Service owns the started-service registry and live subscriptions.
type Service struct {
	allowed bool
	adapter Adapter

	mu      sync.Mutex
	started map[string]bool
	nextSub uint64
	subs    map[uint64]subscription
}

// New constructs a Bluetooth service. allowed mirrors
// config.PermissionsConfig.AllowBluetooth: every operation fails with
// NotSupportedError when it is false, matching the original's
// permission-denied path for builds without Bluetooth enabled.
func New(allowed bool, adapter Adapter) *Service {
	return &Service{
		allowed: allowed,
		adapter: adapter,
		started: make(map[string]bool),
		subs:    make(map[uint64]subscription),
	}
}

func (s *Service) checkAllowed() error {
	if !s.allowed {
		return rterr.NotSupported("bluetooth is disabled by permissions.allow_bluetooth")
	}
	return nil
}

// Start implements bluetooth.start: begins advertising/scanning for
// serviceID.
func (s *Service) Start(serviceID string) error {
	if err := s.checkAllowed(); err != nil {
		return err
	}
	if serviceID == "" {
		return rterr.BadRequest("bluetooth.start requires a serviceId")
	}
	if s.adapter != nil {
		if err := s.adapter.StartService(serviceID); err != nil {
			return rterr.Internal("starting bluetooth service %s: %v", serviceID, err)
		}
	}
	s.mu.Lock()
	s.started[serviceID] = true
	s.mu.Unlock()
	return nil
}

// Subscribe implements bluetooth.subscribe: registers onData to be
// invoked whenever characteristicID under serviceID receives a publish.
// Returns a subscription id usable for bookkeeping (the original has no
// explicit unsubscribe route, so none is exposed here either).
func (s *Service) Subscribe(serviceID, characteristicID string, onData func(data []byte)) (uint64, error) {
	if err := s.checkAllowed(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started[serviceID] {
		return 0, rterr.NotFound("bluetooth service %s has not been started", serviceID)
	}
	s.nextSub++
	id := s.nextSub
	s.subs[id] = subscription{serviceID: serviceID, characteristicID: characteristicID, onData: onData}
	return id, nil
}

// Publish implements bluetooth.publish: delivers data to every
// subscriber registered against the same serviceID/characteristicID
// pair.
func (s *Service) Publish(serviceID, characteristicID string, data []byte) error {
	if err := s.checkAllowed(); err != nil {
		return err
	}
	s.mu.Lock()
	if !s.started[serviceID] {
		s.mu.Unlock()
		return rterr.NotFound("bluetooth service %s has not been started", serviceID)
	}
	var targets []subscription
	for _, sub := range s.subs {
		if sub.serviceID == serviceID && sub.characteristicID == characteristicID {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range targets {
		sub.onData(data)
	}
	return nil
}
