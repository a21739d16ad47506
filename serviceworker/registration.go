// Package serviceworker implements the ServiceWorker Container (spec.md
// §4.2.5): registration lifecycle, scope resolution, and the fetch
// round-trip, grounded on
// _examples/original_source/src/runtime/serviceworker/registration.cc
// and src/serviceworker/container.cc, backed by a
// github.com/tetratelabs/wazero WASM runtime standing in for the
// original's native worker execution.
package serviceworker

import (
	"net/url"
	"sync"
	"sync/atomic"
)

// State is the registration lifecycle (spec.md §3, §4.2.5), named after
// registration.cc's getStateString(). Transitions are not checked:
// Container.Reset moves every registration back to Registered, and
// UpdateState may set any named state.
type State int

const (
	StateNone State = iota
	StateRegistering
	StateRegistered
	StateInstalling
	StateInstalled
	StateActivating
	StateActivated
	StateError
)

func (s State) String() string {
	switch s {
	case StateRegistering:
		return "registering"
	case StateRegistered:
		return "registered"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	case StateError:
		return "error"
	default:
		return "none"
	}
}

// Priority mirrors Registration::Priority.
type Priority int

const (
	PriorityDefault Priority = iota
	PriorityHigh
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "default"
	}
}

// Options are the registration-time parameters (register()'s payload).
type Options struct {
	ScriptURL            string
	Scope                string
	Scheme               string
	SerializedWorkerArgs string
	Priority             Priority
}

// Storage is the per-registration key/value store exposed by
// serviceWorker.storage.{get,set,remove,clear} (registration.cc's
// Registration::Storage).
type Storage struct {
	mu   sync.Mutex
	data map[string]string
}

func newStorage() *Storage {
	return &Storage{data: make(map[string]string)}
}

// Get returns key's stored value, or key itself if unset (faithfully
// replicating the original's fallback rather than returning an error).
func (s *Storage) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v
	}
	return key
}

func (s *Storage) Set(key, value string) {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
}

func (s *Storage) Remove(key string) {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
}

func (s *Storage) Clear() {
	s.mu.Lock()
	s.data = make(map[string]string)
	s.mu.Unlock()
}

// JSON implements serviceWorker.storage: a snapshot of every stored
// key/value pair for the registration.
func (s *Storage) JSON() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]interface{}, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Registration is one registered service worker.
type Registration struct {
	ID      uint64
	Origin  string
	Options Options
	Storage *Storage

	state atomic.Int32
}

// Key computes the registration key the way Registration::key does: the
// scope resolved against origin, with scheme overridden.
func Key(scope, origin, scheme string) string {
	u, err := url.Parse(scope)
	if err != nil {
		return scheme + "://" + origin + scope
	}
	base, err := url.Parse(origin)
	if err == nil {
		u = base.ResolveReference(u)
	}
	u.Scheme = scheme
	return u.String()
}

func newRegistration(id uint64, origin string, opts Options) *Registration {
	r := &Registration{ID: id, Origin: origin, Options: opts, Storage: newStorage()}
	r.state.Store(int32(StateRegistering))
	return r
}

// State returns the current lifecycle state.
func (r *Registration) State() State {
	return State(r.state.Load())
}

// setState stores s as the lifecycle state; no transition is validated.
func (r *Registration) setState(s State) {
	r.state.Store(int32(s))
}

// IsActive mirrors Registration::isActive.
func (r *Registration) IsActive() bool {
	s := r.State()
	return s == StateActivating || s == StateActivated
}

// IsWaiting mirrors Registration::isWaiting.
func (r *Registration) IsWaiting() bool {
	return r.State() == StateInstalled
}

// IsInstalling mirrors Registration::isInstalling.
func (r *Registration) IsInstalling() bool {
	return r.State() == StateInstalling
}

// JSON mirrors Registration::json. includeWorkerArgs gates whether the
// (potentially sensitive) serialized worker args are included.
func (r *Registration) JSON(includeWorkerArgs bool) map[string]interface{} {
	args := ""
	if includeWorkerArgs {
		args = url.QueryEscape(r.Options.SerializedWorkerArgs)
	}
	return map[string]interface{}{
		"id":                   r.ID,
		"scriptURL":            r.Options.ScriptURL,
		"scope":                r.Options.Scope,
		"state":                r.State().String(),
		"scheme":               r.Options.Scheme,
		"origin":               r.Origin,
		"serializedWorkerArgs": args,
		"priority":             r.Options.Priority.String(),
	}
}
