package serviceworker

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teranos/qntx-runtime/eventloop"
	"github.com/teranos/qntx-runtime/rterr"
)

// activationPollInterval/activationPollTimeout mirror container.cc's
// fetch(): an 8ms setInterval polling for Registration::State::Activated,
// bounded by a 32s setTimeout that cancels the poll if it never fires.
const (
	activationPollInterval = 8 * time.Millisecond
	activationPollTimeout  = 32 * time.Second
)

// Emitter delivers the "serviceWorker.fetch" event to the registered
// worker's execution environment (the wazero-backed Engine).
type Emitter interface {
	Emit(registration *Registration, fetch FetchRequest, id uint64) error
}

// Container is the ServiceWorker Container (spec.md §4.2.5): owns the
// scope-keyed registration table and routes fetches to the
// longest-matching active registration.
type Container struct {
	mu            sync.Mutex
	registrations map[string]*Registration
	nextID        uint64

	loop     *eventloop.Loop
	emitter  Emitter
	fetchReq map[uint64]FetchRequest
	fetchCb  map[uint64]FetchCallback

	protocols map[string]string
}

// NewContainer constructs an empty Container.
func NewContainer(loop *eventloop.Loop, emitter Emitter) *Container {
	return &Container{
		registrations: make(map[string]*Registration),
		loop:          loop,
		emitter:       emitter,
		fetchReq:      make(map[uint64]FetchRequest),
		fetchCb:       make(map[uint64]FetchCallback),
		protocols:     make(map[string]string),
	}
}

func normalizeScope(scope string) string {
	scope = strings.TrimSpace(scope)
	if !strings.HasPrefix(scope, "/") {
		scope = "/" + scope
	}
	return scope
}

// Register implements serviceWorker.register.
func (c *Container) Register(origin string, opts Options) (*Registration, error) {
	scope := normalizeScope(opts.Scope)
	opts.Scope = scope

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.registrations[scope]; ok {
		return existing, nil
	}

	c.nextID++
	r := newRegistration(c.nextID, origin, opts)
	c.registrations[scope] = r
	r.setState(StateRegistered)
	return r, nil
}

// Unregister implements serviceWorker.unregister, matching either a
// scope or the exact scriptURL at that scope (unregisterServiceWorker's
// scopeOrScriptURL parameter).
func (c *Container) Unregister(scopeOrScriptURL string) error {
	scope := normalizeScope(scopeOrScriptURL)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.registrations[scope]; ok {
		delete(c.registrations, scope)
		return nil
	}
	for s, r := range c.registrations {
		if r.Options.ScriptURL == scopeOrScriptURL {
			delete(c.registrations, s)
			return nil
		}
	}
	return rterr.NotFound("no service worker registered at %q", scopeOrScriptURL)
}

// GetRegistration implements serviceWorker.getRegistration.
func (c *Container) GetRegistration(scope string) (*Registration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.registrations[normalizeScope(scope)]
	if !ok {
		return nil, rterr.NotFound("no service worker registered at %q", scope)
	}
	return r, nil
}

// GetRegistrations implements serviceWorker.getRegistrations: every
// currently registered scope, mirroring container.cc's full-table dump.
func (c *Container) GetRegistrations() []*Registration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Registration, 0, len(c.registrations))
	for _, r := range c.registrations {
		out = append(out, r)
	}
	return out
}

// Reset implements serviceWorker.reset: every registration reverts to
// Registered, exactly as container.cc's reset() re-arms each entry for a
// fresh install/activate cycle.
func (c *Container) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.registrations {
		r.setState(StateRegistered)
	}
}

func (c *Container) findByID(id uint64) *Registration {
	for _, r := range c.registrations {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// SkipWaiting implements serviceWorker.skipWaiting: a worker that is
// Installing or Installed (i.e. waiting to take over) is advanced
// straight to Activating, matching container.cc's skipWaiting(id).
func (c *Container) SkipWaiting(id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.findByID(id)
	if r == nil {
		return rterr.NotFound("no service worker registration %d", id)
	}
	if r.State() == StateInstalling || r.State() == StateInstalled {
		r.setState(StateActivating)
	}
	return nil
}

// UpdateState implements serviceWorker.updateState: the id'd registration
// moves to stateName if it names a known state, matching container.cc's
// updateState(id, stateString) string-to-enum table (an unrecognized
// name is a no-op, not an error, as in the original).
func (c *Container) UpdateState(id uint64, stateName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.findByID(id)
	if r == nil {
		return rterr.NotFound("no service worker registration %d", id)
	}
	state, ok := parseState(stateName)
	if !ok {
		return nil
	}
	r.setState(state)
	return nil
}

func parseState(name string) (State, bool) {
	switch name {
	case "error":
		return StateError, true
	case "registered":
		return StateRegistered, true
	case "installing":
		return StateInstalling, true
	case "installed":
		return StateInstalled, true
	case "activating":
		return StateActivating, true
	case "activated":
		return StateActivated, true
	default:
		return StateNone, false
	}
}

// SetState advances a registration's lifecycle state (called by the
// Engine as install/activate events complete).
func (c *Container) SetState(scope string, state State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.registrations[scope]
	if !ok {
		return rterr.NotFound("no service worker registered at %q", scope)
	}
	r.setState(state)
	return nil
}

// findScope resolves the longest registered scope whose scheme matches
// (or is "*") and whose prefix matches pathname, exactly as container.cc
// scans every registration looking for the longest entry.first match.
func (c *Container) findScope(scheme, pathname string) (*Registration, string) {
	var best *Registration
	var bestScope string
	for scope, r := range c.registrations {
		if (r.Options.Scheme == "*" || r.Options.Scheme == scheme) && strings.HasPrefix(pathname, r.Options.Scope) {
			if len(scope) > len(bestScope) {
				best = r
				bestScope = scope
			}
		}
	}
	return best, bestScope
}

// FetchRequest is the fetch correlation record (spec.md §3).
type FetchRequest struct {
	Method   string
	Scheme   string
	Hostname string
	Pathname string
	Query    string
	Headers  map[string]string
	ClientID uint64
}

// FetchCallback receives the eventual fetch response.
type FetchCallback func(FetchResponse)

// FetchResponse is delivered by serviceWorker.fetch.response.
type FetchResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

var fetchIDCounter uint64

func nextFetchID() uint64 {
	return atomic.AddUint64(&fetchIDCounter, 1)
}

// Fetch implements the fetch routing half of container.cc's fetch(): it
// resolves the longest matching scope, waits out the 8ms/32s activation
// poll if the registration is not yet Activated, and otherwise emits a
// correlated "serviceWorker.fetch" event and registers the two
// side-table entries the response route needs.
func (c *Container) Fetch(req FetchRequest, cb FetchCallback) bool {
	c.mu.Lock()
	registration, scope := c.findScope(req.Scheme, req.Pathname)
	c.mu.Unlock()

	if registration == nil {
		return false
	}

	if registration.State() != StateActivated {
		c.pollUntilActive(req, cb, registration)
		return true
	}

	id := nextFetchID()
	pathname := req.Pathname
	if strings.HasPrefix(pathname, scope) {
		pathname = strings.TrimPrefix(pathname, scope)
	}
	req.Pathname = pathname

	c.mu.Lock()
	c.fetchReq[id] = req
	c.fetchCb[id] = cb
	c.mu.Unlock()

	if c.emitter == nil {
		return false
	}
	if err := c.emitter.Emit(registration, req, id); err != nil {
		c.mu.Lock()
		delete(c.fetchReq, id)
		delete(c.fetchCb, id)
		c.mu.Unlock()
		return false
	}
	return true
}

func (c *Container) pollUntilActive(req FetchRequest, cb FetchCallback, registration *Registration) {
	if c.loop == nil {
		return
	}
	c.loop.Dispatch(func() {
		deadline := time.Now().Add(activationPollTimeout)
		var tick func()
		tick = func() {
			if time.Now().After(deadline) {
				return
			}
			if registration.State() == StateActivated {
				c.loop.ScheduleTimer(activationPollInterval, func() {
					if !c.Fetch(req, cb) {
						// best-effort: the retried fetch found nothing to dispatch to.
					}
				})
				return
			}
			c.loop.ScheduleTimer(activationPollInterval, tick)
		}
		tick()
	})
}

// RegisterProtocol implements protocol.register: custom protocol schemes
// must be handled in service workers (container.cc's protocols table).
// If the scheme already has a handler and data is non-empty, it behaves
// like SetProtocolData instead of replacing the handler.
func (c *Container) RegisterProtocol(scheme, data string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.protocols[scheme] = data
}

// UnregisterProtocol implements protocol.unregister.
func (c *Container) UnregisterProtocol(scheme string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.protocols[scheme]; !ok {
		return rterr.NotFound("protocol handler scheme is not registered: %s", scheme)
	}
	delete(c.protocols, scheme)
	return nil
}

// HasProtocolHandler reports whether scheme has a registered handler.
func (c *Container) HasProtocolHandler(scheme string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.protocols[scheme]
	return ok
}

// GetProtocolData implements protocol.getData.
func (c *Container) GetProtocolData(scheme string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.protocols[scheme]
	if !ok {
		return "", rterr.NotFound("protocol handler scheme is not registered: %s", scheme)
	}
	return data, nil
}

// SetProtocolData implements protocol.setData.
func (c *Container) SetProtocolData(scheme, data string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.protocols[scheme]; !ok {
		return rterr.NotFound("protocol handler scheme is not registered: %s", scheme)
	}
	c.protocols[scheme] = data
	return nil
}

// GetRegistrationByScheme implements protocol.getServiceWorkerRegistration.
func (c *Container) GetRegistrationByScheme(scheme string) *Registration {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.registrations {
		if r.Options.Scheme == scheme {
			return r
		}
	}
	return nil
}

// TakeFetchRequest implements serviceWorker.fetch.request.body's lookup.
func (c *Container) TakeFetchRequest(id uint64) (FetchRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.fetchReq[id]
	return req, ok
}

// CompleteFetch implements serviceWorker.fetch.response: delivers the
// response to the stored callback and erases both side-table entries.
func (c *Container) CompleteFetch(id uint64, resp FetchResponse) error {
	c.mu.Lock()
	cb, ok := c.fetchCb[id]
	delete(c.fetchCb, id)
	delete(c.fetchReq, id)
	c.mu.Unlock()
	if !ok {
		return rterr.NotFound("no pending fetch %d", id)
	}
	cb(resp)
	return nil
}
