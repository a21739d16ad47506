package bridge

// WindowHost is the non-owning back-reference a Bridge holds to its
// owning window (spec.md §9 "Cyclic references": Window owns Bridge,
// Bridge holds a non-owning reference back to Window; Router holds a
// non-owning reference back to Bridge). WindowHost is kept narrow so
// this package never imports window.
type WindowHost interface {
	Index() int
	EmitToRenderProcess(event string, value interface{}) error
}

// Bridge is the per-window host for the Router and the services it
// dispatches into (GLOSSARY: "Bridge").
type Bridge struct {
	Router *Router
	window WindowHost
}

// NewBridge constructs a Bridge bound to a Router and its owning window.
// The window reference is non-owning: Bridge never outlives the Window
// that created it.
func NewBridge(router *Router, window WindowHost) *Bridge {
	return &Bridge{Router: router, window: window}
}

// Window returns the non-owning back-reference to the owning window.
func (b *Bridge) Window() WindowHost {
	return b.window
}

// HandleMessage is the entry point a web-view collaborator calls with a
// raw inbound IPC payload (spec.md §6.4's onMessage touchpoint).
func (b *Bridge) HandleMessage(raw string, buffer []byte, clientID string) {
	b.Router.Dispatch(raw, buffer, clientID)
}

// Shutdown tears down the bridge ahead of window destruction, breaking
// the Window<->Bridge<->Router cycle (spec.md §9).
func (b *Bridge) Shutdown() {
	b.Router.AttachConduit(nil)
}
