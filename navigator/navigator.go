// Package navigator resolves a requested URL against mounted resources
// and registered service-worker scopes before a window is allowed to
// navigate to it, mirroring src/runtime/webview/navigator.hh's
// Navigator::Location::resolve (spec.md SUPPLEMENTED FEATURES).
package navigator

import (
	"strings"

	"github.com/teranos/qntx-runtime/resource"
	"github.com/teranos/qntx-runtime/serviceworker"
)

// Decision is the outcome of resolving a requested URL.
type Decision int

const (
	// Reject means no mount, resource, or service worker can serve the
	// request; the navigation should be refused.
	Reject Decision = iota
	// ServeResource means the URL is a bundled asset or an alternate
	// resource origin the FS service already knows how to read.
	ServeResource
	// ServeWorker means a service worker scope claims the path; the
	// navigation should be routed through serviceworker.Container.Fetch.
	ServeWorker
)

func (d Decision) String() string {
	switch d {
	case ServeResource:
		return "resource"
	case ServeWorker:
		return "worker"
	default:
		return "reject"
	}
}

// Resolution is the navigator's verdict for a single navigation request,
// mirroring Navigator::Location::Resolution.
type Resolution struct {
	Decision Decision
	// Resolved carries the resource.Resolved match when Decision ==
	// ServeResource.
	Resolved *resource.Resolved
	// Scope carries the matched service worker scope when Decision ==
	// ServeWorker, or the matched mount prefix when a mount served the
	// request.
	Scope string
}

// Resolver decides how a window should navigate to a requested URL:
// served from a mounted/bundled resource, routed to an active service
// worker's fetch handler, or rejected outright.
type Resolver struct {
	resources *resource.Resolver
	workers   *serviceworker.Container
	// mounts maps a URL path prefix to a filesystem root, mirroring
	// Navigator::configureMounts's Location.mounts table.
	mounts map[string]string
}

// NewResolver builds a navigator bound to the window's resource
// resolver and the process-wide service worker container.
func NewResolver(resources *resource.Resolver, workers *serviceworker.Container) *Resolver {
	return &Resolver{
		resources: resources,
		workers:   workers,
		mounts:    make(map[string]string),
	}
}

// Mount registers pathPrefix as served from root on the host filesystem,
// highest-precedence match winning by longest prefix (configureMounts).
func (n *Resolver) Mount(pathPrefix, root string) {
	n.mounts[pathPrefix] = root
}

// Resolve decides how pathname (plus scheme, for service worker scope
// matching) should be served.
func (n *Resolver) Resolve(scheme, pathname string) Resolution {
	if prefix, root, ok := n.longestMount(pathname); ok {
		mapped := root + strings.TrimPrefix(pathname, prefix)
		if resolved, matched := n.resources.Resolve(mapped); matched {
			return Resolution{Decision: ServeResource, Resolved: resolved, Scope: prefix}
		}
		return Resolution{Decision: ServeResource, Resolved: &resource.Resolved{Path: mapped, Readable: true}, Scope: prefix}
	}

	if resolved, matched := n.resources.Resolve(pathname); matched {
		return Resolution{Decision: ServeResource, Resolved: resolved}
	}

	if n.workers != nil {
		if scope, ok := n.findWorkerScope(scheme, pathname); ok {
			return Resolution{Decision: ServeWorker, Scope: scope}
		}
	}

	return Resolution{Decision: Reject}
}

func (n *Resolver) longestMount(pathname string) (string, string, bool) {
	var best string
	var bestRoot string
	for prefix, root := range n.mounts {
		if strings.HasPrefix(pathname, prefix) && len(prefix) > len(best) {
			best = prefix
			bestRoot = root
		}
	}
	return best, bestRoot, best != ""
}

// findWorkerScope asks whether a worker is registered for scheme/pathname
// without actually dispatching a fetch, used to decide routing before a
// navigation proceeds. It leans on Container.GetRegistration per exact
// normalized scope, trying progressively shorter path prefixes the way
// findScope does internally.
func (n *Resolver) findWorkerScope(scheme, pathname string) (string, bool) {
	for i := len(pathname); i > 0; i-- {
		candidate := pathname[:i]
		if r, err := n.workers.GetRegistration(candidate); err == nil && r != nil {
			if r.Options.Scheme == "*" || r.Options.Scheme == scheme {
				return candidate, true
			}
		}
	}
	return "", false
}
