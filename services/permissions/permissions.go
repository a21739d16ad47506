// Package permissions implements the Permissions core service (spec.md
// §4.2.4): query consults userConfig.permissions_allow_*, request may
// trigger a platform prompt, rate-limited via golang.org/x/time/rate to
// guard against prompt-spam from web content.
package permissions

import (
	"sync"

	"github.com/teranos/qntx-runtime/rterr"
	"golang.org/x/time/rate"
)

// State is the resolved permission state for a named capability.
type State string

const (
	StateGranted State = "granted"
	StateDenied  State = "denied"
	StatePrompt  State = "prompt"
)

// Prompter is the host collaborator that actually shows a native
// permission dialog; request() only consults it if the userConfig
// doesn't already settle the question.
type Prompter interface {
	Prompt(name string, payload map[string]string) (State, error)
}

// Service resolves and caches permission decisions.
type Service struct {
	mu        sync.Mutex
	userAllow map[string]bool // permissions_allow_<name> from userConfig
	decided   map[string]State
	prompter  Prompter
	limiter   *rate.Limiter
}

// New constructs a Permissions service. userAllow is the
// permissions_allow_* subset of the wire config (spec.md §6.6).
func New(userAllow map[string]bool, prompter Prompter) *Service {
	return &Service{
		userAllow: userAllow,
		decided:   make(map[string]State),
		prompter:  prompter,
		limiter:   rate.NewLimiter(2, 4),
	}
}

// Query implements permissions.query: consults userConfig without
// prompting.
func (s *Service) Query(name string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.decided[name]; ok {
		return st
	}
	if allowed, ok := s.userAllow[name]; ok {
		if allowed {
			return StateGranted
		}
		return StateDenied
	}
	return StatePrompt
}

// Request implements permissions.request: may trigger a platform prompt
// when the userConfig doesn't already settle the question.
func (s *Service) Request(name string, payload map[string]string) (State, error) {
	if st := s.Query(name); st != StatePrompt {
		return st, nil
	}
	if !s.limiter.Allow() {
		return StatePrompt, rterr.Aborted("permission prompt rate limit exceeded for %s", name)
	}
	if s.prompter == nil {
		return StatePrompt, rterr.NotSupported("no prompt collaborator configured")
	}
	st, err := s.prompter.Prompt(name, payload)
	if err != nil {
		return StatePrompt, rterr.Aborted("permission prompt failed: %v", err)
	}
	s.mu.Lock()
	s.decided[name] = st
	s.mu.Unlock()
	return st, nil
}
