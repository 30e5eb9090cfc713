// Package privacy implements the default-deny network guard: every
// outbound request passes through a URL allowlist gate, and the guard is
// process-wide so deeply-nested callers (the model installer) share one
// policy without threading it through every constructor.
package privacy

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/localcue/dictate/internal/apperr"
)

var (
	globalMu sync.Mutex
	global   *Guard
)

// Init installs the process-wide Guard. The first call wins; later calls
// return the already-installed instance so every component — including the
// model installer reached from deep inside the controller — shares one
// policy.
func Init(localOnly bool, allowedDomains []string) *Guard {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New(localOnly, allowedDomains)
	}
	return global
}

// Default returns the process-wide Guard, lazily creating one in
// local-only mode with an empty allowlist if Init was never called —
// default-deny is the safe posture for a guard nobody configured.
func Default() *Guard {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New(true, nil)
	}
	return global
}

// Guard mediates every outbound network call through a host allowlist with
// a default-deny ("local-only") mode.
type Guard struct {
	localOnly atomic.Bool

	mu      sync.RWMutex
	domains []string
}

// New creates a standalone Guard; most callers want Init/Default instead.
func New(localOnly bool, allowedDomains []string) *Guard {
	g := &Guard{}
	g.localOnly.Store(localOnly)
	g.SetAllowedDomains(allowedDomains)
	return g
}

// SetLocalOnly flips local-only mode. Live: in-flight requests are not
// retroactively cancelled, but future ones see the new policy.
func (g *Guard) SetLocalOnly(v bool) { g.localOnly.Store(v) }

// IsLocalOnly reports the current local-only mode. Non-suspending, safe
// from any context.
func (g *Guard) IsLocalOnly() bool { return g.localOnly.Load() }

// SetAllowedDomains replaces the allowlist.
func (g *Guard) SetAllowedDomains(domains []string) {
	cp := make([]string, len(domains))
	copy(cp, domains)
	g.mu.Lock()
	g.domains = cp
	g.mu.Unlock()
}

// AllowedDomains returns a copy of the current allowlist.
func (g *Guard) AllowedDomains() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.domains))
	copy(out, g.domains)
	return out
}

// IsURLAllowed implements the three-step gate:
//  1. local_only=true rejects everything.
//  2. an unparseable URL or one with no host fails HttpRequest.
//  3. otherwise the host must equal an allowlisted domain or be a subdomain
//     of one.
func (g *Guard) IsURLAllowed(rawURL string) error {
	if g.IsLocalOnly() {
		return &apperr.NetworkBlockedError{Reason: "local-only mode"}
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return fmt.Errorf("%w: Invalid URL", apperr.ErrHTTPRequest)
	}
	host := u.Hostname()

	for _, d := range g.AllowedDomains() {
		if host == d || strings.HasSuffix(host, "."+d) {
			return nil
		}
	}
	return &apperr.NetworkBlockedError{Reason: fmt.Sprintf("domain '%s' not allowed", host)}
}
