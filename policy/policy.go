package policy

import (
	"sync"
	"time"

	"github.com/mming1274-7/True-Name-RPG-FHE/crypto"
)

// AccessPolicy is consulted by the game core before any state mutation.
// Implementations must be safe for concurrent use.
type AccessPolicy interface {
	// IsPaused reports whether the system is administratively paused.
	IsPaused() bool

	// IsAuthorizedOpener reports whether caller may open new batches.
	IsAuthorizedOpener(caller crypto.PublicKey) bool

	// CooldownElapsed reports whether caller's cooldown interval has
	// passed since their last recorded state-changing call.
	CooldownElapsed(caller crypto.PublicKey) bool

	// RecordAction stamps caller's last-action time. The core calls this
	// once per successful state-changing operation.
	RecordAction(caller crypto.PublicKey)
}

// Registry is the standard AccessPolicy: a pause flag, an explicit opener
// allowlist (empty list means anyone may open), and a last-action
// timestamp per caller checked against a fixed cooldown.
type Registry struct {
	cooldown time.Duration
	now      func() time.Time

	mu         sync.RWMutex
	paused     bool
	openers    map[string]bool
	openToAll  bool
	lastAction map[string]time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source. Only used in tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithOpeners restricts batch opening to the given keys.
func WithOpeners(openers []crypto.PublicKey) Option {
	return func(r *Registry) {
		r.openToAll = false
		for _, pk := range openers {
			r.openers[pk.String()] = true
		}
	}
}

// NewRegistry creates a policy with the given cooldown. With no
// WithOpeners option every caller is an authorized opener.
func NewRegistry(cooldown time.Duration, opts ...Option) *Registry {
	r := &Registry{
		cooldown:   cooldown,
		now:        time.Now,
		openers:    make(map[string]bool),
		openToAll:  true,
		lastAction: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsPaused reports whether the system is paused.
func (r *Registry) IsPaused() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paused
}

// SetPaused flips the pause switch. Admin surface, not exposed to players.
func (r *Registry) SetPaused(paused bool) {
	r.mu.Lock()
	r.paused = paused
	r.mu.Unlock()
}

// IsAuthorizedOpener reports whether caller may open batches.
func (r *Registry) IsAuthorizedOpener(caller crypto.PublicKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.openToAll || r.openers[caller.String()]
}

// AddOpener grants the opener role to a key.
func (r *Registry) AddOpener(caller crypto.PublicKey) {
	r.mu.Lock()
	r.openToAll = false
	r.openers[caller.String()] = true
	r.mu.Unlock()
}

// CooldownElapsed reports whether caller may act again. Callers with no
// recorded action are always allowed.
func (r *Registry) CooldownElapsed(caller crypto.PublicKey) bool {
	if r.cooldown <= 0 {
		return true
	}

	r.mu.RLock()
	last, ok := r.lastAction[caller.String()]
	r.mu.RUnlock()

	return !ok || !r.now().Before(last.Add(r.cooldown))
}

// RecordAction stamps caller's last-action time.
func (r *Registry) RecordAction(caller crypto.PublicKey) {
	stamp := r.now()
	r.mu.Lock()
	r.lastAction[caller.String()] = stamp
	r.mu.Unlock()
}
