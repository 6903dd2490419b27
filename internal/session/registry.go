package session

import (
	"context"
	"sync"
	"time"

	"github.com/diagnosis/wandernest/pkg/events"
	"github.com/diagnosis/wandernest/pkg/logger"
)

// Registry owns one Machine per browser session id and evicts machines
// nobody has touched for idleTTL. Evicting a machine is the server-side
// equivalent of closing the tab: the persisted token survives it.
type Registry struct {
	api     API
	tokens  TokenRepo
	events  events.Publisher
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	machines map[string]*slot
}

type slot struct {
	machine  *Machine
	lastSeen time.Time
}

func NewRegistry(api API, tokens TokenRepo, pub events.Publisher, idleTTL time.Duration) *Registry {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Registry{
		api:      api,
		tokens:   tokens,
		events:   pub,
		idleTTL:  idleTTL,
		now:      time.Now,
		machines: make(map[string]*slot),
	}
}

// Get returns the machine for sessionID, creating it if needed.
func (r *Registry) Get(sessionID string) *Machine {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.machines[sessionID]
	if !ok {
		s = &slot{machine: New(sessionID, r.api, Scoped(r.tokens, sessionID), r.events)}
		r.machines[sessionID] = s
	}
	s.lastSeen = r.now()
	return s.machine
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.machines)
}

// Evict drops machines idle for longer than idleTTL and returns how many.
func (r *Registry) Evict() int {
	if r.idleTTL <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	evicted := 0
	for id, s := range r.machines {
		if s.lastSeen.Before(cutoff) {
			delete(r.machines, id)
			evicted++
		}
	}
	return evicted
}

// Run evicts idle machines every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Evict(); n > 0 {
				logger.Debug("Evicted idle dashboard sessions", "count", n, "remaining", r.Len())
			}
		}
	}
}
