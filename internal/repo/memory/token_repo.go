package memory

import (
	"context"
	"sync"
	"time"
)

// TokenRepo keeps tourist tokens in process memory. Tokens are lost on restart.
type TokenRepo struct {
	mu     sync.RWMutex
	ttl    time.Duration
	tokens map[string]entry
	now    func() time.Time
}

type entry struct {
	token     string
	expiresAt time.Time
}

func NewTokenRepo(ttl time.Duration) *TokenRepo {
	return &TokenRepo{ttl: ttl, tokens: make(map[string]entry), now: time.Now}
}

func (r *TokenRepo) Load(_ context.Context, sessionID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tokens[sessionID]
	if !ok {
		return "", nil
	}
	if !e.expiresAt.IsZero() && r.now().After(e.expiresAt) {
		return "", nil
	}
	return e.token, nil
}

func (r *TokenRepo) Save(_ context.Context, sessionID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := entry{token: token}
	if r.ttl > 0 {
		e.expiresAt = r.now().Add(r.ttl)
	}
	r.tokens[sessionID] = e
	return nil
}

func (r *TokenRepo) Clear(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, sessionID)
	return nil
}

// DeleteExpired drops tokens past their TTL and returns how many.
func (r *TokenRepo) DeleteExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for sid, e := range r.tokens {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(r.tokens, sid)
			removed++
		}
	}
	return removed
}
