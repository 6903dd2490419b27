package session

import "context"

// TokenStore persists the tourist's bearer token for one browser.
// Load returns "" with a nil error when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// TokenRepo is a TokenStore for many browsers, keyed by browser session id.
type TokenRepo interface {
	Load(ctx context.Context, sessionID string) (string, error)
	Save(ctx context.Context, sessionID, token string) error
	Clear(ctx context.Context, sessionID string) error
}

// Scoped binds repo to a single browser session id.
func Scoped(repo TokenRepo, sessionID string) TokenStore {
	return scopedStore{repo: repo, sessionID: sessionID}
}

type scopedStore struct {
	repo      TokenRepo
	sessionID string
}

func (s scopedStore) Load(ctx context.Context) (string, error) {
	return s.repo.Load(ctx, s.sessionID)
}

func (s scopedStore) Save(ctx context.Context, token string) error {
	return s.repo.Save(ctx, s.sessionID, token)
}

func (s scopedStore) Clear(ctx context.Context) error {
	return s.repo.Clear(ctx, s.sessionID)
}
