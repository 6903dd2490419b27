package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// TokenRepoImpl persists tourist bearer tokens keyed by browser session id.
type TokenRepoImpl struct {
	db  DB
	ttl time.Duration
}

func NewTokenRepo(db DB, ttl time.Duration) *TokenRepoImpl {
	return &TokenRepoImpl{db: db, ttl: ttl}
}

func (r *TokenRepoImpl) Load(ctx context.Context, sessionID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var token string
	err := r.db.QueryRow(ctx, `
SELECT token FROM tourist_tokens
WHERE session_id = $1
  AND expires_at > now()
`, sessionID).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return token, err
}

func (r *TokenRepoImpl) Save(ctx context.Context, sessionID, token string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
INSERT INTO tourist_tokens (session_id, token, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (session_id) DO UPDATE SET
	token = EXCLUDED.token,
	expires_at = EXCLUDED.expires_at,
	updated_at = now()
`, sessionID, token, time.Now().Add(r.ttl))
	return err
}

func (r *TokenRepoImpl) Clear(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `DELETE FROM tourist_tokens WHERE session_id = $1`, sessionID)
	return err
}

func (r *TokenRepoImpl) DeleteExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM tourist_tokens WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
