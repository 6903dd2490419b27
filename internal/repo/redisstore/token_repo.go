package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenKeyPrefix = "wandernest:tourist_token:"

func tokenKey(sessionID string) string {
	return tokenKeyPrefix + sessionID
}

type TokenRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTokenRepo(client *redis.Client, ttl time.Duration) *TokenRepo {
	return &TokenRepo{client: client, ttl: ttl}
}

func (r *TokenRepo) Load(ctx context.Context, sessionID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tok, err := r.client.Get(ctx, tokenKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return tok, err
}

func (r *TokenRepo) Save(ctx context.Context, sessionID, token string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.client.Set(ctx, tokenKey(sessionID), token, r.ttl).Err()
}

func (r *TokenRepo) Clear(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.client.Del(ctx, tokenKey(sessionID)).Err()
}
