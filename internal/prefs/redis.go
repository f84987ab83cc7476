package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "staytrack:prefs:"

// Redis stores preferences as JSON values under staytrack:prefs:{user}.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func key(userID string) string { return keyPrefix + userID }

// Get returns the stored preferences or Defaults when none are saved.
func (r *Redis) Get(ctx context.Context, userID string) (Preferences, error) {
	raw, err := r.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Defaults(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("get preferences: %w", err)
	}
	var p Preferences
	if err := json.Unmarshal(raw, &p); err != nil {
		return Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	return p, nil
}

// Set validates and stores p without expiry.
func (r *Redis) Set(ctx context.Context, userID string, p Preferences) (Preferences, error) {
	p, err := p.Normalize()
	if err != nil {
		return Preferences{}, err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return Preferences{}, fmt.Errorf("encode preferences: %w", err)
	}
	if err := r.client.Set(ctx, key(userID), raw, 0).Err(); err != nil {
		return Preferences{}, fmt.Errorf("set preferences: %w", err)
	}
	return p, nil
}
