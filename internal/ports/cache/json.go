package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// GetJSON читает и декодирует json значение
func GetJSON[T any](ctx context.Context, c Cache, key string) (*T, error) {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return &v, nil
}

// SetJSON кодирует и сохраняет значение с ttl
func SetJSON[T any](ctx context.Context, c Cache, key string, ttl time.Duration, v *T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.SetEx(ctx, key, ttl, string(raw))
}
