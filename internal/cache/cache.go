// Package cache - общий key-value кэш для данных, полученных из Mux.
package cache

import (
	"context"
	"time"
)

// Cache хранит сырые байты по ключу. ttl == 0 означает хранение без срока.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
