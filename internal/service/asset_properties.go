package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"muxlti/internal/cache"
	"muxlti/internal/domain"
	"muxlti/internal/logger"
)

const assetCacheKeyPrefix = "mux:assets:"

var nullPayload = []byte("null")

// AssetPropertiesLoader читает данные ассетов из Mux через общий кэш.
// Отсутствующий в Mux ассет тоже кэшируется (как null).
type AssetPropertiesLoader struct {
	cache cache.Cache
	api   AssetAPI
	ttl   time.Duration
	log   *logger.Logger
}

func NewAssetPropertiesLoader(c cache.Cache, api AssetAPI, ttl time.Duration, log *logger.Logger) *AssetPropertiesLoader {
	return &AssetPropertiesLoader{
		cache: c,
		api:   api,
		ttl:   ttl,
		log:   log.With("service", "AssetPropertiesLoader"),
	}
}

// Load возвращает данные ассета из кэша или из Mux. nil - ассета нет в Mux.
func (l *AssetPropertiesLoader) Load(ctx context.Context, muxID string) (*domain.AssetProperties, error) {
	data, err := l.loadData(ctx, muxID, false)
	if err != nil {
		return nil, err
	}
	return l.build(muxID, data)
}

// Refresh всегда идет в Mux, перезаписывает кэш и возвращает новый снимок.
func (l *AssetPropertiesLoader) Refresh(ctx context.Context, muxID string) (*domain.AssetProperties, error) {
	data, err := l.loadData(ctx, muxID, true)
	if err != nil {
		return nil, err
	}
	return l.build(muxID, data)
}

// Invalidate удаляет запись из кэша.
func (l *AssetPropertiesLoader) Invalidate(ctx context.Context, muxID string) error {
	return l.cache.Delete(ctx, assetCacheKeyPrefix+muxID)
}

func (l *AssetPropertiesLoader) loadData(ctx context.Context, muxID string, noCache bool) (json.RawMessage, error) {
	key := assetCacheKeyPrefix + muxID

	if !noCache {
		cached, ok, err := l.cache.Get(ctx, key)
		if err != nil {
			l.log.Warn("asset cache read failed", "mux_id", muxID, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	data, err := l.api.GetAsset(ctx, muxID)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset %s: %w", muxID, err)
	}

	toStore := []byte(data)
	if data == nil {
		toStore = nullPayload
	}
	if err := l.cache.Set(ctx, key, toStore, l.ttl); err != nil {
		l.log.Warn("asset cache write failed", "mux_id", muxID, "error", err)
	}

	return toStore, nil
}

func (l *AssetPropertiesLoader) build(muxID string, data []byte) (*domain.AssetProperties, error) {
	if len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), nullPayload) {
		return nil, nil
	}
	props, err := domain.NewAssetProperties(data)
	if err != nil {
		return nil, fmt.Errorf("invalid asset payload for %s: %w", muxID, err)
	}
	return props, nil
}
