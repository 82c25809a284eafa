package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Cache keys for the serialized API responses.
const (
	KeyTimeTables        = "api/dsb/timetables"
	KeySubstitutionPlans = "api/substitution/plans"
)

// ErrVersionConflict reports that a cache row changed between read and update.
var ErrVersionConflict = errors.New("store: cache entry version conflict")

// CacheEntry is one serialized response.
type CacheEntry struct {
	Key         string    `gorm:"column:cache_key;primaryKey;size:128"`
	JSONBody    string    `gorm:"column:json_body;type:text;not null"`
	ContentHash string    `gorm:"column:content_hash;size:64;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
	Version     int64     `gorm:"column:version;not null;default:0"`
}

// TableName overrides the gorm default.
func (CacheEntry) TableName() string { return "api_response_cache" }

// ResponseCache keeps the last good JSON payload per key in the database,
// fronted by an in-process LRU.
type ResponseCache struct {
	db     *gorm.DB
	lru    gcache.Cache
	logger *zap.Logger
}

// NewResponseCache creates a ResponseCache holding at most size keys in memory.
func NewResponseCache(db *gorm.DB, size int, logger *zap.Logger) *ResponseCache {
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseCache{
		db:     db,
		lru:    gcache.New(size).LRU().Build(),
		logger: logger.Named("cache"),
	}
}

// Store serializes payload and writes it under key unless the stored hash is
// identical. Blank keys and nil payloads are ignored.
func (c *ResponseCache) Store(ctx context.Context, key string, payload any) error {
	if strings.TrimSpace(key) == "" || payload == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", key, err)
	}
	jsonBody := string(body)
	hash := ContentHash(jsonBody)

	for attempt := 0; attempt < 2; attempt++ {
		err = c.write(ctx, key, jsonBody, hash)
		if err == nil {
			_ = c.lru.Set(key, jsonBody)
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		c.logger.Debug("cache write conflict, retrying", zap.String("key", key), zap.Int("attempt", attempt))
	}
	return fmt.Errorf("store %s: %w", key, err)
}

func (c *ResponseCache) write(ctx context.Context, key, jsonBody, hash string) error {
	db := c.db.WithContext(ctx)

	var entry CacheEntry
	err := db.Where("cache_key = ?", key).Take(&entry).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return db.Create(&CacheEntry{
			Key:         key,
			JSONBody:    jsonBody,
			ContentHash: hash,
			UpdatedAt:   time.Now(),
		}).Error
	case err != nil:
		return fmt.Errorf("read %s: %w", key, err)
	}

	if entry.ContentHash == hash {
		return nil
	}
	res := db.Model(&CacheEntry{}).
		Where("cache_key = ? AND version = ?", key, entry.Version).
		Updates(map[string]any{
			"json_body":    jsonBody,
			"content_hash": hash,
			"updated_at":   time.Now(),
			"version":      entry.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("update %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// GetRawJSON returns the last stored payload for key.
func (c *ResponseCache) GetRawJSON(ctx context.Context, key string) (string, bool, error) {
	if strings.TrimSpace(key) == "" {
		return "", false, nil
	}
	if v, err := c.lru.Get(key); err == nil {
		return v.(string), true, nil
	}

	var entry CacheEntry
	err := c.db.WithContext(ctx).Where("cache_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	_ = c.lru.Set(key, entry.JSONBody)
	return entry.JSONBody, true, nil
}

// GetJSON decodes the last stored payload for key into out. A payload that is
// no longer valid JSON for out is reported as absent.
func (c *ResponseCache) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, ok, err := c.GetRawJSON(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		c.logger.Warn("cached payload is not decodable", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

// Entry returns the full row for key, bypassing the LRU.
func (c *ResponseCache) Entry(ctx context.Context, key string) (*CacheEntry, error) {
	var entry CacheEntry
	err := c.db.WithContext(ctx).Where("cache_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
