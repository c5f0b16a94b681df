package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/logger"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

// PredictionCache keeps recent prediction responses in Redis, keyed by a hash
// of the request record and scoped to one training run.
type PredictionCache struct {
	client   *redis.Client
	prefix   string
	cacheTTL time.Duration
}

func NewPredictionCache(client *redis.Client, runID string, cacheTTL time.Duration) *PredictionCache {
	return &PredictionCache{
		client:   client,
		prefix:   fmt.Sprintf("predictions:%s:", runID),
		cacheTTL: cacheTTL,
	}
}

// Key hashes the canonical JSON of rec. encoding/json sorts map keys, so equal
// records always share a key.
func (c *PredictionCache) Key(rec models.PatientRecord) (string, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := sha256.Sum256(payload)
	return c.prefix + hex.EncodeToString(sum[:]), nil
}

func (c *PredictionCache) Get(ctx context.Context, key string) (models.PredictionResponse, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var resp models.PredictionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false, err
	}
	return resp, true, nil
}

func (c *PredictionCache) Set(ctx context.Context, key string, resp models.PredictionResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	logger.Log.WithFields(map[string]interface{}{
		"key":  key,
		"size": len(data),
	}).Debug("Caching prediction")
	return c.client.Set(ctx, key, data, c.cacheTTL).Err()
}
