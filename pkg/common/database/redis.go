package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/config"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

var (
	redisClient  *redis.Client
	redisOnce    sync.Once
	redisPingErr error
)

// GetRedis returns the shared client together with the result of the
// initial ping. Callers decide whether an unreachable Redis is fatal.
func GetRedis() (*redis.Client, error) {
	redisOnce.Do(func() {
		cfg := config.Load()
		redisClient = redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisPingErr = fmt.Errorf("redis ping %s: %w", redisClient.Options().Addr, err)
			logger.Log.WithError(err).Error("Failed to connect to Redis")
			return
		}
		logger.Log.WithField("addr", redisClient.Options().Addr).Info("Connected to Redis")
	})

	return redisClient, redisPingErr
}

func CloseRedis() error {
	if redisClient != nil {
		return redisClient.Close()
	}
	return nil
}
