// Package catalog serves the model list the council can be assembled from,
// backed by the gateway and cached in Redis.
package catalog

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/council/internal/provider"
)

const modelsCacheKey = "council:models"

// Service answers model catalog queries. With a nil redis client every call
// goes straight to the gateway.
type Service struct {
	gateway provider.Catalog
	rdb     *redis.Client
	ttl     time.Duration
	logger  *log.Logger
}

func New(gateway provider.Catalog, rdb *redis.Client, ttl time.Duration, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[CATALOG] ", log.LstdFlags)
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{gateway: gateway, rdb: rdb, ttl: ttl, logger: logger}
}

// Models returns the gateway's model list, served from cache when fresh.
// Cache failures are logged and fall through to the gateway.
func (s *Service) Models(ctx context.Context) ([]provider.ModelInfo, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, modelsCacheKey).Bytes()
		if err == nil {
			var cached []provider.ModelInfo
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
			s.logger.Printf("dropping unreadable cache entry: %v", err)
		} else if err != redis.Nil {
			s.logger.Printf("cache read failed: %v", err)
		}
	}

	models, err := s.gateway.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(models); err == nil {
			if err := s.rdb.Set(ctx, modelsCacheKey, raw, s.ttl).Err(); err != nil {
				s.logger.Printf("cache write failed: %v", err)
			}
		}
	}
	return models, nil
}

// TestModel probes one model through the gateway. Probes are never cached:
// the point is a live answer.
func (s *Service) TestModel(ctx context.Context, modelID string) bool {
	return s.gateway.TestModel(ctx, modelID)
}
