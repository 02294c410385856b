package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/trackport/tracking-engine/pkg/models"
)

// CompanyCache is a short-TTL read-through cache for resolved companies.
// Tracking lookups are read-heavy and resolution hits three tables; caching
// the assembled record keeps Postgres out of the hot path. A nil client
// disables the cache entirely.
type CompanyCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// cachedCompany carries fields the Company JSON form deliberately omits.
type cachedCompany struct {
	Company  *models.Company `json:"company"`
	APIToken *string         `json:"api_token,omitempty"`
}

// NewCompanyCache creates a company cache. client may be nil (cache off).
func NewCompanyCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *CompanyCache {
	return &CompanyCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("company-cache"),
	}
}

// Enabled reports whether a Redis client is attached. Callers that only
// touch the database to feed the cache should check this first.
func (c *CompanyCache) Enabled() bool {
	return c != nil && c.client != nil
}

// BrandKey is the cache key for a brand lookup.
func BrandKey(brand string) string { return "company:brand:" + brand }

// LocalIDKey is the cache key for a local-id lookup.
func LocalIDKey(id int64) string { return fmt.Sprintf("company:id:%d", id) }

// PipelineIDKey is the cache key for a Pipeline company id lookup.
func PipelineIDKey(id int64) string { return fmt.Sprintf("company:pid:%d", id) }

// Get returns the cached company for the key, or nil on miss or any cache
// error. Cache failures never surface to callers.
func (c *CompanyCache) Get(ctx context.Context, key string) *models.Company {
	if !c.Enabled() {
		return nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}

	var entry cachedCompany
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Debug("Cache entry corrupt, dropping", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, key).Err()
		return nil
	}
	if entry.Company == nil {
		return nil
	}
	entry.Company.APIToken = entry.APIToken
	// The resolver only caches eagerly loaded companies.
	entry.Company.FeaturesLoaded = true
	if entry.Company.Features == nil {
		entry.Company.Features = []models.Feature{}
	}
	return entry.Company
}

// Put stores the company under the key with the cache TTL.
func (c *CompanyCache) Put(ctx context.Context, key string, company *models.Company) {
	if !c.Enabled() || company == nil {
		return
	}

	data, err := json.Marshal(cachedCompany{Company: company, APIToken: company.APIToken})
	if err != nil {
		c.logger.Debug("Failed to marshal cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Debug("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every key a company can be resolved under.
func (c *CompanyCache) Invalidate(ctx context.Context, company *models.Company) {
	if !c.Enabled() || company == nil {
		return
	}

	keys := []string{
		LocalIDKey(company.ID),
		PipelineIDKey(company.PipelineCompanyID),
	}
	if company.Brand != nil && *company.Brand != "" {
		keys = append(keys, BrandKey(*company.Brand))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Debug("Cache invalidation failed",
			zap.Int64("company_id", company.ID),
			zap.Error(err))
	}
}
