package pipeline

import (
	"context"
	"time"
)

// KV is the JSON cache surface used for careers lookups.
type KV interface {
	CacheGet(ctx context.Context, key string, dest interface{}) error
	CacheSet(ctx context.Context, key string, val interface{}, ttlSeconds int) error
}

type kvCareersCache struct{ kv KV }

// NewCareersCache stores careers targets under careers:<normalized name>.
func NewCareersCache(kv KV) CareersCache { return &kvCareersCache{kv: kv} }

func (c *kvCareersCache) GetCareers(ctx context.Context, company string) (CompanyTarget, bool) {
	var t CompanyTarget
	if err := c.kv.CacheGet(ctx, careersKey(company), &t); err != nil {
		return CompanyTarget{}, false
	}
	return t, t.CareersURL != ""
}

func (c *kvCareersCache) SetCareers(ctx context.Context, t CompanyTarget, ttl time.Duration) {
	_ = c.kv.CacheSet(ctx, careersKey(t.Name), t, int(ttl.Seconds()))
}

func careersKey(company string) string { return "careers:" + normalizeName(company) }
