package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mapKV map[string][]byte

func (m mapKV) CacheGet(_ context.Context, key string, dest interface{}) error {
	b, ok := m[key]
	if !ok {
		return errors.New("miss")
	}
	return json.Unmarshal(b, dest)
}

func (m mapKV) CacheSet(_ context.Context, key string, val interface{}, _ int) error {
	b, err := json.Marshal(val)
	m[key] = b
	return err
}

func TestCareersCache_KeysByNormalizedName(t *testing.T) {
	kv := mapKV{}
	cache := NewCareersCache(kv)
	ctx := context.Background()

	cache.SetCareers(ctx, CompanyTarget{Name: "Deep Mind", CareersURL: "https://deepmind.google/careers", Confidence: ConfidenceHigh}, time.Hour)

	assert.Contains(t, kv, "careers:deepmind")
	got, ok := cache.GetCareers(ctx, "deepmind")
	assert.True(t, ok)
	assert.Equal(t, ConfidenceHigh, got.Confidence)

	_, ok = cache.GetCareers(ctx, "Globex")
	assert.False(t, ok)
}
