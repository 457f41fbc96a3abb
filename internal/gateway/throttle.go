package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// Throttle bounds per-tenant AI invocation rates.
type Throttle interface {
	// Allow consumes one invocation slot or fails with CodeQuotaExceeded.
	Allow(ctx context.Context, tenantID id.TenantID) error
}

const throttleKeyPrefix = "gw:throttle:"

var errQuotaExceeded = dErrors.New(dErrors.CodeQuotaExceeded, "AI invocation quota exceeded for this tenant")

// RedisThrottle is a fixed-window counter shared across instances. One key
// per tenant per minute, expired by Redis.
type RedisThrottle struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisThrottle(client *redis.Client, limitPerMinute int) *RedisThrottle {
	return &RedisThrottle{
		client: client,
		limit:  limitPerMinute,
		window: time.Minute,
	}
}

func (t *RedisThrottle) Allow(ctx context.Context, tenantID id.TenantID) error {
	now := requestcontext.Now(ctx)
	key := fmt.Sprintf("%s%s:%d", throttleKeyPrefix, tenantID.String(), now.Unix()/int64(t.window.Seconds()))

	pipe := t.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("throttle incr: %w", err)
	}
	if incr.Val() > int64(t.limit) {
		return errQuotaExceeded
	}
	return nil
}

// MemoryThrottle is the single-instance fallback used when Redis is not
// configured.
type MemoryThrottle struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	counts map[string]int
	starts map[string]time.Time
}

func NewMemoryThrottle(limitPerMinute int) *MemoryThrottle {
	return &MemoryThrottle{
		limit:  limitPerMinute,
		window: time.Minute,
		counts: make(map[string]int),
		starts: make(map[string]time.Time),
	}
}

func (t *MemoryThrottle) Allow(ctx context.Context, tenantID id.TenantID) error {
	now := requestcontext.Now(ctx)
	key := tenantID.String()

	t.mu.Lock()
	defer t.mu.Unlock()
	if start, ok := t.starts[key]; !ok || now.Sub(start) >= t.window {
		t.starts[key] = now
		t.counts[key] = 0
	}
	t.counts[key]++
	if t.counts[key] > t.limit {
		return errQuotaExceeded
	}
	return nil
}
