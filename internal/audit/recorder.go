package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Exclusion reasons. An exclusion is a source row dropped by a validity
// predicate or a failed join key. It is not an error, but it must stay
// observable for data-quality auditing.
const (
	ReasonNonPositiveTotal  = "orders.non_positive_total"
	ReasonNoCustomerMatch   = "orders.no_customer_match"
	ReasonNoLineItems       = "orders.no_line_items"
	ReasonUnresolvedPostal  = "weather.unresolved_postal_code"
	ReasonUnresolvedCountry = "weather.unresolved_country"
	ReasonSalesOnlyDay      = "correlation.sales_only_day"
	ReasonMalformedFeedRow  = "feed.malformed_row"
)

// Recorder counts excluded rows per reason.
type Recorder interface {
	Exclude(ctx context.Context, reason string, n int64)
}

// Reader exposes exclusion counts for auditing and quality monitoring.
type Reader interface {
	Count(ctx context.Context, reason string) (int64, error)
	Counts(ctx context.Context) (map[string]int64, error)
}

// MemoryRecorder is an in-process recorder, used in tests and as a fallback
// when no Redis is configured.
type MemoryRecorder struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryRecorder creates a new in-memory recorder
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{counts: make(map[string]int64)}
}

func (m *MemoryRecorder) Exclude(ctx context.Context, reason string, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[reason] += n
}

func (m *MemoryRecorder) Count(ctx context.Context, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[reason], nil
}

func (m *MemoryRecorder) Counts(ctx context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out, nil
}

// RedisRecorder keeps exclusion counters in Redis so the quality monitor can
// watch them across processes.
type RedisRecorder struct {
	redis *redis.Client
}

// NewRedisRecorder creates a new Redis-backed recorder
func NewRedisRecorder(redisClient *redis.Client) *RedisRecorder {
	return &RedisRecorder{redis: redisClient}
}

func (r *RedisRecorder) key(reason string) string {
	return fmt.Sprintf("exclusions:%s", reason)
}

func (r *RedisRecorder) Exclude(ctx context.Context, reason string, n int64) {
	// Counting must never fail the derivation; drop the increment on error.
	_ = r.redis.IncrBy(ctx, r.key(reason), n).Err()
}

func (r *RedisRecorder) Count(ctx context.Context, reason string) (int64, error) {
	val, err := r.redis.Get(ctx, r.key(reason)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read exclusion counter: %w", err)
	}
	return strconv.ParseInt(val, 10, 64)
}

func (r *RedisRecorder) Counts(ctx context.Context) (map[string]int64, error) {
	keys, err := r.redis.Keys(ctx, "exclusions:*").Result()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	for _, key := range keys {
		val, err := r.redis.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			continue
		}
		counts[strings.TrimPrefix(key, "exclusions:")] = n
	}
	return counts, nil
}
