package plans

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stackseek/stackseek/pkg/observability"
)

// CachedRegistry layers an in-process LRU (L1) and Redis (L2) in front of
// another Registry. Plan lookups sit on the hot path of every quota
// decision; the catalog itself changes rarely.
//
// A missing plan is never cached. Redis errors degrade to the underlying
// registry and are logged at debug level.
type CachedRegistry struct {
	next    Registry
	l1      *lru.LRU[string, *Plan]
	redis   *redis.Client
	ttl     time.Duration
	log     *observability.Logger
	metrics *observability.Metrics
}

// CachedRegistryOptions configures a CachedRegistry
type CachedRegistryOptions struct {
	L1Size  int
	TTL     time.Duration
	Redis   *redis.Client // optional
	Logger  *observability.Logger
	Metrics *observability.Metrics // optional
}

// NewCachedRegistry creates a new CachedRegistry wrapping next
func NewCachedRegistry(next Registry, opts CachedRegistryOptions) *CachedRegistry {
	if opts.L1Size <= 0 {
		opts.L1Size = 128
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	return &CachedRegistry{
		next:    next,
		l1:      lru.NewLRU[string, *Plan](opts.L1Size, nil, opts.TTL),
		redis:   opts.Redis,
		ttl:     opts.TTL,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
}

// GetPlan retrieves a plan by name, consulting L1, then Redis, then the
// underlying registry.
func (c *CachedRegistry) GetPlan(ctx context.Context, name string) (*Plan, error) {
	if plan, ok := c.l1.Get(name); ok {
		c.recordHit("l1")
		return plan, nil
	}

	if c.redis != nil {
		if plan, err := c.getFromRedis(ctx, name); err != nil {
			c.log.WithError(err).Debugf("redis plan lookup failed for %q", name)
		} else if plan != nil {
			c.recordHit("l2")
			c.l1.Add(name, plan)
			return plan, nil
		}
	}

	c.recordMiss()

	plan, err := c.next.GetPlan(ctx, name)
	if err != nil {
		return nil, err
	}

	c.l1.Add(name, plan)
	if c.redis != nil {
		if err := c.setInRedis(ctx, plan); err != nil {
			c.log.WithError(err).Debugf("redis plan store failed for %q", name)
		}
	}

	return plan, nil
}

// Invalidate drops a plan from both cache tiers
func (c *CachedRegistry) Invalidate(ctx context.Context, name string) error {
	c.l1.Remove(name)
	if c.redis != nil {
		if err := c.redis.Del(ctx, planKey(name)).Err(); err != nil {
			return fmt.Errorf("failed to invalidate plan %q: %w", name, err)
		}
	}
	return nil
}

func (c *CachedRegistry) getFromRedis(ctx context.Context, name string) (*Plan, error) {
	data, err := c.redis.Get(ctx, planKey(name)).Result()
	if err == redis.Nil {
		return nil, nil // Cache miss
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var plan Plan
	if err := json.Unmarshal([]byte(data), &plan); err != nil {
		// If unmarshal fails, delete corrupt data
		c.redis.Del(ctx, planKey(name))
		return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
	}

	return &plan, nil
}

func (c *CachedRegistry) setInRedis(ctx context.Context, plan *Plan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	return c.redis.Set(ctx, planKey(plan.Name), data, c.ttl).Err()
}

func (c *CachedRegistry) recordHit(tier string) {
	if c.metrics != nil {
		c.metrics.PlanCacheHitsTotal.WithLabelValues(tier).Inc()
	}
}

func (c *CachedRegistry) recordMiss() {
	if c.metrics != nil {
		c.metrics.PlanCacheMissesTotal.Inc()
	}
}

func planKey(name string) string {
	return fmt.Sprintf("plan:%s", name)
}
