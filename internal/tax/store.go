package tax

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taxengine/internal/model"

	"github.com/patrickmn/go-cache"
	"github.com/sethvargo/go-retry"
)

// ScheduleStore is the read side of published rate data
type ScheduleStore interface {
	GetSchedule(ctx context.Context, role, policyVersion string) (*model.RateSchedule, error)
	GetActiveVersion(ctx context.Context, role string, asOf time.Time) (string, error)
	GetLevyRules(ctx context.Context, policyVersion string) ([]model.LevyRule, error)
	GetVATCategories(ctx context.Context, policyVersion string) ([]model.VATCategory, error)
}

type CachedStoreConfig struct {
	Timeout     time.Duration // per attempt
	MaxRetries  uint64
	BaseBackoff time.Duration
	ActiveTTL   time.Duration
}

func DefaultCachedStoreConfig() CachedStoreConfig {
	return CachedStoreConfig{
		Timeout:     2 * time.Second,
		MaxRetries:  3,
		BaseBackoff: 25 * time.Millisecond,
		ActiveTTL:   10 * time.Minute,
	}
}

// CachedStore caches published records forever (they are immutable per version) and
// active-version lookups until the next publish. Lookups are retried a bounded number
// of times; transient failures surface as ErrScheduleUnavailable.
type CachedStore struct {
	next    ScheduleStore
	cfg     CachedStoreConfig
	records *cache.Cache
	active  *cache.Cache
}

func NewCachedStore(next ScheduleStore, cfg CachedStoreConfig) *CachedStore {
	return &CachedStore{
		next:    next,
		cfg:     cfg,
		records: cache.New(cache.NoExpiration, 0),
		active:  cache.New(cfg.ActiveTTL, 2*cfg.ActiveTTL),
	}
}

func (c *CachedStore) GetSchedule(ctx context.Context, role, policyVersion string) (*model.RateSchedule, error) {
	key := "schedule:" + role + ":" + policyVersion
	if v, ok := c.records.Get(key); ok {
		return v.(*model.RateSchedule), nil
	}
	var schedule *model.RateSchedule
	err := c.fetch(ctx, func(ctx context.Context) error {
		var err error
		schedule, err = c.next.GetSchedule(ctx, role, policyVersion)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.records.Set(key, schedule, cache.NoExpiration)
	return schedule, nil
}

func (c *CachedStore) GetActiveVersion(ctx context.Context, role string, asOf time.Time) (string, error) {
	key := role + ":" + asOf.Format("2006-01-02")
	if v, ok := c.active.Get(key); ok {
		return v.(string), nil
	}
	var version string
	err := c.fetch(ctx, func(ctx context.Context) error {
		var err error
		version, err = c.next.GetActiveVersion(ctx, role, asOf)
		return err
	})
	if err != nil {
		return "", err
	}
	c.active.Set(key, version, cache.DefaultExpiration)
	return version, nil
}

func (c *CachedStore) GetLevyRules(ctx context.Context, policyVersion string) ([]model.LevyRule, error) {
	key := "levy:" + policyVersion
	if v, ok := c.records.Get(key); ok {
		return v.([]model.LevyRule), nil
	}
	var rules []model.LevyRule
	err := c.fetch(ctx, func(ctx context.Context) error {
		var err error
		rules, err = c.next.GetLevyRules(ctx, policyVersion)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.records.Set(key, rules, cache.NoExpiration)
	return rules, nil
}

func (c *CachedStore) GetVATCategories(ctx context.Context, policyVersion string) ([]model.VATCategory, error) {
	key := "vat:" + policyVersion
	if v, ok := c.records.Get(key); ok {
		return v.([]model.VATCategory), nil
	}
	var categories []model.VATCategory
	err := c.fetch(ctx, func(ctx context.Context) error {
		var err error
		categories, err = c.next.GetVATCategories(ctx, policyVersion)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.records.Set(key, categories, cache.NoExpiration)
	return categories, nil
}

// InvalidateActive drops cached active-version lookups. Called after a publish.
func (c *CachedStore) InvalidateActive() {
	c.active.Flush()
}

// InvalidateVersion drops every cached record of policyVersion, including empty
// levy or category lists read before the version was published.
func (c *CachedStore) InvalidateVersion(policyVersion string) {
	suffix := ":" + policyVersion
	for key := range c.records.Items() {
		if strings.HasSuffix(key, suffix) {
			c.records.Delete(key)
		}
	}
}

func (c *CachedStore) fetch(ctx context.Context, op func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(c.cfg.MaxRetries, retry.NewExponential(c.cfg.BaseBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		if err := op(attemptCtx); err != nil {
			if isDefinitive(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err == nil || isDefinitive(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrScheduleUnavailable, err)
}

// isDefinitive reports errors that a retry cannot change
func isDefinitive(err error) bool {
	return errors.Is(err, ErrNoApplicableSchedule) ||
		errors.Is(err, ErrScheduleNotFound) ||
		errors.Is(err, model.ErrInvalidSchedule)
}
