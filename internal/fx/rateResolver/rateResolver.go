package rateResolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arjundixit/portfolio_tracker/config"
	"github.com/arjundixit/portfolio_tracker/utils"
	"github.com/shopspring/decimal"
)

type Origin string

const (
	OriginLive     Origin = "live"
	OriginCache    Origin = "cache"
	OriginFallback Origin = "fallback"
)

// Resolution is the outcome of a rate lookup. Origin tells whether the rate
// came from the provider, the in-process cache or the configured fallback.
type Resolution struct {
	Rate      decimal.Decimal
	Origin    Origin
	FetchedAt time.Time
}

type QuoteSource interface {
	GetRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

type cacheEntry struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

type Resolver struct {
	source   QuoteSource
	ttl      time.Duration
	fallback decimal.Decimal

	mu    sync.RWMutex
	cache map[string]cacheEntry

	now func() time.Time
}

func New(cfg *config.Config, source QuoteSource) *Resolver {
	return &Resolver{
		source:   source,
		ttl:      cfg.Rates.CacheTTL,
		fallback: decimal.NewFromFloat(cfg.Rates.FallbackRate),
		cache:    make(map[string]cacheEntry),
		now:      time.Now,
	}
}

// Resolve never returns an error: past the cache TTL a failed provider call
// degrades to the configured fallback rate.
func (r *Resolver) Resolve(ctx context.Context, from, to string) Resolution {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if from == to {
		return Resolution{Rate: decimal.NewFromInt(1), Origin: OriginLive, FetchedAt: r.now()}
	}

	key := fmt.Sprintf("%s/%s", from, to)

	if entry, ok := r.lookup(key); ok && r.now().Sub(entry.fetchedAt) < r.ttl {
		return Resolution{Rate: entry.rate, Origin: OriginCache, FetchedAt: entry.fetchedAt}
	}

	rate, err := r.source.GetRate(ctx, from, to)
	if err == nil && rate.IsPositive() {
		fetchedAt := r.now()
		r.store(key, cacheEntry{rate: rate, fetchedAt: fetchedAt})
		return Resolution{Rate: rate, Origin: OriginLive, FetchedAt: fetchedAt}
	}

	if err != nil {
		slog.Warn("rate fetch failed, using fallback rate", slog.String("rqID", rqID), slog.String("pair", key), slog.String("err", err.Error()), slog.String("rate", r.fallback.String()))
	} else {
		slog.Warn("rate fetch returned non-positive rate, using fallback rate", slog.String("rqID", rqID), slog.String("pair", key), slog.String("rate", r.fallback.String()))
	}
	return Resolution{Rate: r.fallback, Origin: OriginFallback, FetchedAt: r.now()}
}

func (r *Resolver) lookup(key string) (cacheEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[key]
	return entry, ok
}

func (r *Resolver) store(key string, entry cacheEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = entry
}
