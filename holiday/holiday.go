// Package holiday answers whether a date is a national holiday. Holidays are
// fetched once per calendar year and kept for the life of the Cache.
package holiday

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DateLayout is the ISO date form holidays are stored and compared in.
const DateLayout = "2006-01-02"

// Fetcher loads the holiday dates of one year, formatted with DateLayout.
type Fetcher interface {
	Fetch(ctx context.Context, year int) ([]string, error)
}

// Cache memoizes holidays per year. A year is fetched on its first lookup and
// never refreshed; a failed fetch stores nothing, so the next lookup retries.
// Concurrent lookups of an unloaded year share one fetch.
type Cache struct {
	fetcher Fetcher
	log     zerolog.Logger

	mu    sync.RWMutex
	years map[int]map[string]struct{}
	group singleflight.Group
}

func NewCache(fetcher Fetcher, log zerolog.Logger) *Cache {
	return &Cache{
		fetcher: fetcher,
		log:     log.With().Str("component", "holiday").Logger(),
		years:   make(map[int]map[string]struct{}),
	}
}

// IsHoliday reports whether date falls on a holiday. The calendar day is
// taken in date's own location.
func (c *Cache) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	set, err := c.year(ctx, date.Year())
	if err != nil {
		return false, err
	}
	_, ok := set[date.Format(DateLayout)]
	return ok, nil
}

// Holidays returns the holiday dates of year in ascending order.
func (c *Cache) Holidays(ctx context.Context, year int) ([]string, error) {
	set, err := c.year(ctx, year)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

func (c *Cache) year(ctx context.Context, year int) (map[string]struct{}, error) {
	c.mu.RLock()
	set, ok := c.years[year]
	c.mu.RUnlock()
	if ok {
		return set, nil
	}

	// The shared fetch outlives any single caller; the fetcher's own timeout
	// bounds it. Each caller still gives up when its ctx is done.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(strconv.Itoa(year), func() (any, error) {
		return c.load(fetchCtx, year)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetching holidays for %d: %w", year, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]struct{}), nil
	}
}

func (c *Cache) load(ctx context.Context, year int) (map[string]struct{}, error) {
	c.mu.RLock()
	set, ok := c.years[year]
	c.mu.RUnlock()
	if ok {
		return set, nil
	}

	start := time.Now()
	dates, err := c.fetcher.Fetch(ctx, year)
	if err != nil {
		c.log.Warn().Err(err).Int("year", year).Msg("holiday fetch failed")
		return nil, fmt.Errorf("fetching holidays for %d: %w", year, err)
	}

	set = make(map[string]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}

	c.mu.Lock()
	c.years[year] = set
	c.mu.Unlock()

	c.log.Info().
		Int("year", year).
		Int("count", len(set)).
		Dur("duration", time.Since(start)).
		Msg("holidays loaded")
	return set, nil
}
