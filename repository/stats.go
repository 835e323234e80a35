package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-license-server/cache"
	"github.com/goliatone/go-license-server/licensing"
)

const (
	keyStatsOverview      = "stats.overview"
	keyStatsProductsUsage = "stats.products_usage"
	keyStatsMonthly       = "stats.monthly_licences"
)

// statsKeys lists the statistics cache entries every entity write clears.
// The dashboards tolerate TTL staleness, but not staleness across a write
// the same operator just made.
func statsKeys(keys cache.KeySerializer) []string {
	return []string{
		keys.SerializeKey(keyStatsOverview),
		keys.SerializeKey(keyStatsProductsUsage),
		keys.SerializeKey(keyStatsMonthly),
	}
}

// Overview aggregates the dashboard headline counts.
type Overview struct {
	ActiveLicenses int `json:"active_licences"`
	TotalLicenses  int `json:"total_licences"`
	TotalProducts  int `json:"total_products"`
	TotalClients   int `json:"total_clients"`
}

// ProductUsage counts licenses per product.
type ProductUsage struct {
	Name           string `json:"name"`
	Code           string `json:"code"`
	TotalLicenses  int    `json:"total_licences"`
	ActiveLicenses int    `json:"active_licences"`
}

// MonthlyCount counts licenses expiring in a calendar month.
type MonthlyCount struct {
	Month         string `json:"month"`
	TotalLicenses int    `json:"total_licences"`
}

// Stats serves the cached statistics read paths. The grouping happens in Go
// rather than SQL so the queries stay portable between the sqlite and
// postgres dialects.
type Stats struct {
	db    bun.IDB
	cache cache.CacheService
	keys  cache.KeySerializer
	now   func() time.Time
}

// NewStats builds the statistics reader.
func NewStats(db bun.IDB, cacheSvc cache.CacheService, keys cache.KeySerializer) *Stats {
	return &Stats{db: db, cache: cacheSvc, keys: keys, now: time.Now}
}

// SetClock replaces the time source; tests only.
func (s *Stats) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Stats) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Overview returns the headline counts, cache-aside.
func (s *Stats) Overview(ctx context.Context) (*Overview, error) {
	key := s.keys.SerializeKey(keyStatsOverview)
	return cache.GetOrFetch(ctx, s.cache, key, func(ctx context.Context) (*Overview, error) {
		today := s.today()

		total, err := s.db.NewSelect().Model((*licensing.License)(nil)).Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count licences: %w", err)
		}
		active, err := s.db.NewSelect().Model((*licensing.License)(nil)).
			Where("expiration >= ?", today).Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count active licences: %w", err)
		}
		products, err := s.db.NewSelect().Model((*licensing.Product)(nil)).Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count products: %w", err)
		}
		clients, err := s.db.NewSelect().Model((*licensing.Client)(nil)).Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count clients: %w", err)
		}

		return &Overview{
			ActiveLicenses: active,
			TotalLicenses:  total,
			TotalProducts:  products,
			TotalClients:   clients,
		}, nil
	})
}

// ProductsUsage returns per-product license counts, most-used first.
func (s *Stats) ProductsUsage(ctx context.Context) ([]ProductUsage, error) {
	key := s.keys.SerializeKey(keyStatsProductsUsage)
	return cache.GetOrFetch(ctx, s.cache, key, func(ctx context.Context) ([]ProductUsage, error) {
		var products []licensing.Product
		if err := s.db.NewSelect().Model(&products).Scan(ctx); err != nil {
			return nil, fmt.Errorf("select products: %w", err)
		}
		var licenses []licensing.License
		if err := s.db.NewSelect().Model(&licenses).Scan(ctx); err != nil {
			return nil, fmt.Errorf("select licences: %w", err)
		}

		today := s.today()
		byProduct := make(map[int64]*ProductUsage, len(products))
		usage := make([]ProductUsage, len(products))
		for i, p := range products {
			usage[i] = ProductUsage{Name: p.Name, Code: p.Code}
			byProduct[p.ID] = &usage[i]
		}
		for _, l := range licenses {
			u, ok := byProduct[l.ProductID]
			if !ok {
				continue
			}
			u.TotalLicenses++
			if !l.Expiration.Before(today) {
				u.ActiveLicenses++
			}
		}

		sort.SliceStable(usage, func(i, j int) bool {
			return usage[i].ActiveLicenses > usage[j].ActiveLicenses
		})
		return usage, nil
	})
}

// monthlyWindow caps how many calendar months Monthly reports.
const monthlyWindow = 12

// Monthly returns license counts grouped by expiration month, newest first.
func (s *Stats) Monthly(ctx context.Context) ([]MonthlyCount, error) {
	key := s.keys.SerializeKey(keyStatsMonthly)
	return cache.GetOrFetch(ctx, s.cache, key, func(ctx context.Context) ([]MonthlyCount, error) {
		var licenses []licensing.License
		if err := s.db.NewSelect().Model(&licenses).Scan(ctx); err != nil {
			return nil, fmt.Errorf("select licences: %w", err)
		}

		counts := make(map[string]int)
		for _, l := range licenses {
			counts[l.Expiration.UTC().Format("2006-01")]++
		}

		months := make([]string, 0, len(counts))
		for m := range counts {
			months = append(months, m)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(months)))
		if len(months) > monthlyWindow {
			months = months[:monthlyWindow]
		}

		out := make([]MonthlyCount, len(months))
		for i, m := range months {
			out[i] = MonthlyCount{Month: m, TotalLicenses: counts[m]}
		}
		return out, nil
	})
}
