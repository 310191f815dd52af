package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryCatalog is an in-process Catalog used when no database is
// configured and in tests.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products []Product
}

func NewMemoryCatalog(products []Product) *MemoryCatalog {
	return &MemoryCatalog{products: products}
}

func (c *MemoryCatalog) Search(ctx context.Context, q Query) ([]Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	out := []Product{}
	for _, p := range c.products {
		if p.Stock <= 0 {
			continue
		}
		if q.Keyword != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Keyword)) {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.Brand != "" && p.Brand != q.Brand {
			continue
		}
		if q.Color != "" && p.Color != q.Color {
			continue
		}
		if q.Size != "" && !hasSize(p.Sizes, q.Size) {
			continue
		}
		if q.PriceMin > 0 && p.Price < q.PriceMin {
			continue
		}
		if q.PriceMax > 0 && p.Price > q.PriceMax {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sold != out[j].Sold {
			return out[i].Sold > out[j].Sold
		}
		return out[i].Price < out[j].Price
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *MemoryCatalog) Stats(ctx context.Context) (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Stats{}
	categories := map[string]struct{}{}
	total := 0
	for _, p := range c.products {
		st.TotalProducts++
		st.TotalStock += p.Stock
		categories[p.Category] = struct{}{}
		total += p.Price
		if st.MinPrice == 0 || p.Price < st.MinPrice {
			st.MinPrice = p.Price
		}
		if p.Price > st.MaxPrice {
			st.MaxPrice = p.Price
		}
	}
	st.Categories = len(categories)
	if st.TotalProducts > 0 {
		st.AvgPrice = total / st.TotalProducts
	}
	return st, nil
}

func (c *MemoryCatalog) Trending(ctx context.Context, limit int) ([]Product, error) {
	return c.Search(ctx, Query{Limit: limit})
}

func (c *MemoryCatalog) Close() error { return nil }

func hasSize(sizes []string, want string) bool {
	for _, s := range sizes {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}
