// Package catalog is the narrow read interface onto the shop's product
// data. The conversation engine only searches and summarizes; writes
// belong to the commerce backend.
package catalog

import "context"

// Product is one sellable item.
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Brand    string   `json:"brand,omitempty"`
	Color    string   `json:"color,omitempty"`
	Sizes    []string `json:"sizes,omitempty"`
	Price    int      `json:"price"`
	Stock    int      `json:"stock"`
	Sold     int      `json:"sold"`
}

// Query narrows a product search. Zero values mean "no filter";
// Keyword matches against the product name.
type Query struct {
	Keyword  string
	Category string
	Brand    string
	Color    string
	Size     string
	PriceMin int
	PriceMax int
	Limit    int
}

// Stats is the shop-level summary surfaced to the AI providers.
type Stats struct {
	TotalProducts int `json:"total_products"`
	TotalStock    int `json:"total_stock"`
	Categories    int `json:"categories"`
	MinPrice      int `json:"min_price"`
	MaxPrice      int `json:"max_price"`
	AvgPrice      int `json:"avg_price"`
}

type Catalog interface {
	Search(ctx context.Context, q Query) ([]Product, error)

	Stats(ctx context.Context) (Stats, error)

	// Trending returns the best-selling in-stock products.
	Trending(ctx context.Context, limit int) ([]Product, error)

	Close() error
}
