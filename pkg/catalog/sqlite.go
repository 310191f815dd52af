package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const defaultSearchLimit = 10

// SQLiteCatalog reads products from a local SQLite file.
type SQLiteCatalog struct {
	db          *sql.DB
	searchLimit int
}

// NewSQLiteCatalog creates/opens the catalog database at path.
func NewSQLiteCatalog(path string, searchLimit int) (*SQLiteCatalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog db dir: %w", err)
	}
	if searchLimit <= 0 {
		searchLimit = defaultSearchLimit
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single shared connection avoids writer lock contention with SQLite
	// under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	c := &SQLiteCatalog{db: db, searchLimit: searchLimit}
	if err := c.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLiteCatalog) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			sizes TEXT NOT NULL DEFAULT '',
			price INTEGER NOT NULL,
			stock INTEGER NOT NULL DEFAULT 0,
			sold INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS products_category_idx ON products(category, price);`,
		`CREATE INDEX IF NOT EXISTS products_sold_idx ON products(sold DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("init catalog schema: %w", err)
		}
	}
	return nil
}

func (c *SQLiteCatalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *SQLiteCatalog) Search(ctx context.Context, q Query) ([]Product, error) {
	where := []string{"stock > 0"}
	args := []interface{}{}

	if q.Keyword != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+q.Keyword+"%")
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.Brand != "" {
		where = append(where, "brand = ?")
		args = append(args, q.Brand)
	}
	if q.Color != "" {
		where = append(where, "color = ?")
		args = append(args, q.Color)
	}
	if q.Size != "" {
		where = append(where, "(sizes = ? OR sizes LIKE ? OR sizes LIKE ? OR sizes LIKE ?)")
		args = append(args, q.Size, q.Size+",%", "%,"+q.Size, "%,"+q.Size+",%")
	}
	if q.PriceMin > 0 {
		where = append(where, "price >= ?")
		args = append(args, q.PriceMin)
	}
	if q.PriceMax > 0 {
		where = append(where, "price <= ?")
		args = append(args, q.PriceMax)
	}

	limit := q.Limit
	if limit <= 0 || limit > c.searchLimit {
		limit = c.searchLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT id, name, category, brand, color, sizes, price, stock, sold
FROM products
WHERE %s
ORDER BY sold DESC, price ASC
LIMIT ?`, strings.Join(where, " AND "))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (c *SQLiteCatalog) Stats(ctx context.Context) (Stats, error) {
	row := c.db.QueryRowContext(ctx, `
SELECT COUNT(*),
	COALESCE(SUM(stock), 0),
	COUNT(DISTINCT category),
	COALESCE(MIN(price), 0),
	COALESCE(MAX(price), 0),
	COALESCE(CAST(AVG(price) AS INTEGER), 0)
FROM products`)

	var st Stats
	if err := row.Scan(&st.TotalProducts, &st.TotalStock, &st.Categories, &st.MinPrice, &st.MaxPrice, &st.AvgPrice); err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	return st, nil
}

func (c *SQLiteCatalog) Trending(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = c.searchLimit
	}
	rows, err := c.db.QueryContext(ctx, `
SELECT id, name, category, brand, color, sizes, price, stock, sold
FROM products
WHERE stock > 0
ORDER BY sold DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("trending products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// Seed inserts or replaces products; it exists for bootstrap and tests.
func (c *SQLiteCatalog) Seed(ctx context.Context, products []Product) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed catalog begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range products {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO products(id, name, category, brand, color, sizes, price, stock, sold)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	category = excluded.category,
	brand = excluded.brand,
	color = excluded.color,
	sizes = excluded.sizes,
	price = excluded.price,
	stock = excluded.stock,
	sold = excluded.sold`,
			p.ID, p.Name, p.Category, p.Brand, p.Color, strings.Join(p.Sizes, ","), p.Price, p.Stock, p.Sold); err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func scanProducts(rows *sql.Rows) ([]Product, error) {
	out := []Product{}
	for rows.Next() {
		var p Product
		var sizes string
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Brand, &p.Color, &sizes, &p.Price, &p.Stock, &p.Sold); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if sizes != "" {
			p.Sizes = strings.Split(sizes, ",")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}
