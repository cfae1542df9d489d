package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	FindByID(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context, filter Filter) ([]Product, error)
	UpdateStockQuantity(ctx context.Context, id int64, delta int) (Product, error)
	Update(ctx context.Context, id int64, data UpdateProductData) (Product, error)
	BatchUpdate(ctx context.Context, items []BatchUpdateItem) ([]Product, error)
}

// Filter narrows List. Zero values mean "no constraint", except IsAI which
// always selects one of the two catalogs.
type Filter struct {
	IsAI     bool
	Category string
	Tags     []string
	Query    string
	Featured bool
	TopRated bool
}

type UpdateProductData struct {
	Name          *string          `json:"name,omitempty"`
	Image         *string          `json:"image,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Tags          *[]string        `json:"tags,omitempty"`
	Rating        *float64         `json:"rating,omitempty"`
	Background    *string          `json:"background,omitempty"`
	BackgroundImg *string          `json:"backgroundImg,omitempty"`
	IsAI          *bool            `json:"isAI,omitempty"`
	StockQuantity *int             `json:"stockQuantity,omitempty"`
	StockStatus   *StockStatus     `json:"stockStatus,omitempty"`
}

type BatchUpdateItem struct {
	ID   int64             `json:"id"`
	Data UpdateProductData `json:"data"`
}

const productColumns = `id, name, image, price::text, tags, rating::float8, background,
	COALESCE(background_img, ''), is_ai, stock_quantity, stock_status, created_at, updated_at`

// stockStatusSQL is the SQL rendering of ResolveStockStatus for a quantity expression.
func stockStatusSQL(quantityExpr string) string {
	return fmt.Sprintf(`CASE
		WHEN stock_status = 'PRE_ORDER' THEN stock_status
		WHEN %[1]s = 0 THEN 'OUT_OF_STOCK'
		WHEN %[1]s <= %[2]d THEN 'LOW_STOCK'
		ELSE 'IN_STOCK'
	END`, quantityExpr, LowStockThreshold)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, &ProductNotFoundError{ID: id}
		}
		return Product{}, fmt.Errorf("find product %d: %w", id, err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Product, error) {
	where := []string{"is_ai = $1"}
	args := []any{filter.IsAI}

	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if len(filter.Tags) > 0 {
		args = append(args, filter.Tags)
		where = append(where, fmt.Sprintf("tags && $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, filter.Query)
		where = append(where, fmt.Sprintf("name ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if filter.Featured {
		args = append(args, FeaturedTag)
		where = append(where, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if filter.TopRated {
		args = append(args, MaxRating)
		where = append(where, fmt.Sprintf("rating >= $%d", len(args)))
	}

	sql := `SELECT ` + productColumns + ` FROM products WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id`
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// UpdateStockQuantity applies delta and re-derives the status in a single
// conditional statement, so concurrent callers can never drive stock below zero.
func (r *PostgresRepository) UpdateStockQuantity(ctx context.Context, id int64, delta int) (Product, error) {
	sql := `UPDATE products
		SET stock_quantity = stock_quantity + $2,
			stock_status = ` + stockStatusSQL("stock_quantity + $2") + `,
			updated_at = now()
		WHERE id = $1 AND stock_quantity + $2 >= 0
		RETURNING ` + productColumns

	p, err := scanProduct(r.pool.QueryRow(ctx, sql, id, delta))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("update stock for product %d: %w", id, err)
	}

	// Nothing matched: either the product is gone or the floor check failed.
	var current int
	err = r.pool.QueryRow(ctx, `SELECT stock_quantity FROM products WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, &ProductNotFoundError{ID: id}
		}
		return Product{}, fmt.Errorf("read stock for product %d: %w", id, err)
	}
	return Product{}, &NegativeStockError{ProductID: id, Current: current, Delta: delta}
}

func (r *PostgresRepository) Update(ctx context.Context, id int64, data UpdateProductData) (Product, error) {
	return r.update(ctx, r.pool, id, data)
}

func (r *PostgresRepository) BatchUpdate(ctx context.Context, items []BatchUpdateItem) ([]Product, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin batch update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updated := make([]Product, 0, len(items))
	for _, item := range items {
		p, err := r.update(ctx, tx, item.ID, item.Data)
		if err != nil {
			return nil, err
		}
		updated = append(updated, p)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit batch update: %w", err)
	}
	return updated, nil
}

func (r *PostgresRepository) update(ctx context.Context, q querier, id int64, data UpdateProductData) (Product, error) {
	sets := []string{}
	args := []any{id}
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if data.Name != nil {
		set("name", strings.TrimSpace(*data.Name))
	}
	if data.Image != nil {
		set("image", *data.Image)
	}
	if data.Price != nil {
		set("price", data.Price.String())
	}
	if data.Tags != nil {
		set("tags", *data.Tags)
	}
	if data.Rating != nil {
		set("rating", *data.Rating)
	}
	if data.Background != nil {
		set("background", *data.Background)
	}
	if data.BackgroundImg != nil {
		set("background_img", *data.BackgroundImg)
	}
	if data.IsAI != nil {
		set("is_ai", *data.IsAI)
	}
	if data.StockQuantity != nil {
		set("stock_quantity", *data.StockQuantity)
		if data.StockStatus == nil {
			sets = append(sets, "stock_status = "+stockStatusSQL(fmt.Sprintf("$%d::int", len(args))))
		}
	}
	if data.StockStatus != nil {
		set("stock_status", string(*data.StockStatus))
	}

	if len(sets) == 0 {
		p, err := scanProduct(q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
		return p, mapNoRows(err, id)
	}
	sets = append(sets, "updated_at = now()")

	sql := `UPDATE products SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + productColumns
	p, err := scanProduct(q.QueryRow(ctx, sql, args...))
	return p, mapNoRows(err, id)
}

func mapNoRows(err error, id int64) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return &ProductNotFoundError{ID: id}
	default:
		return fmt.Errorf("update product %d: %w", id, err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ScanProduct reads the columns listed in ProductColumns("").
func ScanProduct(row rowScanner) (Product, error) {
	return scanProduct(row)
}

// ProductColumns returns the product select list qualified with alias.
func ProductColumns(alias string) string {
	if alias == "" {
		return productColumns
	}
	a := alias + "."
	return a + "id, " + a + "name, " + a + "image, " + a + "price::text, " + a + "tags, " + a + "rating::float8, " +
		a + "background, COALESCE(" + a + "background_img, ''), " + a + "is_ai, " + a + "stock_quantity, " +
		a + "stock_status, " + a + "created_at, " + a + "updated_at"
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p      Product
		price  string
		rating float64
		status string
		tags   []string
		create time.Time
		update time.Time
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Image, &price, &tags, &rating, &p.Background,
		&p.BackgroundImg, &p.IsAI, &p.StockQuantity, &status, &create, &update,
	)
	if err != nil {
		return Product{}, err
	}

	amount, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	if p.Price, err = NewMoney(amount); err != nil {
		return Product{}, err
	}
	if p.Rating, err = NewRating(rating); err != nil {
		return Product{}, err
	}
	if p.StockStatus, err = ParseStockStatus(status); err != nil {
		return Product{}, err
	}
	if tags == nil {
		tags = []string{}
	}
	p.Tags = tags
	p.CreatedAt = create
	p.UpdatedAt = update
	return p, nil
}
