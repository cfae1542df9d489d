package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/catalog"
)

// DBPool matches the methods from *pgxpool.Pool that the cart store uses.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Repository persists cart lines. (session, product) is unique.
type Repository interface {
	FindBySession(ctx context.Context, sessionID string) ([]Item, error)
	GetItem(ctx context.Context, sessionID string, productID int64) (Item, error)
	AddItem(ctx context.Context, sessionID string, productID int64, quantity int) (Item, error)
	// UpdateItem, RemoveItem and ClearCart only touch lines still holding the
	// quantity the caller read; anything else is left for the caller to reconcile.
	UpdateItem(ctx context.Context, sessionID string, productID int64, from, to int) (Item, error)
	RemoveItem(ctx context.Context, sessionID string, productID int64, quantity int) error
	ClearCart(ctx context.Context, sessionID string, lines []Item) ([]int64, error)
}

var itemColumns = `ci.id, ci.session_id, ci.product_id, ci.quantity, ci.created_at, ` + catalog.ProductColumns("p")

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) FindBySession(ctx context.Context, sessionID string) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.session_id = $1
		ORDER BY ci.created_at ASC, ci.id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) GetItem(ctx context.Context, sessionID string, productID int64) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.session_id = $1 AND ci.product_id = $2
	`, sessionID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, &ItemNotFoundError{ProductID: productID}
		}
		return Item{}, fmt.Errorf("get cart item: %w", err)
	}
	return it, nil
}

// AddItem creates the line or increments an existing one by quantity.
func (r *PostgresRepository) AddItem(ctx context.Context, sessionID string, productID int64, quantity int) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `
		WITH upserted AS (
			INSERT INTO cart_items (session_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (product_id, session_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
			RETURNING id, session_id, product_id, quantity, created_at
		)
		SELECT `+itemColumns+`
		FROM upserted ci
		JOIN products p ON p.id = ci.product_id
	`, sessionID, productID, quantity))
	if err != nil {
		return Item{}, fmt.Errorf("upsert cart item: %w", err)
	}
	return it, nil
}

func (r *PostgresRepository) UpdateItem(ctx context.Context, sessionID string, productID int64, from, to int) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `
		WITH updated AS (
			UPDATE cart_items
			SET quantity = $4, updated_at = now()
			WHERE session_id = $1 AND product_id = $2 AND quantity = $3
			RETURNING id, session_id, product_id, quantity, created_at
		)
		SELECT `+itemColumns+`
		FROM updated ci
		JOIN products p ON p.id = ci.product_id
	`, sessionID, productID, from, to))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, &ItemChangedError{ProductID: productID}
		}
		return Item{}, fmt.Errorf("update cart item: %w", err)
	}
	return it, nil
}

func (r *PostgresRepository) RemoveItem(ctx context.Context, sessionID string, productID int64, quantity int) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM cart_items
		WHERE session_id = $1 AND product_id = $2 AND quantity = $3
	`, sessionID, productID, quantity)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &ItemChangedError{ProductID: productID}
	}
	return nil
}

// ClearCart deletes the given lines if they are unchanged and returns the ids
// it removed. Lines added or resized since they were read survive.
func (r *PostgresRepository) ClearCart(ctx context.Context, sessionID string, lines []Item) ([]int64, error) {
	if len(lines) == 0 {
		return []int64{}, nil
	}
	ids := make([]int64, len(lines))
	quantities := make([]int32, len(lines))
	for i, it := range lines {
		ids[i] = it.ID
		quantities[i] = int32(it.Quantity)
	}

	rows, err := r.pool.Query(ctx, `
		DELETE FROM cart_items ci
		USING unnest($2::bigint[], $3::int[]) AS expected(id, quantity)
		WHERE ci.session_id = $1 AND ci.id = expected.id AND ci.quantity = expected.quantity
		RETURNING ci.id
	`, sessionID, ids, quantities)
	if err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}
	removed, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// itemRow prepends the cart line columns so the product columns that follow
// can be read by catalog.ScanProduct.
type itemRow struct {
	row  rowScanner
	item *Item
}

func (r itemRow) Scan(dest ...any) error {
	head := []any{&r.item.ID, &r.item.SessionID, &r.item.ProductID, &r.item.Quantity, &r.item.CreatedAt}
	return r.row.Scan(append(head, dest...)...)
}

func scanItem(row rowScanner) (Item, error) {
	var it Item
	p, err := catalog.ScanProduct(itemRow{row: row, item: &it})
	if err != nil {
		return Item{}, err
	}
	it.Product = p
	return it, nil
}
