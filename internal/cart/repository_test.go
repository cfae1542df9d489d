package cart

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/catalog"
)

var itemCols = []string{
	"id", "session_id", "product_id", "quantity", "created_at",
	"p_id", "name", "image", "price", "tags", "rating", "background",
	"background_img", "is_ai", "stock_quantity", "stock_status", "p_created_at", "updated_at",
}

func itemRows(lines ...[2]int) *pgxmock.Rows {
	now := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(itemCols)
	for i, l := range lines {
		productID, qty := int64(l[0]), l[1]
		rows.AddRow(
			int64(i+1), "s1", productID, qty, now,
			productID, "Snow man", "", "5.30", []string{"snow", "xmas"}, 4.5, "#810CC5",
			"", false, 40, string(catalog.InStock), now, now,
		)
	}
	return rows
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestPostgresRepository_FindBySession(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE ci.session_id = $1`)).
		WithArgs("s1").
		WillReturnRows(itemRows([2]int{113, 2}, [2]int{114, 1}))

	items, err := repo.FindBySession(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(113), items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "Snow man", items[0].Product.Name)
	assert.Equal(t, "10.60", items[0].Subtotal().String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetItem_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE ci.session_id = $1 AND ci.product_id = $2`)).
		WithArgs("s1", int64(5)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetItem(context.Background(), "s1", 5)
	require.ErrorIs(t, err, ErrItemNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_AddItem_Upserts(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (product_id, session_id)`)).
		WithArgs("s1", int64(113), 3).
		WillReturnRows(itemRows([2]int{113, 5}))

	it, err := repo.AddItem(context.Background(), "s1", 113, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, it.Quantity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateItem(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE session_id = $1 AND product_id = $2 AND quantity = $3`)).
		WithArgs("s1", int64(113), 2, 4).
		WillReturnRows(itemRows([2]int{113, 4}))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE session_id = $1 AND product_id = $2 AND quantity = $3`)).
		WithArgs("s1", int64(113), 2, 4).
		WillReturnError(pgx.ErrNoRows)

	it, err := repo.UpdateItem(context.Background(), "s1", 113, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, it.Quantity)

	_, err = repo.UpdateItem(context.Background(), "s1", 113, 2, 4)
	var changed *ItemChangedError
	require.ErrorAs(t, err, &changed)
	assert.Equal(t, "CART_ITEM_CHANGED", changed.Code())
	require.ErrorIs(t, err, ErrItemChanged)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_RemoveItem(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`WHERE session_id = $1 AND product_id = $2 AND quantity = $3`)).
		WithArgs("s1", int64(113), 3).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`WHERE session_id = $1 AND product_id = $2 AND quantity = $3`)).
		WithArgs("s1", int64(113), 3).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.RemoveItem(context.Background(), "s1", 113, 3))
	require.ErrorIs(t, repo.RemoveItem(context.Background(), "s1", 113, 3), ErrItemChanged)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ClearCart(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	lines := []Item{
		{ID: 7, SessionID: "s1", ProductID: 113, Quantity: 2},
		{ID: 8, SessionID: "s1", ProductID: 114, Quantity: 1},
	}
	mock.ExpectQuery(regexp.QuoteMeta(`USING unnest($2::bigint[], $3::int[])`)).
		WithArgs("s1", []int64{7, 8}, []int32{2, 1}).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	removed, err := repo.ClearCart(context.Background(), "s1", lines)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, removed)

	removed, err = repo.ClearCart(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.Empty(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}
