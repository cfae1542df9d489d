package cart

import (
	"context"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/catalog"
)

const (
	ReasonAdd        = "cart.add"
	ReasonUpdate     = "cart.update"
	ReasonRemove     = "cart.remove"
	ReasonClear      = "cart.clear"
	ReasonCompensate = "saga.compensate"

	ActionAdded   = "added"
	ActionUpdated = "updated"
	ActionRemoved = "removed"
	ActionCleared = "cleared"
)

type StockAdjustment struct {
	ProductID      int64
	Delta          int
	StockQuantity  int
	StockStatus    catalog.StockStatus
	PreviousStatus catalog.StockStatus
	Reason         string
}

type ItemChange struct {
	SessionID string
	ProductID int64
	Quantity  int
	Action    string
}

// Publisher receives notifications after a cart operation has been applied.
// Failures are logged by the service and never undo the operation.
type Publisher interface {
	PublishStockAdjusted(ctx context.Context, adj StockAdjustment) error
	PublishItemChanged(ctx context.Context, change ItemChange) error
}

type nopPublisher struct{}

func (nopPublisher) PublishStockAdjusted(context.Context, StockAdjustment) error { return nil }

func (nopPublisher) PublishItemChanged(context.Context, ItemChange) error { return nil }
