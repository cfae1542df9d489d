package events

import (
	"fmt"
	"time"
)

const (
	EventTypeStockAdjusted   = "StockAdjusted"
	EventTypeCartItemChanged = "CartItemChanged"

	stockAdjustedSchema   = "catalog.stock-adjusted.v1"
	cartItemChangedSchema = "catalog.cart-item-changed.v1"
)

type StockAdjustedPayload struct {
	ProductID      int64     `json:"productId"`
	Delta          int       `json:"delta"`
	StockQuantity  int       `json:"stockQuantity"`
	StockStatus    string    `json:"stockStatus"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	Reason         string    `json:"reason"`
	Timestamp      time.Time `json:"timestamp"`
}

type CartItemChangedPayload struct {
	SessionID string    `json:"sessionId"`
	ProductID int64     `json:"productId,omitempty"`
	Quantity  int       `json:"quantity"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func productPartition(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}

func sessionPartition(sessionID string) string {
	return "session:" + sessionID
}
