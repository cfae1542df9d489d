package catalog

import "fmt"

type StockStatus string

const (
	InStock    StockStatus = "IN_STOCK"
	LowStock   StockStatus = "LOW_STOCK"
	OutOfStock StockStatus = "OUT_OF_STOCK"
	PreOrder   StockStatus = "PRE_ORDER"
)

// LowStockThreshold is the highest quantity still reported as LOW_STOCK.
const LowStockThreshold = 20

func (s StockStatus) Valid() bool {
	switch s {
	case InStock, LowStock, OutOfStock, PreOrder:
		return true
	default:
		return false
	}
}

func (s StockStatus) IsPurchasable() bool {
	return s == InStock || s == LowStock || s == PreOrder
}

func ParseStockStatus(v string) (StockStatus, error) {
	s := StockStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown stock status %q", v)
	}
	return s, nil
}

// DeriveStockStatus maps a quantity onto its status. PRE_ORDER is never derived.
func DeriveStockStatus(quantity int) StockStatus {
	switch {
	case quantity <= 0:
		return OutOfStock
	case quantity <= LowStockThreshold:
		return LowStock
	default:
		return InStock
	}
}

// ResolveStockStatus returns the status a product should carry after its
// quantity becomes quantity. PRE_ORDER is sticky.
func ResolveStockStatus(current StockStatus, quantity int) StockStatus {
	if current == PreOrder {
		return PreOrder
	}
	return DeriveStockStatus(quantity)
}

// ValidateStockPair rejects an administrative quantity/status pair that
// disagrees with DeriveStockStatus. PRE_ORDER is exempt.
func ValidateStockPair(quantity int, status StockStatus) error {
	if status == PreOrder {
		return nil
	}
	switch {
	case quantity == 0 && status != OutOfStock:
		return &InvalidProductDataError{Reason: "Stock status must be OUT_OF_STOCK when quantity is 0"}
	case quantity > 0 && quantity <= LowStockThreshold && status != LowStock:
		return &InvalidProductDataError{Reason: "Stock status should be LOW_STOCK when quantity is 1-20"}
	case quantity > LowStockThreshold && status != InStock:
		return &InvalidProductDataError{Reason: "Stock status should be IN_STOCK when quantity is greater than 20"}
	}
	return nil
}
