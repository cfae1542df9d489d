package cart

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSession = &InvalidSessionError{}
	ErrItemNotFound   = errors.New("cart item not found")
	ErrItemChanged    = errors.New("cart item changed concurrently")
	ErrDuplicateItem  = errors.New("cart already holds a line for this product")
)

type InvalidSessionError struct{}

func (e *InvalidSessionError) Error() string { return "Invalid or missing session ID" }

func (e *InvalidSessionError) Code() string { return "INVALID_SESSION" }

type InvalidQuantityError struct {
	Reason string
}

func (e *InvalidQuantityError) Error() string {
	if e.Reason == "" {
		return "Invalid quantity provided"
	}
	return e.Reason
}

func (e *InvalidQuantityError) Code() string { return "INVALID_QUANTITY" }

type ProductNotAvailableError struct {
	ProductID int64
}

func (e *ProductNotAvailableError) Error() string {
	return fmt.Sprintf("Product %d is not available for purchase", e.ProductID)
}

func (e *ProductNotAvailableError) Code() string { return "PRODUCT_NOT_AVAILABLE" }

type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
	InCart    int
	Update    bool
}

func (e *InsufficientStockError) Error() string {
	if e.Update {
		return fmt.Sprintf("Cannot update to %d items. Available: %d", e.Requested, e.Available)
	}
	return fmt.Sprintf("Cannot add %d more items. Available: %d, Already in cart: %d", e.Requested, e.Available, e.InCart)
}

func (e *InsufficientStockError) Code() string { return "INSUFFICIENT_STOCK" }

type ItemNotFoundError struct {
	ProductID int64
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("Cart item with product ID %d not found", e.ProductID)
}

func (e *ItemNotFoundError) Code() string { return "CART_ITEM_NOT_FOUND" }

func (e *ItemNotFoundError) Is(target error) bool {
	return target == ErrItemNotFound
}

// ItemChangedError means a conditional cart write found the line gone or at
// a different quantity than the one the stock delta was computed from.
type ItemChangedError struct {
	ProductID int64
}

func (e *ItemChangedError) Error() string {
	return fmt.Sprintf("Cart item with product ID %d was changed by another request, please retry", e.ProductID)
}

func (e *ItemChangedError) Code() string { return "CART_ITEM_CHANGED" }

func (e *ItemChangedError) Is(target error) bool {
	return target == ErrItemChanged
}

// CompensationError means the stock write succeeded, the cart write failed,
// and restoring the stock failed as well. Stock for ProductID is off by Delta.
type CompensationError struct {
	ProductID     int64
	Delta         int
	CartErr       error
	CompensateErr error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("cart write failed (%v) and stock compensation of %d for product %d failed (%v)",
		e.CartErr, -e.Delta, e.ProductID, e.CompensateErr)
}

func (e *CompensationError) Unwrap() []error {
	return []error{e.CartErr, e.CompensateErr}
}

// PartialRestoreError is returned by ClearCart when the lines were deleted but
// stock could not be restored for some of them.
type PartialRestoreError struct {
	ProductIDs []int64
	Err        error
}

func (e *PartialRestoreError) Error() string {
	ids := make([]string, len(e.ProductIDs))
	for i, id := range e.ProductIDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("cart cleared but stock restore failed for products [%s]: %v", strings.Join(ids, ", "), e.Err)
}

func (e *PartialRestoreError) Unwrap() error { return e.Err }
