package catalog

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// DomainError is implemented by every error the HTTP layer may show to a client.
type DomainError interface {
	error
	Code() string
}

type ProductNotFoundError struct {
	ID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product with ID %d not found", e.ID)
}

func (e *ProductNotFoundError) Code() string { return "PRODUCT_NOT_FOUND" }

func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NegativeStockError is returned by the stock mutation primitive instead of
// clamping the quantity at zero.
type NegativeStockError struct {
	ProductID int64
	Current   int
	Delta     int
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("Cannot update stock: resulting quantity would be negative (current: %d, delta: %d)", e.Current, e.Delta)
}

func (e *NegativeStockError) Code() string { return "NEGATIVE_STOCK" }

type InvalidProductDataError struct {
	Reason string
}

func (e *InvalidProductDataError) Error() string { return e.Reason }

func (e *InvalidProductDataError) Code() string { return "INVALID_PRODUCT_DATA" }

type ProductUpdateError struct {
	Err error
}

func (e *ProductUpdateError) Error() string {
	return fmt.Sprintf("Batch update failed: %v", e.Err)
}

func (e *ProductUpdateError) Code() string { return "PRODUCT_UPDATE_ERROR" }

func (e *ProductUpdateError) Unwrap() error { return e.Err }
