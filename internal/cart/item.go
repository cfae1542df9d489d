package cart

import (
	"fmt"
	"time"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/catalog"
)

// Item is one cart line. Product is the snapshot read together with the line,
// not a live reference.
type Item struct {
	ID        int64
	SessionID string
	ProductID int64
	Quantity  int
	Product   catalog.Product
	CreatedAt time.Time
}

// NewItem builds a line. id is zero until the cart store assigns one.
func NewItem(id int64, sessionID string, product catalog.Product, quantity int) (Item, error) {
	if quantity < 1 {
		return Item{}, &InvalidQuantityError{Reason: "Quantity must be at least 1"}
	}
	return Item{
		ID:        id,
		SessionID: sessionID,
		ProductID: product.ID,
		Quantity:  quantity,
		Product:   product,
	}, nil
}

func (i Item) Subtotal() catalog.Money {
	// Quantity is never negative here, so the multiply cannot fail.
	m, _ := i.Product.Price.MultiplyInt(i.Quantity)
	return m
}

func (i Item) UpdateQuantity(quantity int) (Item, error) {
	if quantity < 1 {
		return Item{}, &InvalidQuantityError{Reason: "Quantity must be at least 1"}
	}
	if !i.Product.CanPurchase(quantity) {
		return Item{}, &InsufficientStockError{
			ProductID: i.ProductID,
			Requested: quantity,
			Available: i.Product.RemainingStock(),
			InCart:    i.Quantity,
			Update:    true,
		}
	}
	next := i
	next.Quantity = quantity
	return next, nil
}

func (i Item) CanIncreaseQuantity(additional int) bool {
	return i.Product.CanPurchase(i.Quantity + additional)
}

func (i Item) CanDecreaseQuantity() bool {
	return i.Quantity > 1
}

func (i Item) IsValid() bool {
	return i.Quantity >= 1 && i.Product.CanPurchase(i.Quantity)
}

func (i Item) IsProductAvailable() bool {
	return i.Product.IsAvailable()
}

// StockWarning is advisory only. An empty string means there is nothing to say.
func (i Item) StockWarning() string {
	switch {
	case i.Product.IsOutOfStock() && !i.Product.IsPreOrder():
		return "Product is out of stock"
	case i.Product.IsLowStock():
		return fmt.Sprintf("Only %d items left in stock", i.Product.RemainingStock())
	case i.Product.IsPreOrder():
		return "This is a pre-order item"
	default:
		return ""
	}
}
