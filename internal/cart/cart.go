package cart

import (
	"slices"
	"strings"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/catalog"
)

// Cart is the set of lines held by one session, in insertion order.
// All mutators return a new Cart and leave the receiver untouched.
type Cart struct {
	sessionID string
	items     []Item
}

type ValidationResult struct {
	Valid        bool
	InvalidItems []Item
}

func New(sessionID string, items []Item) (Cart, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Cart{}, ErrInvalidSession
	}
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ProductID]; dup {
			return Cart{}, ErrDuplicateItem
		}
		seen[it.ProductID] = struct{}{}
	}
	return Cart{sessionID: sessionID, items: slices.Clone(items)}, nil
}

func (c Cart) SessionID() string {
	return c.sessionID
}

func (c Cart) Items() []Item {
	return slices.Clone(c.items)
}

func (c Cart) Total() catalog.Money {
	total := catalog.Zero()
	for _, it := range c.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (c Cart) ItemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c Cart) ValidateItems() ValidationResult {
	res := ValidationResult{Valid: true}
	for _, it := range c.items {
		if !it.IsValid() {
			res.InvalidItems = append(res.InvalidItems, it)
		}
	}
	res.Valid = len(res.InvalidItems) == 0
	return res
}

// AddItem merges quantity into an existing line for the product or appends a new one.
func (c Cart) AddItem(product catalog.Product, quantity int) (Cart, error) {
	if quantity < 1 {
		return Cart{}, &InvalidQuantityError{Reason: "Quantity must be at least 1"}
	}

	idx := c.indexOf(product.ID)
	inCart := 0
	if idx >= 0 {
		inCart = c.items[idx].Quantity
	}
	if !product.CanPurchase(inCart + quantity) {
		return Cart{}, &InsufficientStockError{
			ProductID: product.ID,
			Requested: quantity,
			Available: product.RemainingStock(),
			InCart:    inCart,
		}
	}

	items := slices.Clone(c.items)
	if idx >= 0 {
		updated := items[idx]
		updated.Quantity = inCart + quantity
		updated.Product = product
		items[idx] = updated
	} else {
		item, err := NewItem(0, c.sessionID, product, quantity)
		if err != nil {
			return Cart{}, err
		}
		items = append(items, item)
	}
	return Cart{sessionID: c.sessionID, items: items}, nil
}

// UpdateItemQuantity sets the line's quantity; zero removes the line.
func (c Cart) UpdateItemQuantity(productID int64, quantity int) (Cart, error) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return Cart{}, &ItemNotFoundError{ProductID: productID}
	}
	if quantity == 0 {
		return c.RemoveItem(productID)
	}

	updated, err := c.items[idx].UpdateQuantity(quantity)
	if err != nil {
		return Cart{}, err
	}
	items := slices.Clone(c.items)
	items[idx] = updated
	return Cart{sessionID: c.sessionID, items: items}, nil
}

func (c Cart) RemoveItem(productID int64) (Cart, error) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return Cart{}, &ItemNotFoundError{ProductID: productID}
	}
	items := slices.Delete(slices.Clone(c.items), idx, idx+1)
	return Cart{sessionID: c.sessionID, items: items}, nil
}

func (c Cart) Clear() Cart {
	return Cart{sessionID: c.sessionID, items: []Item{}}
}

func (c Cart) HasItem(productID int64) bool {
	return c.indexOf(productID) >= 0
}

func (c Cart) IsEmpty() bool {
	return len(c.items) == 0
}

func (c Cart) GetItem(productID int64) (Item, bool) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return Item{}, false
	}
	return c.items[idx], true
}

func (c Cart) GetItemQuantity(productID int64) int {
	if it, ok := c.GetItem(productID); ok {
		return it.Quantity
	}
	return 0
}

func (c Cart) indexOf(productID int64) int {
	return slices.IndexFunc(c.items, func(it Item) bool { return it.ProductID == productID })
}
