package catalog

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// FeaturedTag marks products shown on the featured shelf.
const FeaturedTag = "Season Choice"

type Product struct {
	ID            int64
	Name          string
	Image         string
	Price         Money
	Tags          []string
	Rating        Rating
	Background    string
	BackgroundImg string
	IsAI          bool
	StockQuantity int
	StockStatus   StockStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("product name is required")
	}
	if p.StockQuantity < 0 {
		return errors.New("stock quantity cannot be negative")
	}
	if !p.StockStatus.Valid() {
		return errors.New("invalid stock status")
	}
	return nil
}

// IsAvailable reports whether units can be taken from visible stock.
// Pre-order purchasability is answered by CanPurchase instead.
func (p Product) IsAvailable() bool {
	return p.StockStatus.IsPurchasable() && p.StockQuantity > 0
}

func (p Product) IsPreOrder() bool {
	return p.StockStatus == PreOrder
}

func (p Product) IsLowStock() bool {
	return p.StockStatus == LowStock
}

// IsOutOfStock also covers a stale status with a zero quantity.
func (p Product) IsOutOfStock() bool {
	return p.StockStatus == OutOfStock || p.StockQuantity == 0
}

func (p Product) CanPurchase(quantity int) bool {
	if !p.StockStatus.IsPurchasable() {
		return false
	}
	if p.IsPreOrder() {
		return quantity > 0
	}
	return quantity > 0 && quantity <= p.StockQuantity
}

func (p Product) RemainingStock() int {
	return p.StockQuantity
}

func (p Product) HasAccurateStockStatus() bool {
	if p.IsPreOrder() {
		return true
	}
	return p.StockStatus == DeriveStockStatus(p.StockQuantity)
}

func (p Product) IsFeatured() bool {
	return p.HasTag(FeaturedTag)
}

func (p Product) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// Categories are modelled as tags.
func (p Product) MatchesCategory(categoryID string) bool {
	return p.HasTag(categoryID)
}

func (p Product) MatchesSearch(query string) bool {
	return strings.Contains(strings.ToLower(p.Name), strings.ToLower(query))
}
