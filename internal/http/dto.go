package httpapi

import (
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/catalog"
)

type ProductDTO struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Image         string        `json:"image"`
	Price         catalog.Money `json:"price"`
	Tags          []string      `json:"tags"`
	Rating        float64       `json:"rating"`
	Background    string        `json:"background"`
	BackgroundImg string        `json:"backgroundImg,omitempty"`
	IsAI          bool          `json:"isAI"`
	StockQuantity int           `json:"stockQuantity"`
	StockStatus   string        `json:"stockStatus"`
	IsAvailable   bool          `json:"isAvailable"`
	IsLowStock    bool          `json:"isLowStock"`
	IsOutOfStock  bool          `json:"isOutOfStock"`
	IsPreOrder    bool          `json:"isPreOrder"`
}

type CartProductDTO struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Price         catalog.Money `json:"price"`
	Image         string        `json:"image"`
	StockQuantity int           `json:"stockQuantity"`
	StockStatus   string        `json:"stockStatus"`
	IsAvailable   bool          `json:"isAvailable"`
}

type CartItemDTO struct {
	ID           int64          `json:"id"`
	ProductID    int64          `json:"productId"`
	Quantity     int            `json:"quantity"`
	Product      CartProductDTO `json:"product"`
	Subtotal     catalog.Money  `json:"subtotal"`
	StockWarning string         `json:"stockWarning,omitempty"`
}

type CartDTO struct {
	SessionID      string        `json:"sessionId"`
	Items          []CartItemDTO `json:"items"`
	Total          catalog.Money `json:"total"`
	ItemCount      int           `json:"itemCount"`
	Valid          bool          `json:"valid"`
	InvalidItemIDs []int64       `json:"invalidProductIds,omitempty"`
}

type CartTotalDTO struct {
	Total     catalog.Money `json:"total"`
	ItemCount int           `json:"itemCount"`
}

func toProductDTO(p catalog.Product) ProductDTO {
	return ProductDTO{
		ID:            p.ID,
		Name:          p.Name,
		Image:         p.Image,
		Price:         p.Price,
		Tags:          p.Tags,
		Rating:        p.Rating.Value(),
		Background:    p.Background,
		BackgroundImg: p.BackgroundImg,
		IsAI:          p.IsAI,
		StockQuantity: p.StockQuantity,
		StockStatus:   string(p.StockStatus),
		IsAvailable:   p.IsAvailable(),
		IsLowStock:    p.IsLowStock(),
		IsOutOfStock:  p.IsOutOfStock(),
		IsPreOrder:    p.IsPreOrder(),
	}
}

func toProductDTOs(products []catalog.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	return out
}

func toCartItemDTO(it cart.Item) CartItemDTO {
	return CartItemDTO{
		ID:        it.ID,
		ProductID: it.ProductID,
		Quantity:  it.Quantity,
		Product: CartProductDTO{
			ID:            it.Product.ID,
			Name:          it.Product.Name,
			Price:         it.Product.Price,
			Image:         it.Product.Image,
			StockQuantity: it.Product.StockQuantity,
			StockStatus:   string(it.Product.StockStatus),
			IsAvailable:   it.Product.IsAvailable(),
		},
		Subtotal:     it.Subtotal(),
		StockWarning: it.StockWarning(),
	}
}

func toCartDTO(c cart.Cart) CartDTO {
	items := c.Items()
	dto := CartDTO{
		SessionID: c.SessionID(),
		Items:     make([]CartItemDTO, 0, len(items)),
		Total:     c.Total(),
		ItemCount: c.ItemCount(),
	}
	for _, it := range items {
		dto.Items = append(dto.Items, toCartItemDTO(it))
	}

	check := c.ValidateItems()
	dto.Valid = check.Valid
	for _, it := range check.InvalidItems {
		dto.InvalidItemIDs = append(dto.InvalidItemIDs, it.ProductID)
	}
	return dto
}
