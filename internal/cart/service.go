package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/catalog"
)

const MaxQuantityPerItem = 100

// ProductStore is the part of the catalog the cart needs. UpdateStockQuantity
// must be atomic and must refuse to go below zero.
type ProductStore interface {
	FindByID(ctx context.Context, id int64) (catalog.Product, error)
	UpdateStockQuantity(ctx context.Context, id int64, delta int) (catalog.Product, error)
}

// Service moves stock and cart lines together. Stock is always written first;
// a failed cart write is compensated by reversing the stock delta.
type Service struct {
	carts    Repository
	products ProductStore
	events   Publisher
	logger   *zap.Logger
}

func NewService(carts Repository, products ProductStore, events Publisher, logger *zap.Logger) *Service {
	if events == nil {
		events = nopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{carts: carts, products: products, events: events, logger: logger}
}

func (s *Service) GetCart(ctx context.Context, sessionID string) (Cart, error) {
	if err := validateSession(sessionID); err != nil {
		return Cart{}, err
	}
	items, err := s.carts.FindBySession(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	return New(sessionID, items)
}

func (s *Service) AddToCart(ctx context.Context, sessionID string, productID int64, quantity int) (Item, error) {
	if err := validateSession(sessionID); err != nil {
		return Item{}, err
	}
	if err := validateQuantity(quantity); err != nil {
		return Item{}, err
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Item{}, err
	}
	if !product.IsAvailable() && !product.IsPreOrder() {
		return Item{}, &ProductNotAvailableError{ProductID: productID}
	}

	inCart := 0
	existing, err := s.carts.GetItem(ctx, sessionID, productID)
	switch {
	case err == nil:
		inCart = existing.Quantity
	case errors.Is(err, ErrItemNotFound):
	default:
		return Item{}, err
	}

	if !product.CanPurchase(inCart + quantity) {
		return Item{}, &InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: product.RemainingStock(),
			InCart:    inCart,
		}
	}

	// Only the incremental quantity leaves stock; the existing line was paid for already.
	var item Item
	err = s.runStockStep(ctx, product, -quantity, ReasonAdd, func(ctx context.Context) error {
		var werr error
		item, werr = s.carts.AddItem(ctx, sessionID, productID, quantity)
		return werr
	})
	if err != nil {
		return Item{}, stockError(err, quantity, inCart, false)
	}

	s.publishItem(ctx, ItemChange{SessionID: sessionID, ProductID: productID, Quantity: item.Quantity, Action: ActionAdded})
	return item, nil
}

func (s *Service) UpdateCartItem(ctx context.Context, sessionID string, productID int64, quantity int) (Item, error) {
	if err := validateSession(sessionID); err != nil {
		return Item{}, err
	}
	if err := validateQuantity(quantity); err != nil {
		return Item{}, err
	}

	existing, err := s.carts.GetItem(ctx, sessionID, productID)
	if err != nil {
		return Item{}, err
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Item{}, err
	}

	if !product.CanPurchase(quantity) {
		return Item{}, &InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: product.RemainingStock(),
			InCart:    existing.Quantity,
			Update:    true,
		}
	}

	delta := existing.Quantity - quantity
	var item Item
	err = s.runStockStep(ctx, product, delta, ReasonUpdate, func(ctx context.Context) error {
		var werr error
		item, werr = s.carts.UpdateItem(ctx, sessionID, productID, existing.Quantity, quantity)
		return werr
	})
	if err != nil {
		return Item{}, stockError(err, quantity, existing.Quantity, true)
	}

	s.publishItem(ctx, ItemChange{SessionID: sessionID, ProductID: productID, Quantity: item.Quantity, Action: ActionUpdated})
	return item, nil
}

func (s *Service) RemoveFromCart(ctx context.Context, sessionID string, productID int64) error {
	if err := validateSession(sessionID); err != nil {
		return err
	}

	existing, err := s.carts.GetItem(ctx, sessionID, productID)
	if err != nil {
		return err
	}

	err = s.runStockStep(ctx, existing.Product, existing.Quantity, ReasonRemove, func(ctx context.Context) error {
		return s.carts.RemoveItem(ctx, sessionID, productID, existing.Quantity)
	})
	if err != nil {
		var step *stockStepError
		if errors.As(err, &step) {
			return step.err
		}
		return err
	}

	s.publishItem(ctx, ItemChange{SessionID: sessionID, ProductID: productID, Action: ActionRemoved})
	return nil
}

// ClearCart restores stock for every line it can, then deletes the lines it
// read. A failed restore does not stop the others; the failures come back as a
// *PartialRestoreError after the cart has been cleared. Lines that another
// request changed in between are left in place and their restore is undone.
func (s *Service) ClearCart(ctx context.Context, sessionID string) error {
	if err := validateSession(sessionID); err != nil {
		return err
	}

	items, err := s.carts.FindBySession(ctx, sessionID)
	if err != nil {
		return err
	}

	var (
		restored []Item
		failed   []Item
		causes   = make(map[int64]error)
	)
	for _, it := range items {
		if it.Product.IsPreOrder() {
			continue
		}
		adjusted, err := s.products.UpdateStockQuantity(ctx, it.ProductID, it.Quantity)
		if err != nil {
			s.logger.Warn("restore stock on clear",
				zap.String("session_id", sessionID),
				zap.Int64("product_id", it.ProductID),
				zap.Int("quantity", it.Quantity),
				zap.Error(err))
			failed = append(failed, it)
			causes[it.ID] = err
			continue
		}
		restored = append(restored, it)
		s.publishStock(ctx, it.Product, adjusted, it.Quantity, ReasonClear)
	}

	removedIDs, err := s.carts.ClearCart(ctx, sessionID, items)
	if err != nil {
		if undoErr := s.takeBack(ctx, restored, err); undoErr != nil {
			return multierror.Append(err, undoErr)
		}
		return err
	}
	removed := make(map[int64]bool, len(removedIDs))
	for _, id := range removedIDs {
		removed[id] = true
	}

	var result *multierror.Error
	if stale := linesNotIn(restored, removed); len(stale) > 0 {
		s.logger.Info("cart lines changed during clear, keeping them",
			zap.String("session_id", sessionID),
			zap.Int("lines", len(stale)))
		if err := s.takeBack(ctx, stale, ErrItemChanged); err != nil {
			result = multierror.Append(result, err)
		}
	}

	s.publishItem(ctx, ItemChange{SessionID: sessionID, Action: ActionCleared})

	// Only lines that are gone leak stock when their restore failed.
	var (
		restoreErrs *multierror.Error
		failedIDs   []int64
	)
	for _, it := range failed {
		if removed[it.ID] {
			failedIDs = append(failedIDs, it.ProductID)
			restoreErrs = multierror.Append(restoreErrs, fmt.Errorf("product %d: %w", it.ProductID, causes[it.ID]))
		}
	}
	if len(failedIDs) > 0 {
		result = multierror.Append(result, &PartialRestoreError{ProductIDs: failedIDs, Err: restoreErrs})
	}
	return result.ErrorOrNil()
}

// takeBack reverses stock that ClearCart returned for lines that are still in
// the cart, so they stay backed by stock.
func (s *Service) takeBack(ctx context.Context, lines []Item, cause error) error {
	compCtx := context.WithoutCancel(ctx)
	var result *multierror.Error
	for _, it := range lines {
		adjusted, err := s.products.UpdateStockQuantity(compCtx, it.ProductID, -it.Quantity)
		if err != nil {
			s.logger.Error("stock compensation failed",
				zap.Int64("product_id", it.ProductID),
				zap.Int("delta", -it.Quantity),
				zap.Error(err))
			result = multierror.Append(result, &CompensationError{
				ProductID:     it.ProductID,
				Delta:         it.Quantity,
				CartErr:       cause,
				CompensateErr: err,
			})
			continue
		}
		s.publishStock(compCtx, it.Product, adjusted, -it.Quantity, ReasonCompensate)
	}
	return result.ErrorOrNil()
}

func linesNotIn(lines []Item, ids map[int64]bool) []Item {
	var out []Item
	for _, it := range lines {
		if !ids[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

func validateSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	return nil
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return &InvalidQuantityError{Reason: "Quantity must be a positive integer"}
	}
	if quantity > MaxQuantityPerItem {
		return &InvalidQuantityError{Reason: "Maximum quantity per item is 100"}
	}
	return nil
}
