package cart

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/catalog"
)

// runStockStep applies delta to the product's stock and then runs write.
// If write fails the delta is reversed. Pre-order products and a zero delta
// skip the stock step entirely.
func (s *Service) runStockStep(ctx context.Context, product catalog.Product, delta int, reason string, write func(ctx context.Context) error) error {
	if product.IsPreOrder() || delta == 0 {
		return write(ctx)
	}

	adjusted, err := s.products.UpdateStockQuantity(ctx, product.ID, delta)
	if err != nil {
		return &stockStepError{err: err}
	}

	if err := write(ctx); err != nil {
		// The request may already be cancelled; compensation must still run.
		compCtx := context.WithoutCancel(ctx)
		restored, cerr := s.products.UpdateStockQuantity(compCtx, product.ID, -delta)
		if cerr != nil {
			s.logger.Error("stock compensation failed",
				zap.Int64("product_id", product.ID),
				zap.Int("delta", -delta),
				zap.NamedError("cart_error", err),
				zap.NamedError("compensation_error", cerr))
			return &CompensationError{ProductID: product.ID, Delta: delta, CartErr: err, CompensateErr: cerr}
		}
		s.logger.Warn("cart write failed, stock restored",
			zap.Int64("product_id", product.ID),
			zap.Int("delta", -delta),
			zap.Error(err))
		s.publishStock(compCtx, adjusted, restored, -delta, ReasonCompensate)
		return err
	}

	s.publishStock(ctx, product, adjusted, delta, reason)
	return nil
}

// stockStepError marks a failure of the forward stock write. Nothing else has
// been written when it is returned.
type stockStepError struct {
	err error
}

func (e *stockStepError) Error() string { return e.err.Error() }

func (e *stockStepError) Unwrap() error { return e.err }

// stockError turns a lost race on the stock floor into the error a shopper
// would have seen had the read been current. Only the forward stock write is
// mapped; a failed compensation comes back untouched.
func stockError(err error, requested, inCart int, update bool) error {
	var step *stockStepError
	if !errors.As(err, &step) {
		return err
	}
	var neg *catalog.NegativeStockError
	if errors.As(step.err, &neg) {
		return &InsufficientStockError{
			ProductID: neg.ProductID,
			Requested: requested,
			Available: neg.Current,
			InCart:    inCart,
			Update:    update,
		}
	}
	return step.err
}

func (s *Service) publishStock(ctx context.Context, before, after catalog.Product, delta int, reason string) {
	err := s.events.PublishStockAdjusted(ctx, StockAdjustment{
		ProductID:      after.ID,
		Delta:          delta,
		StockQuantity:  after.StockQuantity,
		StockStatus:    after.StockStatus,
		PreviousStatus: before.StockStatus,
		Reason:         reason,
	})
	if err != nil {
		s.logger.Warn("publish stock adjusted", zap.Int64("product_id", after.ID), zap.Error(err))
	}
}

func (s *Service) publishItem(ctx context.Context, change ItemChange) {
	if err := s.events.PublishItemChanged(ctx, change); err != nil {
		s.logger.Warn("publish cart item changed",
			zap.String("session_id", change.SessionID),
			zap.Int64("product_id", change.ProductID),
			zap.Error(err))
	}
}
