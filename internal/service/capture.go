package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"housetally-backend/internal/client"
	"housetally-backend/internal/model"
)

func (s *checkoutServiceImpl) CaptureKitOrder(ctx context.Context, userID, orderID, kitID string) (*CaptureOrderResult, error) {
	p, err := s.findProduct(ctx, model.ProductTypeKit, kitID)
	if err != nil {
		return nil, err
	}
	return s.capture(ctx, userID, orderID, p)
}

func (s *checkoutServiceImpl) CapturePremiumOrder(ctx context.Context, userID, orderID string) (*CaptureOrderResult, error) {
	p, err := s.findProduct(ctx, model.ProductTypePremium, premiumProductRef)
	if err != nil {
		return nil, err
	}
	return s.capture(ctx, userID, orderID, p)
}

// capture drives the reconciliation state machine: capture on the provider,
// record the purchase exactly once, then verify the entitlement landed. The
// uniqueness constraint on (user_id, provider_order_id) is the only
// concurrency guard; there is no application-level locking.
func (s *checkoutServiceImpl) capture(ctx context.Context, userID, orderID string, p *product) (*CaptureOrderResult, error) {
	result, err := s.paypalClient.CaptureOrder(ctx, orderID)
	if errors.Is(err, client.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("paypal api capture order: %w", err)
	}

	switch result.Outcome {
	case client.CaptureCompleted:
		return s.recordPurchase(ctx, userID, orderID, p, result)

	case client.CaptureAlreadyCaptured:
		s.logger.Warn("provider reports order already captured",
			zap.String("user_id", userID),
			zap.String("order_id", orderID),
			zap.ByteString("provider_payload", result.Raw),
		)
		return s.reconcileExisting(ctx, userID, orderID, p, result)

	case client.CaptureNotCompleted:
		s.logger.Warn("capture not completed",
			zap.String("user_id", userID),
			zap.String("order_id", orderID),
			zap.String("provider_status", result.ProviderStatus),
			zap.ByteString("provider_payload", result.Raw),
		)
		return nil, &PaymentFailedError{ProviderStatus: result.ProviderStatus}

	default:
		return nil, fmt.Errorf("unhandled capture outcome %q", result.Outcome)
	}
}

// recordPurchase is only reached from a fresh Completed capture. A
// duplicate-key rejection means a concurrent request already recorded this
// order: that is the idempotent-success path, not an error.
func (s *checkoutServiceImpl) recordPurchase(ctx context.Context, userID, orderID string, p *product, result *client.CaptureResult) (*CaptureOrderResult, error) {
	purchase := &model.Purchase{
		ID:              uuid.NewString(),
		UserID:          userID,
		ProductType:     p.Type,
		ProductRef:      p.Ref,
		Price:           p.Price,
		Currency:        p.Currency,
		Provider:        model.ProviderPaypal,
		ProviderOrderID: orderID,
		TransactionID:   result.TransactionID,
		Status:          model.PurchaseStatusCompleted,
		Metadata:        string(result.Raw),
	}

	created, err := s.purchaseRepo.Create(ctx, purchase)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	if created {
		s.logger.Info("purchase recorded",
			zap.String("user_id", userID),
			zap.String("order_id", orderID),
			zap.String("transaction_id", result.TransactionID),
			zap.String("product_ref", p.Ref),
		)
	} else {
		s.logger.Info("purchase already recorded by concurrent capture",
			zap.String("user_id", userID),
			zap.String("order_id", orderID),
		)
	}

	if err := s.verifyEntitlement(ctx, userID, p); err != nil {
		return nil, err
	}

	return &CaptureOrderResult{
		TransactionID:    result.TransactionID,
		AlreadyProcessed: !created,
	}, nil
}

// reconcileExisting handles the provider's "order already captured" answer.
// Captured on the provider and recorded locally can diverge after races or
// prior partial failures, so success is only declared once a local record is
// found.
func (s *checkoutServiceImpl) reconcileExisting(ctx context.Context, userID, orderID string, p *product, result *client.CaptureResult) (*CaptureOrderResult, error) {
	existing, err := s.purchaseRepo.FindCompletedByUserAndOrder(ctx, userID, orderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &PersistenceError{Err: err}
	}

	if existing == nil {
		// A retried request after a session refresh, or two sessions under
		// the same logical user, may have recorded the order under a
		// different user id.
		existing, err = s.purchaseRepo.FindCompletedByOrder(ctx, orderID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &PersistenceError{Err: err}
		}
	}

	if existing == nil {
		// Funds moved on the provider but no record exists, and the
		// transaction id is not reliably recoverable from this error path.
		// Never fabricate success here.
		s.logger.Error("captured order has no local purchase record",
			zap.String("user_id", userID),
			zap.String("order_id", orderID),
			zap.String("product_ref", p.Ref),
			zap.ByteString("provider_payload", result.Raw),
		)
		return nil, &UntrackedCaptureError{ProviderOrderID: orderID}
	}

	if err := s.verifyEntitlement(ctx, existing.UserID, p); err != nil {
		return nil, err
	}

	return &CaptureOrderResult{
		TransactionID:    existing.TransactionID,
		AlreadyProcessed: true,
	}, nil
}

// verifyEntitlement gives the downstream trigger a bounded window to grant
// the entitlement, then re-reads and backfills manually if it is absent. The
// trigger is a best-effort optimization, never the sole path.
func (s *checkoutServiceImpl) verifyEntitlement(ctx context.Context, userID string, p *product) error {
	if s.triggerWait > 0 {
		timer := time.NewTimer(s.triggerWait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	_, err := s.EnsureEntitlement(ctx, userID, p.Type, p.Ref)
	return err
}
