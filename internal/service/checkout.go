package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"housetally-backend/internal/client"
	"housetally-backend/internal/model"
	"housetally-backend/internal/repository"
)

// The premium upgrade is a singleton product with a fixed price; it has no
// catalog row.
const (
	premiumProductRef  = "premium"
	premiumPrice       = 499
	premiumCurrency    = "USD"
	premiumDescription = "House Tally Premium"
)

type CreateOrderResult struct {
	OrderID     string
	ApprovalURL string
}

type CaptureOrderResult struct {
	TransactionID    string
	AlreadyProcessed bool
}

type CheckoutService interface {
	InitiateKitOrder(ctx context.Context, userID, kitID string) (*CreateOrderResult, error)
	InitiatePremiumOrder(ctx context.Context, userID string) (*CreateOrderResult, error)
	CaptureKitOrder(ctx context.Context, userID, orderID, kitID string) (*CaptureOrderResult, error)
	CapturePremiumOrder(ctx context.Context, userID, orderID string) (*CaptureOrderResult, error)
	// EnsureEntitlement grants the entitlement for a product unless it is
	// already present. Safe to call concurrently and repeatedly.
	EnsureEntitlement(ctx context.Context, userID, productType, productRef string) (granted bool, err error)
}

type checkoutServiceImpl struct {
	paypalClient client.PaypalClient
	catalogRepo  repository.CatalogRepository
	purchaseRepo repository.PurchaseRepository
	entitlements repository.EntitlementRepository
	logger       *zap.Logger
	redirectBase string
	triggerWait  time.Duration
}

func NewCheckoutService(
	paypalClient client.PaypalClient,
	catalogRepo repository.CatalogRepository,
	purchaseRepo repository.PurchaseRepository,
	entitlements repository.EntitlementRepository,
	logger *zap.Logger,
	redirectBase string,
	triggerWait time.Duration,
) CheckoutService {
	return &checkoutServiceImpl{
		paypalClient: paypalClient,
		catalogRepo:  catalogRepo,
		purchaseRepo: purchaseRepo,
		entitlements: entitlements,
		logger:       logger,
		redirectBase: redirectBase,
		triggerWait:  triggerWait,
	}
}

// product is the resolved purchasable the checkout flow operates on, either a
// catalog kit or the premium singleton.
type product struct {
	Type        string
	Ref         string
	Description string
	Price       int32
	Currency    string
}

func (s *checkoutServiceImpl) findProduct(ctx context.Context, productType, productRef string) (*product, error) {
	switch productType {
	case model.ProductTypePremium:
		return &product{
			Type:        model.ProductTypePremium,
			Ref:         premiumProductRef,
			Description: premiumDescription,
			Price:       premiumPrice,
			Currency:    premiumCurrency,
		}, nil

	case model.ProductTypeKit:
		kit, err := s.catalogRepo.FindKitByID(ctx, productRef)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		if err != nil {
			return nil, &PersistenceError{Err: err}
		}
		// Free kits are granted through a separate unconditional path and
		// must never reach the paid checkout.
		if kit.Price == 0 {
			return nil, ErrFreeProduct
		}
		return &product{
			Type:        model.ProductTypeKit,
			Ref:         kit.ID,
			Description: kit.Name,
			Price:       kit.Price,
			Currency:    kit.Currency,
		}, nil

	default:
		return nil, fmt.Errorf("unknown product type %q", productType)
	}
}

func (s *checkoutServiceImpl) InitiateKitOrder(ctx context.Context, userID, kitID string) (*CreateOrderResult, error) {
	p, err := s.findProduct(ctx, model.ProductTypeKit, kitID)
	if err != nil {
		return nil, err
	}
	return s.initiate(ctx, userID, p)
}

func (s *checkoutServiceImpl) InitiatePremiumOrder(ctx context.Context, userID string) (*CreateOrderResult, error) {
	p, err := s.findProduct(ctx, model.ProductTypePremium, premiumProductRef)
	if err != nil {
		return nil, err
	}
	return s.initiate(ctx, userID, p)
}

// initiate creates a pending provider order. Nothing is written locally: the
// order only becomes durable once capture succeeds.
func (s *checkoutServiceImpl) initiate(ctx context.Context, userID string, p *product) (*CreateOrderResult, error) {
	owned, err := s.purchaseRepo.HasCompletedForProduct(ctx, userID, p.Ref)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if owned {
		return nil, ErrAlreadyOwned
	}

	resp, err := s.paypalClient.CreateOrder(ctx, client.CreateOrderInput{
		Amount:      p.Price,
		Currency:    p.Currency,
		Description: p.Description,
		CustomID:    correlationID(userID, p),
		ReturnURL:   s.redirectBase + "/api/checkout/return",
		CancelURL:   s.redirectBase + "/api/checkout/cancel",
	})
	if err != nil {
		return nil, fmt.Errorf("paypal api create order: %w", err)
	}

	s.logger.Info("provider order created",
		zap.String("user_id", userID),
		zap.String("product_ref", p.Ref),
		zap.String("order_id", resp.OrderID),
	)

	return &CreateOrderResult{
		OrderID:     resp.OrderID,
		ApprovalURL: resp.ApproveURL,
	}, nil
}

// correlationID embeds enough context in the provider order for the capture
// step to recover it: the provider knows nothing about the local schema.
func correlationID(userID string, p *product) string {
	return userID + "|" + p.Type + "|" + p.Ref
}

func (s *checkoutServiceImpl) EnsureEntitlement(ctx context.Context, userID, productType, productRef string) (bool, error) {
	has, err := s.hasEntitlement(ctx, userID, productType, productRef)
	if err != nil {
		return false, &PersistenceError{Err: err}
	}
	if has {
		return false, nil
	}

	if err := s.grantEntitlement(ctx, userID, productType, productRef); err != nil {
		return false, &PersistenceError{Err: err}
	}

	s.logger.Info("entitlement backfilled",
		zap.String("user_id", userID),
		zap.String("product_type", productType),
		zap.String("product_ref", productRef),
	)
	return true, nil
}

func (s *checkoutServiceImpl) hasEntitlement(ctx context.Context, userID, productType, productRef string) (bool, error) {
	if productType == model.ProductTypePremium {
		return s.entitlements.HasPremium(ctx, userID)
	}
	return s.entitlements.OwnsKit(ctx, userID, productRef)
}

func (s *checkoutServiceImpl) grantEntitlement(ctx context.Context, userID, productType, productRef string) error {
	if productType == model.ProductTypePremium {
		return s.entitlements.GrantPremium(ctx, userID)
	}
	return s.entitlements.GrantKit(ctx, userID, productRef)
}
