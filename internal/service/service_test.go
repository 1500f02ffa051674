package service

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"housetally-backend/internal/client"
	"housetally-backend/internal/model"
)

type catalogStub struct {
	kits map[string]*model.Kit
}

func newCatalogStub() *catalogStub {
	return &catalogStub{
		kits: map[string]*model.Kit{
			"kit_classic": {ID: "kit_classic", Name: "Classic Games Kit", Price: 499, Currency: "USD"},
			"kit_starter": {ID: "kit_starter", Name: "Starter Kit", Price: 0, Currency: "USD"},
		},
	}
}

func (s *catalogStub) Seed(_ context.Context) error {
	return nil
}

func (s *catalogStub) FindKitByID(_ context.Context, kitID string) (*model.Kit, error) {
	kit, ok := s.kits[kitID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return kit, nil
}

// purchaseStoreStub mimics the datastore's unique index on
// (user_id, provider_order_id): concurrent inserts race and exactly one wins.
type purchaseStoreStub struct {
	mu        sync.Mutex
	purchases []*model.Purchase
}

func newPurchaseStoreStub() *purchaseStoreStub {
	return &purchaseStoreStub{}
}

func (s *purchaseStoreStub) Create(_ context.Context, purchase *model.Purchase) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.purchases {
		if p.UserID == purchase.UserID && p.ProviderOrderID == purchase.ProviderOrderID {
			return false, nil
		}
	}
	clone := *purchase
	s.purchases = append(s.purchases, &clone)
	return true, nil
}

func (s *purchaseStoreStub) FindCompletedByUserAndOrder(_ context.Context, userID, providerOrderID string) (*model.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.purchases {
		if p.UserID == userID && p.ProviderOrderID == providerOrderID && p.Status == model.PurchaseStatusCompleted {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *purchaseStoreStub) FindCompletedByOrder(_ context.Context, providerOrderID string) (*model.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.purchases {
		if p.ProviderOrderID == providerOrderID && p.Status == model.PurchaseStatusCompleted {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *purchaseStoreStub) HasCompletedForProduct(_ context.Context, userID, productRef string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.purchases {
		if p.UserID == userID && p.ProductRef == productRef && p.Status == model.PurchaseStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (s *purchaseStoreStub) count(providerOrderID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.purchases {
		if p.ProviderOrderID == providerOrderID {
			n++
		}
	}
	return n
}

type entitlementStoreStub struct {
	mu       sync.Mutex
	premium  map[string]bool
	userKits map[string]bool // userID|kitID
}

func newEntitlementStoreStub() *entitlementStoreStub {
	return &entitlementStoreStub{
		premium:  make(map[string]bool),
		userKits: make(map[string]bool),
	}
}

func (s *entitlementStoreStub) HasPremium(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.premium[userID], nil
}

func (s *entitlementStoreStub) GrantPremium(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.premium[userID] = true
	return nil
}

func (s *entitlementStoreStub) OwnsKit(_ context.Context, userID, kitID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userKits[userID+"|"+kitID], nil
}

func (s *entitlementStoreStub) GrantKit(_ context.Context, userID, kitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userKits[userID+"|"+kitID] = true
	return nil
}

func (s *entitlementStoreStub) kitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.userKits)
}

// gatewayStub scripts the provider: order creation hands out sequential ids,
// capture replays the configured result.
type gatewayStub struct {
	mu              sync.Mutex
	createCalls     int
	captureCalls    int
	lastCreateInput client.CreateOrderInput
	captureResult   *client.CaptureResult
	captureErr      error
}

func newGatewayStub() *gatewayStub {
	return &gatewayStub{
		captureResult: &client.CaptureResult{
			Outcome:        client.CaptureCompleted,
			TransactionID:  "T1",
			ProviderStatus: "COMPLETED",
			Raw:            json.RawMessage(`{"status":"COMPLETED"}`),
		},
	}
}

func (s *gatewayStub) CreateOrder(_ context.Context, in client.CreateOrderInput) (*client.CreateOrderResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	s.lastCreateInput = in
	return &client.CreateOrderResponse{
		OrderID:    "O1",
		ApproveURL: "https://provider.example/approve/O1",
	}, nil
}

func (s *gatewayStub) CaptureOrder(_ context.Context, _ string) (*client.CaptureResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captureCalls++
	if s.captureErr != nil {
		return nil, s.captureErr
	}
	return s.captureResult, nil
}

func (s *gatewayStub) setCaptureResult(result *client.CaptureResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captureResult = result
}

type testEnv struct {
	svc          CheckoutService
	gateway      *gatewayStub
	purchases    *purchaseStoreStub
	entitlements *entitlementStoreStub
}

func newTestEnv() *testEnv {
	gateway := newGatewayStub()
	purchases := newPurchaseStoreStub()
	entitlements := newEntitlementStoreStub()

	svc := NewCheckoutService(
		gateway,
		newCatalogStub(),
		purchases,
		entitlements,
		zap.NewNop(),
		"https://api.example",
		0, // no trigger wait in tests: the automatic grant never runs here
	)

	return &testEnv{
		svc:          svc,
		gateway:      gateway,
		purchases:    purchases,
		entitlements: entitlements,
	}
}
