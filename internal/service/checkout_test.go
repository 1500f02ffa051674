package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitiateKitOrder(t *testing.T) {
	env := newTestEnv()

	result, err := env.svc.InitiateKitOrder(context.Background(), "user-1", "kit_classic")
	require.NoError(t, err)

	assert.Equal(t, "O1", result.OrderID)
	assert.Equal(t, "https://provider.example/approve/O1", result.ApprovalURL)
	assert.Equal(t, 1, env.gateway.createCalls)
}

func TestInitiateRejectsUnknownKitBeforeProviderCall(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.InitiateKitOrder(context.Background(), "user-1", "kit_missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Zero(t, env.gateway.createCalls)
}

func TestInitiateRejectsFreeKitBeforeProviderCall(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.InitiateKitOrder(context.Background(), "user-1", "kit_starter")
	assert.ErrorIs(t, err, ErrFreeProduct)
	assert.Zero(t, env.gateway.createCalls)
}

func TestInitiateRejectsAlreadyOwnedBeforeProviderCall(t *testing.T) {
	env := newTestEnv()

	// Complete a purchase first.
	_, err := env.svc.InitiateKitOrder(context.Background(), "user-1", "kit_classic")
	require.NoError(t, err)
	_, err = env.svc.CaptureKitOrder(context.Background(), "user-1", "O1", "kit_classic")
	require.NoError(t, err)

	createCallsBefore := env.gateway.createCalls
	_, err = env.svc.InitiateKitOrder(context.Background(), "user-1", "kit_classic")
	assert.ErrorIs(t, err, ErrAlreadyOwned)
	assert.Equal(t, createCallsBefore, env.gateway.createCalls)
}

func TestInitiatePremiumOrder(t *testing.T) {
	env := newTestEnv()

	result, err := env.svc.InitiatePremiumOrder(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.OrderID)
	assert.NotEmpty(t, result.ApprovalURL)
}

func TestInitiatePremiumRejectsAlreadyPurchased(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.InitiatePremiumOrder(context.Background(), "user-1")
	require.NoError(t, err)
	_, err = env.svc.CapturePremiumOrder(context.Background(), "user-1", "O1")
	require.NoError(t, err)

	_, err = env.svc.InitiatePremiumOrder(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrAlreadyOwned)
}

func TestInitiateBuildsRedirectURLsFromConfiguredBase(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.InitiateKitOrder(context.Background(), "user-1", "kit_classic")
	require.NoError(t, err)

	assert.Equal(t, "https://api.example/api/checkout/return", env.gateway.lastCreateInput.ReturnURL)
	assert.Equal(t, "https://api.example/api/checkout/cancel", env.gateway.lastCreateInput.CancelURL)
	assert.Equal(t, "user-1|kit|kit_classic", env.gateway.lastCreateInput.CustomID)
}

func TestEnsureEntitlementIsIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	granted, err := env.svc.EnsureEntitlement(ctx, "user-1", "kit", "kit_classic")
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = env.svc.EnsureEntitlement(ctx, "user-1", "kit", "kit_classic")
	require.NoError(t, err)
	assert.False(t, granted)

	assert.Equal(t, 1, env.entitlements.kitCount())
}
