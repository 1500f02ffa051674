package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"housetally-backend/internal/model"
)

func completedPurchase(userID, orderID string) *model.Purchase {
	return &model.Purchase{
		ID:              userID + "-" + orderID,
		UserID:          userID,
		ProductType:     model.ProductTypeKit,
		ProductRef:      "kit_classic",
		Price:           499,
		Currency:        "USD",
		Provider:        model.ProviderPaypal,
		ProviderOrderID: orderID,
		TransactionID:   "T1",
		Status:          model.PurchaseStatusCompleted,
	}
}

func TestPurchaseCreateDuplicateIsNotAnError(t *testing.T) {
	db := newTestDB(t)
	repo := NewPurchaseRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, completedPurchase("user-1", "O1"))
	require.NoError(t, err)
	assert.True(t, created)

	// Same (user, order): the unique index rejects it, reported as the
	// idempotent path.
	dup := completedPurchase("user-1", "O1")
	dup.ID = "another-row-id"
	created, err = repo.Create(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, db.Model(&model.Purchase{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPurchaseLookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewPurchaseRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, completedPurchase("user-1", "O1"))
	require.NoError(t, err)

	byUser, err := repo.FindCompletedByUserAndOrder(ctx, "user-1", "O1")
	require.NoError(t, err)
	assert.Equal(t, "T1", byUser.TransactionID)

	_, err = repo.FindCompletedByUserAndOrder(ctx, "user-2", "O1")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	// Cross-user lookup finds the order regardless of who recorded it.
	byOrder, err := repo.FindCompletedByOrder(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", byOrder.UserID)

	_, err = repo.FindCompletedByOrder(ctx, "O-ghost")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestHasCompletedForProduct(t *testing.T) {
	db := newTestDB(t)
	repo := NewPurchaseRepository(db)
	ctx := context.Background()

	has, err := repo.HasCompletedForProduct(ctx, "user-1", "kit_classic")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = repo.Create(ctx, completedPurchase("user-1", "O1"))
	require.NoError(t, err)

	has, err = repo.HasCompletedForProduct(ctx, "user-1", "kit_classic")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasCompletedForProduct(ctx, "user-2", "kit_classic")
	require.NoError(t, err)
	assert.False(t, has)
}
