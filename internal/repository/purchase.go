package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"housetally-backend/internal/model"
)

type PurchaseRepository interface {
	// Create inserts an immutable purchase row. It returns created=false
	// without error when the unique index on (user_id, provider_order_id)
	// rejects the row: a concurrent capture already won the race.
	Create(ctx context.Context, purchase *model.Purchase) (created bool, err error)
	FindCompletedByUserAndOrder(ctx context.Context, userID, providerOrderID string) (*model.Purchase, error)
	// FindCompletedByOrder looks up a completed purchase for the order under
	// any user, for reconciling captures that raced across sessions.
	FindCompletedByOrder(ctx context.Context, providerOrderID string) (*model.Purchase, error)
	HasCompletedForProduct(ctx context.Context, userID, productRef string) (bool, error)
}

type purchaseRepoImpl struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepoImpl{
		db: db,
	}
}

func (r *purchaseRepoImpl) Create(ctx context.Context, purchase *model.Purchase) (bool, error) {
	err := r.db.WithContext(ctx).Create(purchase).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *purchaseRepoImpl) FindCompletedByUserAndOrder(ctx context.Context, userID, providerOrderID string) (*model.Purchase, error) {
	var purchase model.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider_order_id = ? AND status = ?",
			userID, providerOrderID, model.PurchaseStatusCompleted).
		First(&purchase).Error

	if err != nil {
		return nil, err
	}

	return &purchase, nil
}

func (r *purchaseRepoImpl) FindCompletedByOrder(ctx context.Context, providerOrderID string) (*model.Purchase, error) {
	var purchase model.Purchase
	err := r.db.WithContext(ctx).
		Where("provider_order_id = ? AND status = ?",
			providerOrderID, model.PurchaseStatusCompleted).
		First(&purchase).Error

	if err != nil {
		return nil, err
	}

	return &purchase, nil
}

func (r *purchaseRepoImpl) HasCompletedForProduct(ctx context.Context, userID, productRef string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Purchase{}).
		Where("user_id = ? AND product_ref = ? AND status = ?",
			userID, productRef, model.PurchaseStatusCompleted).
		Count(&count).Error

	return count > 0, err
}
