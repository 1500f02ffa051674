package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"housetally-backend/internal/model"
)

// EntitlementRepository reads and writes the derived entitlement state: the
// premium flag on the profile and kit ownership rows. Grants are upserts so
// they stay safe under concurrent and repeated calls.
type EntitlementRepository interface {
	HasPremium(ctx context.Context, userID string) (bool, error)
	GrantPremium(ctx context.Context, userID string) error
	OwnsKit(ctx context.Context, userID, kitID string) (bool, error)
	GrantKit(ctx context.Context, userID, kitID string) error
}

type entitlementRepoImpl struct {
	db *gorm.DB
}

func NewEntitlementRepository(db *gorm.DB) EntitlementRepository {
	return &entitlementRepoImpl{
		db: db,
	}
}

func (r *entitlementRepoImpl) HasPremium(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("user_id = ? AND is_premium = ?", userID, true).
		Count(&count).Error

	return count > 0, err
}

func (r *entitlementRepoImpl) GrantPremium(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"is_premium": true,
			"updated_at": time.Now(),
		}),
	}).Create(&model.Profile{
		UserID:    userID,
		IsPremium: true,
	}).Error
}

func (r *entitlementRepoImpl) OwnsKit(ctx context.Context, userID, kitID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserKit{}).
		Where("user_id = ? AND kit_id = ?", userID, kitID).
		Count(&count).Error

	return count > 0, err
}

func (r *entitlementRepoImpl) GrantKit(ctx context.Context, userID, kitID string) error {
	// Insert-if-absent: a kit already granted (possibly with is_active
	// flipped by the user since) must not be touched.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "kit_id"}},
		DoNothing: true,
	}).Create(&model.UserKit{
		UserID:   userID,
		KitID:    kitID,
		IsActive: false,
	}).Error
}
