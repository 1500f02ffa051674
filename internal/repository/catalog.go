package repository

import (
	"context"

	"gorm.io/gorm"

	"housetally-backend/internal/model"
)

type CatalogRepository interface {
	Seed(ctx context.Context) error
	FindKitByID(ctx context.Context, kitID string) (*model.Kit, error)
}

type catalogRepoImpl struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepoImpl{
		db: db,
	}
}

func (r *catalogRepoImpl) Seed(ctx context.Context) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Kit{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	kits := []model.Kit{
		{ID: "kit_classic", Name: "Classic Games Kit", Price: 499, Currency: "USD", Items: []model.KitItem{
			{ItemRef: "board_darts", Name: "Darts scoreboard"},
			{ItemRef: "board_pool", Name: "Pool scoreboard"},
		}},
		{ID: "kit_party", Name: "Party Games Kit", Price: 799, Currency: "USD", Items: []model.KitItem{
			{ItemRef: "board_beerpong", Name: "Beer pong bracket"},
			{ItemRef: "board_trivia", Name: "Trivia rounds"},
		}},
		{ID: "kit_starter", Name: "Starter Kit", Price: 0, Currency: "USD", Items: []model.KitItem{
			{ItemRef: "board_tally", Name: "Simple tally board"},
		}},
	}

	return r.db.WithContext(ctx).Create(&kits).Error
}

func (r *catalogRepoImpl) FindKitByID(ctx context.Context, kitID string) (*model.Kit, error) {
	var kit model.Kit
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", kitID).
		First(&kit).Error

	if err != nil {
		return nil, err
	}

	return &kit, nil
}
