package model

import "time"

const (
	ProductTypeKit     = "kit"
	ProductTypePremium = "premium"

	PurchaseStatusCompleted = "completed"
	PurchaseStatusFailed    = "failed"

	ProviderPaypal = "paypal"
)

type Kit struct {
	ID       string    `gorm:"primaryKey;size:64;not null"`
	Name     string    `gorm:"size:128;not null"`
	Price    int32     `gorm:"not null"` // minor currency units
	Currency string    `gorm:"size:8;not null"`
	Items    []KitItem `gorm:"foreignKey:KitID"`

	CreatedAt time.Time
}

type KitItem struct {
	ID      uint   `gorm:"primaryKey"`
	KitID   string `gorm:"size:64;index;not null"`
	ItemRef string `gorm:"size:64;not null"`
	Name    string `gorm:"size:128;not null"`
}

// Purchase is append-only: rows are inserted on successful capture and never
// updated or deleted. The unique index on (user_id, provider_order_id) is the
// concurrency guard for double submission.
type Purchase struct {
	ID              string `gorm:"primaryKey;size:64;not null"`
	UserID          string `gorm:"size:64;uniqueIndex:ux_purchases_user_order,priority:1;not null"`
	ProductType     string `gorm:"size:16;not null"` // kit, premium
	ProductRef      string `gorm:"size:64;index;not null"`
	Price           int32  `gorm:"not null"`
	Currency        string `gorm:"size:8;not null"`
	Provider        string `gorm:"size:32;not null"`
	ProviderOrderID string `gorm:"size:64;uniqueIndex:ux_purchases_user_order,priority:2;index;not null"`
	TransactionID   string `gorm:"size:64"`
	Status          string `gorm:"size:16;index;not null"` // completed, failed
	Metadata        string `gorm:"type:text"`              // raw provider payload for reconciliation

	CreatedAt time.Time
}

type Profile struct {
	UserID    string `gorm:"primaryKey;size:64;not null"`
	IsPremium bool   `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserKit is kit ownership. IsActive defaults to false: owning a kit is not
// the same as equipping it.
type UserKit struct {
	UserID   string `gorm:"primaryKey;size:64;not null"`
	KitID    string `gorm:"primaryKey;size:64;not null"`
	IsActive bool   `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
