package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type SlotStatus string

const (
	SlotStatusActive  SlotStatus = "active"
	SlotStatusExpired SlotStatus = "expired"
)

// FeaturedSlot is a time-boxed promoted placement bought with points.
// active -> expired is the only transition; a repeat purchase creates a
// new slot instead of reviving an old one.
type FeaturedSlot struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ProjectID   snowflake.ID `gorm:"not null;index" json:"project_id"`
	UserID      snowflake.ID `gorm:"not null;index" json:"user_id"`
	PointsSpent int64        `gorm:"not null" json:"points_spent"`
	PurchasedAt time.Time    `gorm:"not null" json:"purchased_at"`
	ExpiresAt   time.Time    `gorm:"not null;index" json:"expires_at"`
	Status      SlotStatus   `gorm:"type:text;not null;default:'active';index" json:"status"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (FeaturedSlot) TableName() string { return "featured_slots" }

// Settings is the singleton capacity/price row. Purchases lock it FOR
// UPDATE so capacity checks serialize.
type Settings struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	MaxSlots     int       `gorm:"not null" json:"max_slots"`
	CostPoints   int64     `gorm:"not null" json:"cost_points"`
	DurationDays int       `gorm:"not null" json:"duration_days"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Settings) TableName() string { return "featured_settings" }

const SettingsRowID = 1

type Service interface {
	Purchase(ctx context.Context, userID, projectID string) (FeaturedSlot, error)
	// ExpireStale flips overdue slots to expired and repairs stale
	// featured flags on projects. Idempotent and safe to run from any
	// trigger, concurrently or repeatedly.
	ExpireStale(ctx context.Context) (ExpireReport, error)
	ActiveSlots(ctx context.Context) ([]FeaturedSlot, error)
	// IsFeatured answers from the slot table, not the cached flag.
	IsFeatured(ctx context.Context, projectID string) (bool, error)
	GetSettings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (Settings, error)
}

type ExpireReport struct {
	SlotsExpired  int64 `json:"slots_expired"`
	FlagsRepaired int64 `json:"flags_repaired"`
}

type UpdateSettingsRequest struct {
	MaxSlots     *int
	CostPoints   *int64
	DurationDays *int
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrProjectNotFound  = errors.New("project_not_found")
	ErrProjectNotLive   = errors.New("project_not_live")
	ErrAlreadyFeatured  = errors.New("already_featured")
	ErrCapacityExceeded = errors.New("capacity_exceeded")
	ErrInvalidSettings  = errors.New("invalid_settings")
)
