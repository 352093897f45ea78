package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierAdmin   Tier = "admin"
)

func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPremium, TierAdmin:
		return true
	default:
		return false
	}
}

// User carries identity plus the mutable points economy counters.
// Invariant: PointsBalance = PointsEarned - PointsSpent and never negative;
// only the points service mutates the three counters.
type User struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	DisplayName       string            `gorm:"not null" json:"display_name"`
	Email             string            `gorm:"not null;uniqueIndex:ux_users_email" json:"email"`
	Tier              Tier              `gorm:"type:text;not null;default:'free'" json:"tier"`
	PointsBalance     int64             `gorm:"not null;default:0" json:"points_balance"`
	PointsEarned      int64             `gorm:"not null;default:0" json:"points_earned"`
	PointsSpent       int64             `gorm:"not null;default:0" json:"points_spent"`
	FeaturedPurchases int64             `gorm:"not null;default:0" json:"featured_purchases"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u User) IsAdmin() bool { return u.Tier == TierAdmin }
