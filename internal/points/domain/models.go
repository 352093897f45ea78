package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Direction marks whether a transaction added to or subtracted from a balance.
type Direction string

const (
	DirectionEarned Direction = "earned"
	DirectionSpent  Direction = "spent"
)

// Action is the recognized cause of a point transaction.
type Action string

const (
	ActionLike             Action = "like"
	ActionClick            Action = "click"
	ActionFeaturedPurchase Action = "featured_purchase"
	ActionAdminBonus       Action = "admin_bonus"
)

func (a Action) Valid() bool {
	switch a {
	case ActionLike, ActionClick, ActionFeaturedPurchase, ActionAdminBonus:
		return true
	default:
		return false
	}
}

// PointTransaction is an append-only ledger record. Rows are never updated
// or deleted; the user's balance counters are derivable by replay.
type PointTransaction struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	UserID      snowflake.ID  `gorm:"not null;index" json:"user_id"`
	Direction   Direction     `gorm:"type:text;not null" json:"direction"`
	Action      Action        `gorm:"type:text;not null;index" json:"action"`
	Amount      int64         `gorm:"not null" json:"amount"`
	ProjectID   *snowflake.ID `gorm:"index" json:"project_id,omitempty"`
	Description string        `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (PointTransaction) TableName() string { return "point_transactions" }
