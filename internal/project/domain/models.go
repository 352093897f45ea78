package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Project is a directory entry. Featured and FeaturedUntil are a cached
// projection of the featured_slots table; the slot rows are the source of
// truth and the sweep repairs the cache.
type Project struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	OwnerID       snowflake.ID      `gorm:"not null;index" json:"owner_id"`
	Name          string            `gorm:"not null" json:"name"`
	Slug          string            `gorm:"not null;uniqueIndex:ux_projects_slug" json:"slug"`
	URL           string            `gorm:"not null" json:"url"`
	Tagline       string            `gorm:"type:text" json:"tagline,omitempty"`
	Description   string            `gorm:"type:text" json:"description,omitempty"`
	Status        Status            `gorm:"type:text;not null;default:'pending';index" json:"status"`
	Featured      bool              `gorm:"not null;default:false;index" json:"featured"`
	FeaturedUntil *time.Time        `json:"featured_until,omitempty"`
	VoteCount     int64             `gorm:"not null;default:0" json:"vote_count"`
	ClickCount    int64             `gorm:"not null;default:0" json:"click_count"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// Vote is one user's upvote on one project, unique per pair.
type Vote struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ProjectID snowflake.ID `gorm:"not null;uniqueIndex:ux_project_votes,priority:1" json:"project_id"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex:ux_project_votes,priority:2" json:"user_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Vote) TableName() string { return "project_votes" }

// Click is a click-through audit row. UserID is nil for anonymous visits.
type Click struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	ProjectID snowflake.ID  `gorm:"not null;index" json:"project_id"`
	UserID    *snowflake.ID `gorm:"index" json:"user_id,omitempty"`
	Referrer  string        `gorm:"type:text" json:"referrer,omitempty"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Click) TableName() string { return "project_clicks" }
