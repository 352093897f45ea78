package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type PostStatus string

const (
	PostStatusPending PostStatus = "pending"
	PostStatusPosted  PostStatus = "posted"
	PostStatusFailed  PostStatus = "failed"
)

const (
	PlatformReddit   = "reddit"
	PlatformTwitter  = "twitter"
	PlatformFacebook = "facebook"
	PlatformDiscord  = "discord"
	PlatformTelegram = "telegram"
)

// KnownPlatforms is the fixed dispatch order. Platform rows are seeded for
// each of these on first use.
var KnownPlatforms = []string{
	PlatformReddit,
	PlatformTwitter,
	PlatformFacebook,
	PlatformDiscord,
	PlatformTelegram,
}

// SocialPost records one dispatch attempt to one platform. Status moves
// pending -> posted or pending -> failed exactly once; a post never leaves
// a terminal state.
type SocialPost struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ProjectID snowflake.ID `gorm:"not null;index" json:"project_id"`
	Platform  string       `gorm:"not null;index" json:"platform"`
	Content   string       `gorm:"type:text;not null" json:"content"`
	ImageURL  string       `gorm:"type:text" json:"image_url,omitempty"`
	PostURL   string       `gorm:"type:text" json:"post_url,omitempty"`
	Status    PostStatus   `gorm:"type:text;not null;default:'pending';index" json:"status"`
	Error     string       `gorm:"type:text" json:"error,omitempty"`
	PostedAt  *time.Time   `json:"posted_at,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SocialPost) TableName() string { return "social_posts" }

// Platform is the per-platform bookkeeping row. Enabled is the admin
// toggle; credentials never live here.
type Platform struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	Enabled      bool       `gorm:"not null;default:true" json:"enabled"`
	PostCount    int64      `gorm:"not null;default:0" json:"post_count"`
	ErrorCount   int64      `gorm:"not null;default:0" json:"error_count"`
	LastError    string     `gorm:"type:text" json:"last_error,omitempty"`
	LastPostedAt *time.Time `json:"last_posted_at,omitempty"`
	UpdatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Platform) TableName() string { return "social_platforms" }
