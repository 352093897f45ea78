package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/showyourproject/backend/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, project *Project) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Project, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Project, error)
	List(ctx context.Context, db *gorm.DB, filter ListProjectFilter, featuredFirst bool, page pagination.Pagination) ([]*Project, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status) (bool, error)
	InsertVote(ctx context.Context, db *gorm.DB, vote *Vote) error
	InsertClick(ctx context.Context, db *gorm.DB, click *Click) error
	IncrementVoteCount(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	IncrementClickCount(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
