package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/showyourproject/backend/internal/user/domain"
	"github.com/showyourproject/backend/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (id, display_name, email, tier, points_balance, points_earned, points_spent, featured_purchases, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.DisplayName,
		user.Email,
		user.Tier,
		user.PointsBalance,
		user.PointsEarned,
		user.PointsSpent,
		user.FeaturedPurchases,
		user.Metadata,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, display_name, email, tier, points_balance, points_earned, points_spent, featured_purchases, metadata, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, display_name, email, tier, points_balance, points_earned, points_spent, featured_purchases, metadata, created_at, updated_at
		 FROM users WHERE email = ?`,
		email,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListUserFilter, page pagination.Pagination) ([]*domain.User, error) {
	var users []*domain.User
	stmt := db.WithContext(ctx).Model(&domain.User{})
	if filter.Tier != "" {
		stmt = stmt.Where("tier = ?", filter.Tier)
	}
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.PageSize + 1)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
