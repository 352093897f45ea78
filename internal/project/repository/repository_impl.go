package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/showyourproject/backend/internal/project/domain"
	"github.com/showyourproject/backend/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, project *domain.Project) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO projects (id, owner_id, name, slug, url, tagline, description, status, featured, vote_count, click_count, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.OwnerID,
		project.Name,
		project.Slug,
		project.URL,
		project.Tagline,
		project.Description,
		project.Status,
		project.Featured,
		project.VoteCount,
		project.ClickCount,
		project.Metadata,
		project.CreatedAt,
		project.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Project, error) {
	var project domain.Project
	err := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ?", id).
		Scan(&project).Error
	if err != nil {
		return nil, err
	}
	if project.ID == 0 {
		return nil, nil
	}
	return &project, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Project, error) {
	var project domain.Project
	err := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("slug = ?", slug).
		Scan(&project).Error
	if err != nil {
		return nil, err
	}
	if project.ID == 0 {
		return nil, nil
	}
	return &project, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListProjectFilter, featuredFirst bool, page pagination.Pagination) ([]*domain.Project, error) {
	var projects []*domain.Project
	stmt := db.WithContext(ctx).Model(&domain.Project{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.OwnerID != "" {
		stmt = stmt.Where("owner_id = ?", filter.OwnerID)
	}
	if page.PageToken != "" {
		cursor, err := decodeListCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.PageSize + 1)
	}
	order := "created_at desc, id desc"
	if featuredFirst {
		order = "featured desc, " + order
	}
	if err := stmt.Order(order).Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

type listCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

// Tokens bind as typed values so the comparison against the stored
// timestamps holds on every dialect.
func decodeListCursor(token string) (listCursor, error) {
	decoded, err := pagination.DecodeCursor(token)
	if err != nil {
		return listCursor{}, domain.ErrInvalidRequest
	}
	createdAt, err := time.Parse(time.RFC3339, decoded.CreatedAt)
	if err != nil {
		return listCursor{}, domain.ErrInvalidRequest
	}
	id, err := snowflake.ParseString(decoded.ID)
	if err != nil || id == 0 {
		return listCursor{}, domain.ErrInvalidRequest
	}
	return listCursor{ID: id, CreatedAt: createdAt}, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE projects
		 SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		to,
		id,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertVote(ctx context.Context, db *gorm.DB, vote *domain.Vote) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO project_votes (id, project_id, user_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		vote.ID,
		vote.ProjectID,
		vote.UserID,
		vote.CreatedAt,
	).Error
}

func (r *repo) InsertClick(ctx context.Context, db *gorm.DB, click *domain.Click) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO project_clicks (id, project_id, user_id, referrer, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		click.ID,
		click.ProjectID,
		click.UserID,
		click.Referrer,
		click.CreatedAt,
	).Error
}

func (r *repo) IncrementVoteCount(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE projects SET vote_count = vote_count + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	).Error
}

func (r *repo) IncrementClickCount(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE projects SET click_count = click_count + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	).Error
}
