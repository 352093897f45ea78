package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/showyourproject/backend/internal/config"
	pointsdomain "github.com/showyourproject/backend/internal/points/domain"
	"github.com/showyourproject/backend/internal/project/domain"
	"github.com/showyourproject/backend/pkg/db"
	"github.com/showyourproject/backend/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Config config.Config
	Repo   domain.Repository
	Points pointsdomain.Service
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	cfg    config.Config
	repo   domain.Repository
	points pointsdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("project.service"),
		genID:  p.GenID,
		cfg:    p.Config,
		repo:   p.Repo,
		points: p.Points,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitProjectRequest) (domain.Project, error) {
	ownerID, err := snowflake.ParseString(strings.TrimSpace(req.OwnerID))
	if err != nil || ownerID == 0 {
		return domain.Project{}, domain.ErrInvalidOwner
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Project{}, domain.ErrInvalidName
	}

	url := strings.TrimSpace(req.URL)
	if url == "" || !(strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")) {
		return domain.Project{}, domain.ErrInvalidURL
	}

	now := time.Now().UTC()
	project := domain.Project{
		ID:          s.genID.Generate(),
		OwnerID:     ownerID,
		Name:        name,
		Slug:        slug.Make(name),
		URL:         url,
		Tagline:     strings.TrimSpace(req.Tagline),
		Description: strings.TrimSpace(req.Description),
		Status:      domain.StatusPending,
		Metadata:    datatypes.JSONMap{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &project); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Same name already taken; suffix with the id tail to keep
			// slugs stable and unique.
			project.Slug = fmt.Sprintf("%s-%d", project.Slug, project.ID%10000)
			if retryErr := s.repo.Insert(ctx, s.db, &project); retryErr != nil {
				if db.IsDuplicateKeyErr(retryErr) {
					return domain.Project{}, domain.ErrSlugConflict
				}
				return domain.Project{}, retryErr
			}
			return project, nil
		}
		return domain.Project{}, err
	}

	return project, nil
}

func (s *Service) Approve(ctx context.Context, id string) (domain.Project, error) {
	return s.transition(ctx, id, domain.StatusPending, domain.StatusApproved)
}

func (s *Service) Reject(ctx context.Context, id string) (domain.Project, error) {
	return s.transition(ctx, id, domain.StatusPending, domain.StatusRejected)
}

func (s *Service) transition(ctx context.Context, id string, from, to domain.Status) (domain.Project, error) {
	projectID, err := s.parseID(id)
	if err != nil {
		return domain.Project{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, s.db, projectID, from, to)
	if err != nil {
		return domain.Project{}, err
	}
	if !updated {
		item, findErr := s.repo.FindByID(ctx, s.db, projectID)
		if findErr != nil {
			return domain.Project{}, findErr
		}
		if item == nil {
			return domain.Project{}, domain.ErrNotFound
		}
		return domain.Project{}, domain.ErrNotPending
	}

	item, err := s.repo.FindByID(ctx, s.db, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if item == nil {
		return domain.Project{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Project, error) {
	projectID, err := s.parseID(id)
	if err != nil {
		return domain.Project{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if item == nil {
		return domain.Project{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetBySlug(ctx context.Context, value string) (domain.Project, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.Project{}, domain.ErrInvalidID
	}
	item, err := s.repo.FindBySlug(ctx, s.db, value)
	if err != nil {
		return domain.Project{}, err
	}
	if item == nil {
		return domain.Project{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListProjectRequest) (domain.ListProjectResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	// Cursor tokens resume the plain recency order; the featured rail is a
	// first-page concern and cannot be paged into.
	if req.FeaturedFirst && strings.TrimSpace(req.PageToken) != "" {
		return domain.ListProjectResponse{}, domain.ErrInvalidRequest
	}

	items, err := s.repo.List(ctx, s.db, domain.ListProjectFilter{
		Status:  strings.TrimSpace(req.Status),
		OwnerID: strings.TrimSpace(req.OwnerID),
	}, req.FeaturedFirst, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListProjectResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(project *domain.Project) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        project.ID.String(),
			CreatedAt: project.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	projects := make([]domain.Project, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		projects = append(projects, *item)
	}

	resp := domain.ListProjectResponse{Projects: projects}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Vote(ctx context.Context, req domain.VoteRequest) (domain.Project, error) {
	projectID, err := s.parseID(req.ProjectID)
	if err != nil {
		return domain.Project{}, err
	}
	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil || userID == 0 {
		return domain.Project{}, domain.ErrInvalidRequest
	}

	item, err := s.repo.FindByID(ctx, s.db, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if item == nil {
		return domain.Project{}, domain.ErrNotFound
	}
	if item.Status != domain.StatusApproved {
		return domain.Project{}, domain.ErrNotApproved
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote := domain.Vote{
			ID:        s.genID.Generate(),
			ProjectID: projectID,
			UserID:    userID,
			CreatedAt: now,
		}
		if err := s.repo.InsertVote(ctx, tx, &vote); err != nil {
			return err
		}
		return s.repo.IncrementVoteCount(ctx, tx, projectID)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Project{}, domain.ErrAlreadyVoted
		}
		return domain.Project{}, err
	}

	// The vote is committed; awarding points is best-effort and must not
	// roll it back or surface a failure to the voter.
	s.awardEngagement(ctx, userID, projectID, pointsdomain.ActionLike, s.cfg.Points.LikeAward, "upvoted "+item.Name)

	refreshed, err := s.repo.FindByID(ctx, s.db, projectID)
	if err != nil || refreshed == nil {
		item.VoteCount++
		return *item, nil
	}
	return *refreshed, nil
}

func (s *Service) RecordClick(ctx context.Context, req domain.ClickRequest) error {
	projectID, err := s.parseID(req.ProjectID)
	if err != nil {
		return err
	}

	item, err := s.repo.FindByID(ctx, s.db, projectID)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}

	var userID *snowflake.ID
	if trimmed := strings.TrimSpace(req.UserID); trimmed != "" {
		parsed, err := snowflake.ParseString(trimmed)
		if err != nil || parsed == 0 {
			return domain.ErrInvalidRequest
		}
		userID = &parsed
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		click := domain.Click{
			ID:        s.genID.Generate(),
			ProjectID: projectID,
			UserID:    userID,
			Referrer:  strings.TrimSpace(req.Referrer),
			CreatedAt: now,
		}
		if err := s.repo.InsertClick(ctx, tx, &click); err != nil {
			return err
		}
		return s.repo.IncrementClickCount(ctx, tx, projectID)
	})
	if err != nil {
		return err
	}

	if userID != nil {
		s.awardEngagement(ctx, *userID, projectID, pointsdomain.ActionClick, s.cfg.Points.ClickAward, "visited "+item.Name)
	}
	return nil
}

func (s *Service) awardEngagement(ctx context.Context, userID, projectID snowflake.ID, action pointsdomain.Action, amount int64, description string) {
	if amount <= 0 {
		return
	}
	_, err := s.points.Award(ctx, pointsdomain.AwardRequest{
		UserID:      userID,
		Action:      action,
		Amount:      amount,
		ProjectID:   &projectID,
		Description: description,
	})
	if err != nil {
		s.log.Warn("points award failed",
			zap.String("user_id", userID.String()),
			zap.String("project_id", projectID.String()),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
