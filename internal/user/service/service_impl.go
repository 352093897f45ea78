package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/showyourproject/backend/internal/user/domain"
	"github.com/showyourproject/backend/pkg/db"
	"github.com/showyourproject/backend/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterUserRequest) (domain.User, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return domain.User{}, domain.ErrInvalidName
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.ErrInvalidEmail
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:          s.genID.Generate(),
		DisplayName: name,
		Email:       email,
		Tier:        domain.TierFree,
		Metadata:    datatypes.JSONMap{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, err
	}

	return user, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetUserRequest) (domain.User, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.User{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if item == nil {
		return domain.User{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListUserRequest) (domain.ListUserResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, domain.ListUserFilter{
		Tier: strings.TrimSpace(req.Tier),
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListUserResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(user *domain.User) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        user.ID.String(),
			CreatedAt: user.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	users := make([]domain.User, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		users = append(users, *item)
	}

	resp := domain.ListUserResponse{Users: users}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
