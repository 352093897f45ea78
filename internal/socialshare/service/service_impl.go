package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/showyourproject/backend/internal/clock"
	"github.com/showyourproject/backend/internal/config"
	"github.com/showyourproject/backend/internal/metrics"
	projectdomain "github.com/showyourproject/backend/internal/project/domain"
	"github.com/showyourproject/backend/internal/socialshare/adapters"
	"github.com/showyourproject/backend/internal/socialshare/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dispatchTimeout = 10 * time.Second

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Registry *adapters.Registry
	Social   *config.SocialConfigHolder
	Limiter  domain.RateLimiter `optional:"true"`
	Metrics  *metrics.Metrics   `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	registry *adapters.Registry
	social   *config.SocialConfigHolder
	limiter  domain.RateLimiter
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("socialshare.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		registry: p.Registry,
		social:   p.Social,
		limiter:  p.Limiter,
		metrics:  p.Metrics,
	}
}

type target struct {
	platform string
	adapter  domain.Adapter
	post     domain.SocialPost
}

// Share fans the announcement out to every platform that is enabled,
// credentialed and under its posting rate. Platforms dispatch concurrently
// and independently; one platform's failure is recorded on its own post
// row and never touches the others.
func (s *Service) Share(ctx context.Context, req domain.ShareRequest) ([]domain.DispatchResult, error) {
	pid, err := snowflake.ParseString(strings.TrimSpace(req.ProjectID))
	if err != nil || pid == 0 {
		return nil, domain.ErrInvalidID
	}

	var project projectdomain.Project
	if err := s.db.WithContext(ctx).
		Model(&projectdomain.Project{}).
		Where("id = ?", pid).
		Scan(&project).Error; err != nil {
		return nil, err
	}
	if project.ID == 0 {
		return nil, domain.ErrProjectNotFound
	}
	if project.Status != projectdomain.StatusApproved {
		return nil, domain.ErrProjectNotLive
	}

	if err := s.ensurePlatformRows(ctx); err != nil {
		return nil, err
	}
	rows, err := s.platformRows(ctx)
	if err != nil {
		return nil, err
	}

	content := domain.PostContent{
		Title:   project.Name,
		URL:     project.URL,
		Tagline: project.Tagline,
	}
	if image, ok := project.Metadata["image_url"].(string); ok {
		content.ImageURL = image
	}

	targets := s.collectTargets(ctx, pid, rows, content)
	if len(targets) == 0 {
		return []domain.DispatchResult{}, nil
	}

	results := make([]domain.DispatchResult, len(targets))
	group, _ := errgroup.WithContext(ctx)
	for i, tgt := range targets {
		group.Go(func() error {
			results[i] = s.dispatch(ctx, tgt, content)
			return nil
		})
	}
	_ = group.Wait()

	return results, nil
}

// collectTargets inserts a pending post row for each eligible platform.
// Disabled, uncredentialed and rate-limited platforms are skipped without
// a row; nothing was attempted for them.
func (s *Service) collectTargets(ctx context.Context, projectID snowflake.ID, rows map[string]domain.Platform, content domain.PostContent) []target {
	now := s.clock.Now()

	var targets []target
	for _, platform := range domain.KnownPlatforms {
		row, ok := rows[platform]
		if !ok || !row.Enabled {
			continue
		}
		settings := s.social.Platform(platform)
		if !settings.Enabled {
			continue
		}

		adapter, err := s.registry.NewAdapter(platform)
		if err != nil {
			if err != domain.ErrNotConfigured && err != domain.ErrPlatformNotFound {
				s.log.Warn("adapter init failed", zap.String("platform", platform), zap.Error(err))
			}
			continue
		}

		if s.limiter != nil && !s.limiter.Allow(ctx, "social:post:"+platform, settings.MaxPostsPerHour) {
			s.log.Info("platform rate limited, skipping", zap.String("platform", platform))
			continue
		}

		post := domain.SocialPost{
			ID:        s.genID.Generate(),
			ProjectID: projectID,
			Platform:  platform,
			Content:   adapter.Render(content),
			ImageURL:  content.ImageURL,
			Status:    domain.PostStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.db.WithContext(ctx).Exec(
			`INSERT INTO social_posts (id, project_id, platform, content, image_url, post_url, status, error, posted_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, '', ?, '', NULL, ?, ?)`,
			post.ID,
			post.ProjectID,
			post.Platform,
			post.Content,
			post.ImageURL,
			string(post.Status),
			post.CreatedAt,
			post.UpdatedAt,
		).Error; err != nil {
			s.log.Error("pending post insert failed", zap.String("platform", platform), zap.Error(err))
			continue
		}

		targets = append(targets, target{platform: platform, adapter: adapter, post: post})
	}
	return targets
}

func (s *Service) dispatch(ctx context.Context, tgt target, content domain.PostContent) domain.DispatchResult {
	callCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	start := time.Now()
	result, err := tgt.adapter.Publish(callCtx, content)
	elapsed := time.Since(start)

	if err != nil {
		s.markFailed(ctx, tgt.post.ID, tgt.platform, err)
		if s.metrics != nil {
			s.metrics.RecordSocialDispatch(tgt.platform, string(domain.PostStatusFailed), elapsed)
		}
		s.log.Warn("social dispatch failed",
			zap.String("platform", tgt.platform),
			zap.String("post_id", tgt.post.ID.String()),
			zap.Error(err),
		)
		return domain.DispatchResult{
			Platform: tgt.platform,
			Status:   domain.PostStatusFailed,
			Error:    err.Error(),
		}
	}

	s.markPosted(ctx, tgt.post.ID, tgt.platform, result.PostURL)
	if s.metrics != nil {
		s.metrics.RecordSocialDispatch(tgt.platform, string(domain.PostStatusPosted), elapsed)
	}
	s.log.Info("social dispatch posted",
		zap.String("platform", tgt.platform),
		zap.String("post_id", tgt.post.ID.String()),
		zap.String("post_url", result.PostURL),
	)
	return domain.DispatchResult{
		Platform: tgt.platform,
		Status:   domain.PostStatusPosted,
		PostURL:  result.PostURL,
	}
}

// markPosted and markFailed guard on status = pending so a post can only
// leave pending once, whatever races the sweeps get up to.
func (s *Service) markPosted(ctx context.Context, postID snowflake.ID, platform, postURL string) {
	now := s.clock.Now()
	if err := s.db.WithContext(ctx).Exec(
		`UPDATE social_posts
		 SET status = ?, post_url = ?, posted_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.PostStatusPosted, postURL, now, now, postID, domain.PostStatusPending,
	).Error; err != nil {
		s.log.Error("post status update failed", zap.String("post_id", postID.String()), zap.Error(err))
		return
	}
	if err := s.db.WithContext(ctx).Exec(
		`UPDATE social_platforms
		 SET post_count = post_count + 1, last_posted_at = ?, updated_at = ?
		 WHERE id = ?`,
		now, now, platform,
	).Error; err != nil {
		s.log.Error("platform counter update failed", zap.String("platform", platform), zap.Error(err))
	}
}

func (s *Service) markFailed(ctx context.Context, postID snowflake.ID, platform string, cause error) {
	now := s.clock.Now()
	if err := s.db.WithContext(ctx).Exec(
		`UPDATE social_posts
		 SET status = ?, error = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.PostStatusFailed, cause.Error(), now, postID, domain.PostStatusPending,
	).Error; err != nil {
		s.log.Error("post status update failed", zap.String("post_id", postID.String()), zap.Error(err))
		return
	}
	if err := s.db.WithContext(ctx).Exec(
		`UPDATE social_platforms
		 SET error_count = error_count + 1, last_error = ?, updated_at = ?
		 WHERE id = ?`,
		cause.Error(), now, platform,
	).Error; err != nil {
		s.log.Error("platform counter update failed", zap.String("platform", platform), zap.Error(err))
	}
}

func (s *Service) ListPosts(ctx context.Context, req domain.ListPostsRequest) ([]domain.SocialPost, error) {
	stmt := s.db.WithContext(ctx).Model(&domain.SocialPost{})
	if trimmed := strings.TrimSpace(req.ProjectID); trimmed != "" {
		pid, err := snowflake.ParseString(trimmed)
		if err != nil || pid == 0 {
			return nil, domain.ErrInvalidID
		}
		stmt = stmt.Where("project_id = ?", pid)
	}
	if platform := strings.ToLower(strings.TrimSpace(req.Platform)); platform != "" {
		stmt = stmt.Where("platform = ?", platform)
	}
	if status := strings.ToLower(strings.TrimSpace(req.Status)); status != "" {
		stmt = stmt.Where("status = ?", status)
	}

	var posts []domain.SocialPost
	if err := stmt.Order("created_at desc, id desc").Limit(200).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Service) Platforms(ctx context.Context) ([]domain.Platform, error) {
	if err := s.ensurePlatformRows(ctx); err != nil {
		return nil, err
	}
	var rows []domain.Platform
	if err := s.db.WithContext(ctx).
		Model(&domain.Platform{}).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) SetPlatformEnabled(ctx context.Context, id string, enabled bool) (domain.Platform, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if err := s.ensurePlatformRows(ctx); err != nil {
		return domain.Platform{}, err
	}

	result := s.db.WithContext(ctx).Exec(
		`UPDATE social_platforms SET enabled = ?, updated_at = ? WHERE id = ?`,
		enabled, s.clock.Now(), id,
	)
	if result.Error != nil {
		return domain.Platform{}, result.Error
	}
	if result.RowsAffected == 0 {
		return domain.Platform{}, domain.ErrPlatformNotFound
	}

	var row domain.Platform
	if err := s.db.WithContext(ctx).
		Model(&domain.Platform{}).
		Where("id = ?", id).
		Scan(&row).Error; err != nil {
		return domain.Platform{}, err
	}
	return row, nil
}

func (s *Service) ensurePlatformRows(ctx context.Context) error {
	now := s.clock.Now()
	for _, platform := range domain.KnownPlatforms {
		row := domain.Platform{ID: platform, Enabled: true, UpdatedAt: now}
		if err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) platformRows(ctx context.Context) (map[string]domain.Platform, error) {
	var rows []domain.Platform
	if err := s.db.WithContext(ctx).
		Model(&domain.Platform{}).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Platform, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	return byID, nil
}
