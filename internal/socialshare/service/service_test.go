package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/showyourproject/backend/internal/clock"
	"github.com/showyourproject/backend/internal/config"
	projectdomain "github.com/showyourproject/backend/internal/project/domain"
	"github.com/showyourproject/backend/internal/socialshare/adapters"
	"github.com/showyourproject/backend/internal/socialshare/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeAdapter struct {
	platform string
	result   domain.PostResult
	err      error
	calls    int
}

func (a *fakeAdapter) Platform() string { return a.platform }

func (a *fakeAdapter) Render(content domain.PostContent) string {
	return "[" + a.platform + "] " + content.Title + " " + content.URL
}

func (a *fakeAdapter) Publish(ctx context.Context, content domain.PostContent) (domain.PostResult, error) {
	a.calls++
	if a.err != nil {
		return domain.PostResult{}, a.err
	}
	return a.result, nil
}

type fakeFactory struct {
	adapter    *fakeAdapter
	configured bool
}

func (f *fakeFactory) Platform() string { return f.adapter.platform }

func (f *fakeFactory) NewAdapter() (domain.Adapter, error) {
	if !f.configured {
		return nil, domain.ErrNotConfigured
	}
	return f.adapter, nil
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(ctx context.Context, key string, maxPerHour int) bool { return false }

type fixture struct {
	db      *gorm.DB
	clock   *clock.FakeClock
	genID   *snowflake.Node
	service domain.Service
}

func newFixture(t *testing.T, name string, limiter domain.RateLimiter, factories ...domain.AdapterFactory) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&projectdomain.Project{},
		&domain.SocialPost{},
		&domain.Platform{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	holder, err := config.NewSocialConfigHolder()
	require.NoError(t, err)

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Registry: adapters.NewRegistry(factories...),
		Social:   holder,
		Limiter:  limiter,
	})

	return &fixture{db: db, clock: fake, genID: node, service: svc}
}

func (f *fixture) seedProject(t *testing.T, status projectdomain.Status) projectdomain.Project {
	t.Helper()
	id := f.genID.Generate()
	project := projectdomain.Project{
		ID:        id,
		OwnerID:   f.genID.Generate(),
		Name:      "Widget Factory",
		Slug:      "widget-factory-" + id.String(),
		URL:       "https://widgets.example.com",
		Tagline:   "Widgets on demand",
		Status:    status,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&project).Error)
	return project
}

func TestShare_FansOutToConfiguredPlatforms(t *testing.T) {
	discord := &fakeAdapter{platform: domain.PlatformDiscord, result: domain.PostResult{PostURL: "", ExternalID: "msg-1"}}
	telegram := &fakeAdapter{platform: domain.PlatformTelegram, result: domain.PostResult{PostURL: "https://t.me/c/1", ExternalID: "1"}}

	f := newFixture(t, "share_fanout", nil,
		&fakeFactory{adapter: discord, configured: true},
		&fakeFactory{adapter: telegram, configured: true},
	)
	project := f.seedProject(t, projectdomain.StatusApproved)

	results, err := f.service.Share(context.Background(), domain.ShareRequest{ProjectID: project.ID.String()})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, result := range results {
		assert.Equal(t, domain.PostStatusPosted, result.Status)
	}
	assert.Equal(t, 1, discord.calls)
	assert.Equal(t, 1, telegram.calls)

	var posts []domain.SocialPost
	require.NoError(t, f.db.Where("project_id = ?", project.ID).Find(&posts).Error)
	require.Len(t, posts, 2)
	for _, post := range posts {
		assert.Equal(t, domain.PostStatusPosted, post.Status)
		assert.NotNil(t, post.PostedAt)
	}
}

func TestShare_PlatformFailureIsIsolated(t *testing.T) {
	discord := &fakeAdapter{platform: domain.PlatformDiscord, err: errors.New("webhook gone")}
	telegram := &fakeAdapter{platform: domain.PlatformTelegram, result: domain.PostResult{ExternalID: "1"}}

	f := newFixture(t, "share_isolated", nil,
		&fakeFactory{adapter: discord, configured: true},
		&fakeFactory{adapter: telegram, configured: true},
	)
	project := f.seedProject(t, projectdomain.StatusApproved)

	results, err := f.service.Share(context.Background(), domain.ShareRequest{ProjectID: project.ID.String()})
	require.NoError(t, err)
	require.Len(t, results, 2)

	byPlatform := map[string]domain.DispatchResult{}
	for _, result := range results {
		byPlatform[result.Platform] = result
	}
	assert.Equal(t, domain.PostStatusFailed, byPlatform[domain.PlatformDiscord].Status)
	assert.Contains(t, byPlatform[domain.PlatformDiscord].Error, "webhook gone")
	assert.Equal(t, domain.PostStatusPosted, byPlatform[domain.PlatformTelegram].Status)

	var failed domain.SocialPost
	require.NoError(t, f.db.Where("platform = ?", domain.PlatformDiscord).First(&failed).Error)
	assert.Equal(t, domain.PostStatusFailed, failed.Status)
	assert.Contains(t, failed.Error, "webhook gone")

	var row domain.Platform
	require.NoError(t, f.db.Where("id = ?", domain.PlatformDiscord).First(&row).Error)
	assert.Equal(t, int64(1), row.ErrorCount)
	assert.Contains(t, row.LastError, "webhook gone")

	row = domain.Platform{}
	require.NoError(t, f.db.Where("id = ?", domain.PlatformTelegram).First(&row).Error)
	assert.Equal(t, int64(1), row.PostCount)
	assert.NotNil(t, row.LastPostedAt)
}

func TestShare_StoresPlatformRenderedContent(t *testing.T) {
	discord := &fakeAdapter{platform: domain.PlatformDiscord, result: domain.PostResult{ExternalID: "msg-1"}}
	telegram := &fakeAdapter{platform: domain.PlatformTelegram, result: domain.PostResult{ExternalID: "1"}}

	f := newFixture(t, "share_rendered", nil,
		&fakeFactory{adapter: discord, configured: true},
		&fakeFactory{adapter: telegram, configured: true},
	)
	project := f.seedProject(t, projectdomain.StatusApproved)

	_, err := f.service.Share(context.Background(), domain.ShareRequest{ProjectID: project.ID.String()})
	require.NoError(t, err)

	var posts []domain.SocialPost
	require.NoError(t, f.db.Where("project_id = ?", project.ID).Find(&posts).Error)
	require.Len(t, posts, 2)
	for _, post := range posts {
		assert.Equal(t, "["+post.Platform+"] "+project.Name+" "+project.URL, post.Content)
	}
}

func TestShare_SkipsUnconfiguredAndDisabledPlatforms(t *testing.T) {
	configured := &fakeAdapter{platform: domain.PlatformDiscord}
	unconfigured := &fakeAdapter{platform: domain.PlatformTwitter}

	f := newFixture(t, "share_skip", nil,
		&fakeFactory{adapter: configured, configured: true},
		&fakeFactory{adapter: unconfigured, configured: false},
	)
	project := f.seedProject(t, projectdomain.StatusApproved)

	_, err := f.service.SetPlatformEnabled(context.Background(), domain.PlatformDiscord, false)
	require.NoError(t, err)

	results, err := f.service.Share(context.Background(), domain.ShareRequest{ProjectID: project.ID.String()})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, configured.calls)
	assert.Zero(t, unconfigured.calls)

	var count int64
	require.NoError(t, f.db.Model(&domain.SocialPost{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestShare_RateLimitedPlatformIsSkipped(t *testing.T) {
	discord := &fakeAdapter{platform: domain.PlatformDiscord}

	f := newFixture(t, "share_ratelimited", denyAllLimiter{},
		&fakeFactory{adapter: discord, configured: true},
	)
	project := f.seedProject(t, projectdomain.StatusApproved)

	results, err := f.service.Share(context.Background(), domain.ShareRequest{ProjectID: project.ID.String()})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, discord.calls)
}

func TestShare_RejectsUnapprovedProject(t *testing.T) {
	f := newFixture(t, "share_unapproved", nil)
	project := f.seedProject(t, projectdomain.StatusPending)

	_, err := f.service.Share(context.Background(), domain.ShareRequest{ProjectID: project.ID.String()})
	require.ErrorIs(t, err, domain.ErrProjectNotLive)
}

func TestListPosts_FiltersByPlatformAndStatus(t *testing.T) {
	discord := &fakeAdapter{platform: domain.PlatformDiscord, err: errors.New("down")}
	telegram := &fakeAdapter{platform: domain.PlatformTelegram, result: domain.PostResult{ExternalID: "1"}}

	f := newFixture(t, "share_listposts", nil,
		&fakeFactory{adapter: discord, configured: true},
		&fakeFactory{adapter: telegram, configured: true},
	)
	project := f.seedProject(t, projectdomain.StatusApproved)

	_, err := f.service.Share(context.Background(), domain.ShareRequest{ProjectID: project.ID.String()})
	require.NoError(t, err)

	posts, err := f.service.ListPosts(context.Background(), domain.ListPostsRequest{
		ProjectID: project.ID.String(),
		Status:    string(domain.PostStatusFailed),
	})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, domain.PlatformDiscord, posts[0].Platform)
}
