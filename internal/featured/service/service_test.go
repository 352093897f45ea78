package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/showyourproject/backend/internal/clock"
	"github.com/showyourproject/backend/internal/config"
	"github.com/showyourproject/backend/internal/featured/domain"
	pointsdomain "github.com/showyourproject/backend/internal/points/domain"
	pointsservice "github.com/showyourproject/backend/internal/points/service"
	projectdomain "github.com/showyourproject/backend/internal/project/domain"
	userdomain "github.com/showyourproject/backend/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	// SQLite support hack: remove FOR UPDATE clauses
	stripForUpdate := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
			newSQL = strings.ReplaceAll(newSQL, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	}
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripForUpdate))
	require.NoError(t, db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripForUpdate))

	require.NoError(t, db.AutoMigrate(
		&userdomain.User{},
		&pointsdomain.PointTransaction{},
		&projectdomain.Project{},
		&domain.FeaturedSlot{},
		&domain.Settings{},
	))
	return db
}

type fixture struct {
	db      *gorm.DB
	clock   *clock.FakeClock
	genID   *snowflake.Node
	points  pointsdomain.Service
	service domain.Service
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()

	db := openTestDB(t, name)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{
		Points: config.PointsConfig{LikeAward: 5, ClickAward: 10},
		Featured: config.FeaturedConfig{
			MaxSlots:     6,
			CostPoints:   500,
			DurationDays: 14,
		},
	}

	points := pointsservice.New(pointsservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})

	svc := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Config: cfg,
		Clock:  fake,
		Points: points,
	})

	return &fixture{db: db, clock: fake, genID: node, points: points, service: svc}
}

func (f *fixture) seedUser(t *testing.T, balance int64) userdomain.User {
	t.Helper()
	id := f.genID.Generate()
	user := userdomain.User{
		ID:            id,
		DisplayName:   "maker",
		Email:         "maker-" + id.String() + "@example.com",
		Tier:          userdomain.TierFree,
		PointsBalance: balance,
		PointsEarned:  balance,
		CreatedAt:     f.clock.Now(),
		UpdatedAt:     f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

func (f *fixture) seedProject(t *testing.T, ownerID snowflake.ID, status projectdomain.Status) projectdomain.Project {
	t.Helper()
	id := f.genID.Generate()
	project := projectdomain.Project{
		ID:        id,
		OwnerID:   ownerID,
		Name:      "Project " + id.String(),
		Slug:      "project-" + id.String(),
		URL:       "https://example.com/" + id.String(),
		Status:    status,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&project).Error)
	return project
}

func TestPurchase_DebitsPointsAndFlagsProject(t *testing.T) {
	f := newFixture(t, "featured_purchase")
	ctx := context.Background()

	user := f.seedUser(t, 600)
	project := f.seedProject(t, user.ID, projectdomain.StatusApproved)

	slot, err := f.service.Purchase(ctx, user.ID.String(), project.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusActive, slot.Status)
	assert.Equal(t, int64(500), slot.PointsSpent)
	assert.Equal(t, f.clock.Now().Add(14*24*time.Hour), slot.ExpiresAt)

	balance, err := f.points.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	var refreshed projectdomain.Project
	require.NoError(t, f.db.Where("id = ?", project.ID).First(&refreshed).Error)
	assert.True(t, refreshed.Featured)
	require.NotNil(t, refreshed.FeaturedUntil)

	var stored userdomain.User
	require.NoError(t, f.db.Where("id = ?", user.ID).First(&stored).Error)
	assert.Equal(t, int64(1), stored.FeaturedPurchases)

	var ledger []pointsdomain.PointTransaction
	require.NoError(t, f.db.Where("user_id = ?", user.ID).Find(&ledger).Error)
	require.Len(t, ledger, 1)
	assert.Equal(t, pointsdomain.ActionFeaturedPurchase, ledger[0].Action)
	assert.Equal(t, pointsdomain.DirectionSpent, ledger[0].Direction)
}

func TestPurchase_InsufficientPointsLeavesNothingBehind(t *testing.T) {
	f := newFixture(t, "featured_insufficient")
	ctx := context.Background()

	user := f.seedUser(t, 499)
	project := f.seedProject(t, user.ID, projectdomain.StatusApproved)

	_, err := f.service.Purchase(ctx, user.ID.String(), project.ID.String())
	require.ErrorIs(t, err, pointsdomain.ErrInsufficientPoints)

	balance, err := f.points.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(499), balance)

	var slots int64
	require.NoError(t, f.db.Model(&domain.FeaturedSlot{}).Count(&slots).Error)
	assert.Zero(t, slots)

	var refreshed projectdomain.Project
	require.NoError(t, f.db.Where("id = ?", project.ID).First(&refreshed).Error)
	assert.False(t, refreshed.Featured)
}

func TestPurchase_RejectsProjectAlreadyFeatured(t *testing.T) {
	f := newFixture(t, "featured_already")
	ctx := context.Background()

	user := f.seedUser(t, 2000)
	project := f.seedProject(t, user.ID, projectdomain.StatusApproved)

	_, err := f.service.Purchase(ctx, user.ID.String(), project.ID.String())
	require.NoError(t, err)

	_, err = f.service.Purchase(ctx, user.ID.String(), project.ID.String())
	require.ErrorIs(t, err, domain.ErrAlreadyFeatured)

	balance, err := f.points.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), balance)
}

func TestPurchase_EnforcesCapacity(t *testing.T) {
	f := newFixture(t, "featured_capacity")
	ctx := context.Background()

	user := f.seedUser(t, 10000)

	maxSlots := 2
	_, err := f.service.UpdateSettings(ctx, domain.UpdateSettingsRequest{MaxSlots: &maxSlots})
	require.NoError(t, err)

	first := f.seedProject(t, user.ID, projectdomain.StatusApproved)
	second := f.seedProject(t, user.ID, projectdomain.StatusApproved)
	third := f.seedProject(t, user.ID, projectdomain.StatusApproved)

	_, err = f.service.Purchase(ctx, user.ID.String(), first.ID.String())
	require.NoError(t, err)
	_, err = f.service.Purchase(ctx, user.ID.String(), second.ID.String())
	require.NoError(t, err)

	_, err = f.service.Purchase(ctx, user.ID.String(), third.ID.String())
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	active, err := f.service.ActiveSlots(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestPurchase_RejectsPendingProject(t *testing.T) {
	f := newFixture(t, "featured_pending")
	ctx := context.Background()

	user := f.seedUser(t, 600)
	project := f.seedProject(t, user.ID, projectdomain.StatusPending)

	_, err := f.service.Purchase(ctx, user.ID.String(), project.ID.String())
	require.ErrorIs(t, err, domain.ErrProjectNotLive)
}

func TestPurchase_UnknownProject(t *testing.T) {
	f := newFixture(t, "featured_unknown")
	ctx := context.Background()

	user := f.seedUser(t, 600)

	_, err := f.service.Purchase(ctx, user.ID.String(), f.genID.Generate().String())
	require.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestExpireStale_FlipsSlotsAndRepairsFlags(t *testing.T) {
	f := newFixture(t, "featured_expire")
	ctx := context.Background()

	user := f.seedUser(t, 2000)
	project := f.seedProject(t, user.ID, projectdomain.StatusApproved)

	slot, err := f.service.Purchase(ctx, user.ID.String(), project.ID.String())
	require.NoError(t, err)

	// Not due yet.
	f.clock.Advance(13 * 24 * time.Hour)
	report, err := f.service.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.SlotsExpired)

	featured, err := f.service.IsFeatured(ctx, project.ID.String())
	require.NoError(t, err)
	assert.True(t, featured)

	// Past expiry.
	f.clock.Advance(2 * 24 * time.Hour)
	report, err = f.service.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.SlotsExpired)
	assert.Equal(t, int64(1), report.FlagsRepaired)

	var stored domain.FeaturedSlot
	require.NoError(t, f.db.Where("id = ?", slot.ID).First(&stored).Error)
	assert.Equal(t, domain.SlotStatusExpired, stored.Status)

	var refreshed projectdomain.Project
	require.NoError(t, f.db.Where("id = ?", project.ID).First(&refreshed).Error)
	assert.False(t, refreshed.Featured)
	assert.Nil(t, refreshed.FeaturedUntil)

	featured, err = f.service.IsFeatured(ctx, project.ID.String())
	require.NoError(t, err)
	assert.False(t, featured)

	// A second sweep finds nothing to do.
	report, err = f.service.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.SlotsExpired)
	assert.Zero(t, report.FlagsRepaired)
}

func TestExpireStale_FreesCapacityForNewPurchases(t *testing.T) {
	f := newFixture(t, "featured_recycle")
	ctx := context.Background()

	user := f.seedUser(t, 10000)

	maxSlots := 1
	_, err := f.service.UpdateSettings(ctx, domain.UpdateSettingsRequest{MaxSlots: &maxSlots})
	require.NoError(t, err)

	first := f.seedProject(t, user.ID, projectdomain.StatusApproved)
	second := f.seedProject(t, user.ID, projectdomain.StatusApproved)

	_, err = f.service.Purchase(ctx, user.ID.String(), first.ID.String())
	require.NoError(t, err)
	_, err = f.service.Purchase(ctx, user.ID.String(), second.ID.String())
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	f.clock.Advance(15 * 24 * time.Hour)
	_, err = f.service.ExpireStale(ctx)
	require.NoError(t, err)

	_, err = f.service.Purchase(ctx, user.ID.String(), second.ID.String())
	require.NoError(t, err)
}

func TestUpdateSettings_Validates(t *testing.T) {
	f := newFixture(t, "featured_settings")
	ctx := context.Background()

	bad := -1
	_, err := f.service.UpdateSettings(ctx, domain.UpdateSettingsRequest{MaxSlots: &bad})
	require.ErrorIs(t, err, domain.ErrInvalidSettings)

	cost := int64(750)
	days := 7
	updated, err := f.service.UpdateSettings(ctx, domain.UpdateSettingsRequest{CostPoints: &cost, DurationDays: &days})
	require.NoError(t, err)
	assert.Equal(t, int64(750), updated.CostPoints)
	assert.Equal(t, 7, updated.DurationDays)
	assert.Equal(t, 6, updated.MaxSlots)

	settings, err := f.service.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, updated.CostPoints, settings.CostPoints)
}
