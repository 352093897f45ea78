package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/showyourproject/backend/internal/clock"
	"github.com/showyourproject/backend/internal/config"
	featureddomain "github.com/showyourproject/backend/internal/featured/domain"
	featuredservice "github.com/showyourproject/backend/internal/featured/service"
	pointsdomain "github.com/showyourproject/backend/internal/points/domain"
	pointsservice "github.com/showyourproject/backend/internal/points/service"
	projectdomain "github.com/showyourproject/backend/internal/project/domain"
	socialdomain "github.com/showyourproject/backend/internal/socialshare/domain"
	userdomain "github.com/showyourproject/backend/internal/user/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

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
	if err := db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripForUpdate); err != nil {
		t.Fatalf("failed to register query callback: %v", err)
	}
	if err := db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripForUpdate); err != nil {
		t.Fatalf("failed to register row callback: %v", err)
	}

	if err := db.AutoMigrate(
		&userdomain.User{},
		&pointsdomain.PointTransaction{},
		&projectdomain.Project{},
		&featureddomain.FeaturedSlot{},
		&featureddomain.Settings{},
		&socialdomain.SocialPost{},
		&socialdomain.Platform{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newScheduler(t *testing.T, db *gorm.DB, fake *clock.FakeClock) *Scheduler {
	t.Helper()

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	cfg := config.Config{
		Featured: config.FeaturedConfig{MaxSlots: 6, CostPoints: 500, DurationDays: 14},
	}
	points := pointsservice.New(pointsservice.Params{DB: db, Log: zap.NewNop(), GenID: node})
	featured := featuredservice.New(featuredservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Config: cfg,
		Clock:  fake,
		Points: points,
	})

	sched, err := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       fake,
		FeaturedSvc: featured,
	})
	if err != nil {
		t.Fatalf("failed to build scheduler: %v", err)
	}
	return sched
}

func TestRunOnce_ExpiresFeaturedSlotsOverTime(t *testing.T) {
	db := openTestDB(t, "scheduler_expiry")
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	sched := newScheduler(t, db, fake)
	ctx := context.Background()

	node, _ := snowflake.NewNode(4)
	userID := node.Generate()
	if err := db.Create(&userdomain.User{
		ID:            userID,
		DisplayName:   "maker",
		Email:         "maker@example.com",
		Tier:          userdomain.TierFree,
		PointsBalance: 5000,
		PointsEarned:  5000,
		CreatedAt:     fake.Now(),
		UpdatedAt:     fake.Now(),
	}).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	// Three projects bought slots on day 0, 5 and 10.
	for day := 0; day <= 10; day += 5 {
		projectID := node.Generate()
		if err := db.Create(&projectdomain.Project{
			ID:        projectID,
			OwnerID:   userID,
			Name:      "p" + projectID.String(),
			Slug:      "p-" + projectID.String(),
			URL:       "https://example.com",
			Status:    projectdomain.StatusApproved,
			CreatedAt: fake.Now(),
			UpdatedAt: fake.Now(),
		}).Error; err != nil {
			t.Fatalf("failed to seed project: %v", err)
		}
		purchasedAt := fake.Now().Add(time.Duration(day) * 24 * time.Hour)
		if err := db.Create(&featureddomain.FeaturedSlot{
			ID:          node.Generate(),
			ProjectID:   projectID,
			UserID:      userID,
			PointsSpent: 500,
			PurchasedAt: purchasedAt,
			ExpiresAt:   purchasedAt.Add(14 * 24 * time.Hour),
			Status:      featureddomain.SlotStatusActive,
			CreatedAt:   purchasedAt,
			UpdatedAt:   purchasedAt,
		}).Error; err != nil {
			t.Fatalf("failed to seed slot: %v", err)
		}
		if err := db.Model(&projectdomain.Project{}).Where("id = ?", projectID).
			Update("featured", true).Error; err != nil {
			t.Fatalf("failed to flag project: %v", err)
		}
	}

	// Walk 30 days, sweeping daily. Expirations land at day 14, 19 and 24.
	expiredByDay := map[int]int64{}
	for day := 1; day <= 30; day++ {
		fake.Advance(24 * time.Hour)
		if err := sched.RunOnce(ctx); err != nil {
			t.Fatalf("day %d: RunOnce failed: %v", day, err)
		}
		var expired int64
		if err := db.Model(&featureddomain.FeaturedSlot{}).
			Where("status = ?", featureddomain.SlotStatusExpired).
			Count(&expired).Error; err != nil {
			t.Fatalf("day %d: count failed: %v", day, err)
		}
		expiredByDay[day] = expired
	}

	if expiredByDay[13] != 0 {
		t.Fatalf("expected no expirations by day 13, got %d", expiredByDay[13])
	}
	if expiredByDay[14] != 1 {
		t.Fatalf("expected 1 expiration by day 14, got %d", expiredByDay[14])
	}
	if expiredByDay[19] != 2 {
		t.Fatalf("expected 2 expirations by day 19, got %d", expiredByDay[19])
	}
	if expiredByDay[30] != 3 {
		t.Fatalf("expected all 3 slots expired by day 30, got %d", expiredByDay[30])
	}

	var flagged int64
	if err := db.Model(&projectdomain.Project{}).
		Where("featured = ?", true).Count(&flagged).Error; err != nil {
		t.Fatalf("flag count failed: %v", err)
	}
	if flagged != 0 {
		t.Fatalf("expected all featured flags cleared, got %d", flagged)
	}
}

func TestRunOnce_RestoresLostFeaturedFlags(t *testing.T) {
	db := openTestDB(t, "scheduler_reconcile")
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	sched := newScheduler(t, db, fake)
	ctx := context.Background()

	node, _ := snowflake.NewNode(5)
	projectID := node.Generate()
	if err := db.Create(&projectdomain.Project{
		ID:        projectID,
		OwnerID:   node.Generate(),
		Name:      "p",
		Slug:      "p-" + projectID.String(),
		URL:       "https://example.com",
		Status:    projectdomain.StatusApproved,
		Featured:  false,
		CreatedAt: fake.Now(),
		UpdatedAt: fake.Now(),
	}).Error; err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}
	if err := db.Create(&featureddomain.FeaturedSlot{
		ID:          node.Generate(),
		ProjectID:   projectID,
		UserID:      node.Generate(),
		PointsSpent: 500,
		PurchasedAt: fake.Now(),
		ExpiresAt:   fake.Now().Add(14 * 24 * time.Hour),
		Status:      featureddomain.SlotStatusActive,
		CreatedAt:   fake.Now(),
		UpdatedAt:   fake.Now(),
	}).Error; err != nil {
		t.Fatalf("failed to seed slot: %v", err)
	}

	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	var project projectdomain.Project
	if err := db.Where("id = ?", projectID).First(&project).Error; err != nil {
		t.Fatalf("failed to reload project: %v", err)
	}
	if !project.Featured {
		t.Fatalf("expected featured flag restored")
	}
	if project.FeaturedUntil == nil {
		t.Fatalf("expected featured_until restored")
	}
}

func TestRunOnce_FailsStalePendingPosts(t *testing.T) {
	db := openTestDB(t, "scheduler_stale")
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	sched := newScheduler(t, db, fake)
	ctx := context.Background()

	node, _ := snowflake.NewNode(6)
	staleID := node.Generate()
	freshID := node.Generate()
	postedID := node.Generate()

	posts := []socialdomain.SocialPost{
		{ID: staleID, ProjectID: node.Generate(), Platform: socialdomain.PlatformDiscord,
			Content: "x", Status: socialdomain.PostStatusPending,
			CreatedAt: fake.Now().Add(-time.Hour), UpdatedAt: fake.Now().Add(-time.Hour)},
		{ID: freshID, ProjectID: node.Generate(), Platform: socialdomain.PlatformTelegram,
			Content: "x", Status: socialdomain.PostStatusPending,
			CreatedAt: fake.Now(), UpdatedAt: fake.Now()},
		{ID: postedID, ProjectID: node.Generate(), Platform: socialdomain.PlatformTwitter,
			Content: "x", Status: socialdomain.PostStatusPosted,
			CreatedAt: fake.Now().Add(-time.Hour), UpdatedAt: fake.Now().Add(-time.Hour)},
	}
	for i := range posts {
		if err := db.Create(&posts[i]).Error; err != nil {
			t.Fatalf("failed to seed post: %v", err)
		}
	}

	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	assertStatus := func(id snowflake.ID, want socialdomain.PostStatus) {
		t.Helper()
		var post socialdomain.SocialPost
		if err := db.Where("id = ?", id).First(&post).Error; err != nil {
			t.Fatalf("failed to reload post: %v", err)
		}
		if post.Status != want {
			t.Fatalf("post %s: expected status %s, got %s", id, want, post.Status)
		}
	}

	assertStatus(staleID, socialdomain.PostStatusFailed)
	assertStatus(freshID, socialdomain.PostStatusPending)
	assertStatus(postedID, socialdomain.PostStatusPosted)
}
