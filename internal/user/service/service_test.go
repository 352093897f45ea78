package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/showyourproject/backend/internal/user/domain"
	"github.com/showyourproject/backend/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T, name string) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, db
}

func TestRegister_NormalizesAndDefaults(t *testing.T) {
	svc, _ := newService(t, "user_register")
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.RegisterUserRequest{
		DisplayName: "  Ada  ",
		Email:       " Ada@Example.COM ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.DisplayName)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, domain.TierFree, user.Tier)
	assert.Zero(t, user.PointsBalance)

	found, err := svc.GetByID(ctx, domain.GetUserRequest{ID: user.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, user.Email, found.Email)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newService(t, "user_register_validation")
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.RegisterUserRequest{DisplayName: "", Email: "a@b.c"})
	require.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Register(ctx, domain.RegisterUserRequest{DisplayName: "Ada", Email: "not-an-email"})
	require.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newService(t, "user_register_dupe")
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.RegisterUserRequest{DisplayName: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, domain.RegisterUserRequest{DisplayName: "Also Ada", Email: "ADA@example.com"})
	require.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestGetByID_Errors(t *testing.T) {
	svc, _ := newService(t, "user_get_errors")
	ctx := context.Background()

	_, err := svc.GetByID(ctx, domain.GetUserRequest{ID: "garbage"})
	require.ErrorIs(t, err, domain.ErrInvalidID)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	_, err = svc.GetByID(ctx, domain.GetUserRequest{ID: node.Generate().String()})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_FiltersByTier(t *testing.T) {
	svc, db := newService(t, "user_list")
	ctx := context.Background()

	for _, email := range []string{"one@example.com", "two@example.com"} {
		_, err := svc.Register(ctx, domain.RegisterUserRequest{DisplayName: "u", Email: email})
		require.NoError(t, err)
	}
	require.NoError(t, db.Model(&domain.User{}).
		Where("email = ?", "two@example.com").
		Update("tier", domain.TierAdmin).Error)

	resp, err := svc.List(ctx, domain.ListUserRequest{Tier: string(domain.TierAdmin)})
	require.NoError(t, err)
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "two@example.com", resp.Users[0].Email)

	resp, err = svc.List(ctx, domain.ListUserRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Users, 2)
}
