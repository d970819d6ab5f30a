package social_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/adspark/go-social"
)

func TestRegisterProfileHandler(t *testing.T) {
	repo := setupRepoManager(t)
	handler := social.NewRegisterProfileHandler(repo, social.AdminAllowList("root@adspark.dev"))
	ctx := context.Background()

	msg := social.RegisterProfileMessage{
		DisplayName: "Casey",
		Email:       "casey@example.com",
		Role:        social.RoleCreator,
		UseHashid:   true,
	}
	assert.Equal(t, "profile.register", msg.Type())

	require.NoError(t, handler.Execute(ctx, msg))

	profile, err := repo.Profiles().GetByEmail(ctx, "casey@example.com")
	require.NoError(t, err)
	assert.Equal(t, "casey", profile.Username, "username falls back to the email local part")
	assert.Equal(t, social.RoleCreator, profile.Role)

	t.Run("deterministic id from email", func(t *testing.T) {
		again := profile.ID
		assert.NotZero(t, again)
	})

	t.Run("admin downgrades for unlisted email", func(t *testing.T) {
		require.NoError(t, handler.Execute(ctx, social.RegisterProfileMessage{
			Username: "wannabe",
			Email:    "wannabe@example.com",
			Role:     social.RoleAdmin,
		}))

		p, err := repo.Profiles().GetByUsername(ctx, "wannabe")
		require.NoError(t, err)
		assert.Equal(t, social.RoleCreator, p.Role)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		err := handler.Execute(cancelled, social.RegisterProfileMessage{Username: "late"})
		require.Error(t, err)
	})
}

func TestBanAccountHandler(t *testing.T) {
	repo := setupRepoManager(t)
	revoker := new(MockSessionRevoker)
	handler := social.NewBanAccountHandler(repo, revoker)
	ctx := context.Background()

	profile, err := repo.Profiles().Create(ctx, &social.Profile{
		Username:    "taylor",
		DisplayName: "Taylor",
	})
	require.NoError(t, err)

	msg := social.BanAccountMessage{
		Username: "taylor",
		Reason:   "harassment",
		IssuedBy: "mod-1",
	}
	assert.Equal(t, "moderation.account.ban", msg.Type())

	revoker.On("RevokeProfile", mock.Anything, profile.ID).Return(nil).Once()

	require.NoError(t, handler.Execute(ctx, msg))
	revoker.AssertExpectations(t)

	found, err := repo.Profiles().GetByUsername(ctx, "taylor")
	require.NoError(t, err)
	require.NotNil(t, found.AccountBan)
	assert.Equal(t, "harassment", found.AccountBan.Reason)
	assert.True(t, found.AccountBan.Permanent())

	t.Run("empty reason is rejected", func(t *testing.T) {
		err := handler.Execute(ctx, social.BanAccountMessage{Username: "taylor"})
		assert.ErrorIs(t, err, social.ErrEmptyReason)
	})

	t.Run("temporary ban keeps its expiry", func(t *testing.T) {
		until := time.Now().Add(24 * time.Hour)
		revoker.On("RevokeProfile", mock.Anything, profile.ID).Return(nil).Once()

		require.NoError(t, handler.Execute(ctx, social.BanAccountMessage{
			Username:    "taylor",
			Reason:      "repeat offense",
			BannedUntil: &until,
			IssuedBy:    "mod-1",
		}))

		found, err := repo.Profiles().GetByUsername(ctx, "taylor")
		require.NoError(t, err)
		require.NotNil(t, found.AccountBan.BannedUntil)
		assert.False(t, found.AccountBan.Permanent())
	})
}
