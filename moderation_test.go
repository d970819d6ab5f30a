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

func seedProfile(t *testing.T, repo social.RepositoryManager, username string) *social.Profile {
	t.Helper()

	profile, err := repo.Profiles().Create(context.Background(), &social.Profile{
		Username:    username,
		DisplayName: username,
		ContentItems: []social.ContentItem{
			{ID: "v1", Title: "First"},
			{ID: "v2", Title: "Second"},
			{ID: "v3", Title: "Third"},
		},
		PinnedContentIDs: []string{"v1", "v2"},
		Stats:            social.ProfileStats{Videos: 3},
	})
	require.NoError(t, err)
	return profile
}

func TestIssueWarning(t *testing.T) {
	repo := setupRepoManager(t)
	mod := social.NewModeration(repo)
	ctx := context.Background()

	seedProfile(t, repo, "taylor")

	t.Run("empty reason is rejected", func(t *testing.T) {
		err := mod.IssueWarning(ctx, "taylor", "   ", "mod-1")
		assert.ErrorIs(t, err, social.ErrEmptyReason)
	})

	t.Run("missing target errors", func(t *testing.T) {
		err := mod.IssueWarning(ctx, "nobody", "spam", "mod-1")
		assert.ErrorIs(t, err, social.ErrProfileNotFound)
	})

	t.Run("warnings append", func(t *testing.T) {
		require.NoError(t, mod.IssueWarning(ctx, "taylor", "spam", "mod-1"))
		require.NoError(t, mod.IssueWarning(ctx, "TAYLOR", "more spam", "mod-2"))

		profile, err := repo.Profiles().GetByUsername(ctx, "taylor")
		require.NoError(t, err)
		require.Len(t, profile.Warnings, 2)
		assert.Equal(t, "spam", profile.Warnings[0].Reason)
		assert.Equal(t, "mod-2", profile.Warnings[1].IssuedBy)
	})
}

func TestBanAccount(t *testing.T) {
	repo := setupRepoManager(t)
	revoker := new(MockSessionRevoker)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mod := social.NewModeration(repo,
		social.WithModerationSessionRevoker(revoker),
		social.WithModerationClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	profile := seedProfile(t, repo, "taylor")

	revoker.On("RevokeProfile", mock.Anything, profile.ID).Return(nil).Once()

	require.NoError(t, mod.BanAccount(ctx, "taylor", "harassment", nil, "mod-1"))
	revoker.AssertExpectations(t)

	t.Run("ban is stored and permanent", func(t *testing.T) {
		ban, err := mod.ActiveAccountBan(ctx, "taylor")
		require.NoError(t, err)
		require.NotNil(t, ban)
		assert.True(t, ban.Permanent())
		assert.Equal(t, "harassment", ban.Reason)
	})

	t.Run("unban clears the record", func(t *testing.T) {
		require.NoError(t, mod.UnbanAccount(ctx, "taylor"))

		ban, err := mod.ActiveAccountBan(ctx, "taylor")
		require.NoError(t, err)
		assert.Nil(t, ban)

		// Unbanning an unbanned account is a no-op.
		require.NoError(t, mod.UnbanAccount(ctx, "taylor"))
	})

	t.Run("empty reason is rejected", func(t *testing.T) {
		err := mod.BanAccount(ctx, "taylor", "", nil, "mod-1")
		assert.ErrorIs(t, err, social.ErrEmptyReason)
	})
}

func TestBanAccountLazyExpiry(t *testing.T) {
	repo := setupRepoManager(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mod := social.NewModeration(repo,
		social.WithModerationClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	seedProfile(t, repo, "taylor")

	until := now.Add(72 * time.Hour)
	require.NoError(t, mod.BanAccount(ctx, "taylor", "spam", &until, "mod-1"))

	ban, err := mod.ActiveAccountBan(ctx, "taylor")
	require.NoError(t, err)
	require.NotNil(t, ban)

	// Clock moves past the expiry: the ban stops counting on read, but the
	// stored record survives until an explicit unban.
	now = now.Add(96 * time.Hour)

	ban, err = mod.ActiveAccountBan(ctx, "taylor")
	require.NoError(t, err)
	assert.Nil(t, ban)

	profile, err := repo.Profiles().GetByUsername(ctx, "taylor")
	require.NoError(t, err)
	assert.NotNil(t, profile.AccountBan)
}

func TestContentModeration(t *testing.T) {
	repo := setupRepoManager(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mod := social.NewModeration(repo,
		social.WithModerationClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	seedProfile(t, repo, "taylor")

	t.Run("ban hides the item from the visible set", func(t *testing.T) {
		require.NoError(t, mod.BanContent(ctx, "taylor", "v2", "copyright", nil, "mod-1"))

		profile, err := repo.Profiles().GetByUsername(ctx, "taylor")
		require.NoError(t, err)

		visible := profile.VisibleContent(now)
		require.Len(t, visible, 2)
		assert.True(t, profile.HasContent("v2"), "banned item stays addressable")
	})

	t.Run("unban restores it", func(t *testing.T) {
		require.NoError(t, mod.UnbanContent(ctx, "taylor", "v2"))

		profile, err := repo.Profiles().GetByUsername(ctx, "taylor")
		require.NoError(t, err)
		assert.Len(t, profile.VisibleContent(now), 3)
	})

	t.Run("unknown content id errors", func(t *testing.T) {
		err := mod.BanContent(ctx, "taylor", "missing", "reason", nil, "mod-1")
		assert.ErrorIs(t, err, social.ErrContentNotFound)

		err = mod.UnbanContent(ctx, "taylor", "missing")
		assert.ErrorIs(t, err, social.ErrContentNotFound)
	})
}

func TestDeleteContent(t *testing.T) {
	repo := setupRepoManager(t)
	mod := social.NewModeration(repo)
	ctx := context.Background()

	seedProfile(t, repo, "taylor")

	require.NoError(t, mod.DeleteContent(ctx, "taylor", "v1"))

	profile, err := repo.Profiles().GetByUsername(ctx, "taylor")
	require.NoError(t, err)

	assert.False(t, profile.HasContent("v1"))
	assert.Equal(t, []string{"v2"}, profile.PinnedContentIDs, "deleted item pruned from pins")
	assert.Equal(t, 2, profile.Stats.Videos, "content count recomputed")

	t.Run("deleting it again errors", func(t *testing.T) {
		err := mod.DeleteContent(ctx, "taylor", "v1")
		assert.ErrorIs(t, err, social.ErrContentNotFound)
	})
}
