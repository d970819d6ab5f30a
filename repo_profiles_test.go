package social_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/adspark/go-social"
)

func TestProfilesCreateAndLookup(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	created, err := repo.Profiles().Create(ctx, &social.Profile{
		Username:    "Taylor",
		DisplayName: "Taylor",
		Email:       "taylor@example.com",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, social.RoleCreator, created.Role)
	require.NotNil(t, created.Stats.Earnings)

	t.Run("username lookup is case-insensitive", func(t *testing.T) {
		found, err := repo.Profiles().GetByUsername(ctx, "tAyLoR")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		// Stored case is preserved.
		assert.Equal(t, "Taylor", found.Username)
	})

	t.Run("email lookup is case-insensitive", func(t *testing.T) {
		found, err := repo.Profiles().GetByEmail(ctx, "TAYLOR@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("missing profile maps to ErrProfileNotFound", func(t *testing.T) {
		_, err := repo.Profiles().GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, social.ErrProfileNotFound)

		_, err = repo.Profiles().GetByProfileID(ctx, uuid.New())
		assert.ErrorIs(t, err, social.ErrProfileNotFound)
	})
}

func TestProfilesUsernameTaken(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	created, err := repo.Profiles().Create(ctx, &social.Profile{
		Username:    "Taylor",
		DisplayName: "Taylor",
	})
	require.NoError(t, err)

	taken, err := repo.Profiles().UsernameTaken(ctx, "TAYLOR", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, taken)

	t.Run("excluding self allows a case-only rename", func(t *testing.T) {
		taken, err := repo.Profiles().UsernameTaken(ctx, "taylor", created.ID)
		require.NoError(t, err)
		assert.False(t, taken)
	})

	t.Run("free name is free", func(t *testing.T) {
		taken, err := repo.Profiles().UsernameTaken(ctx, "jordan", uuid.Nil)
		require.NoError(t, err)
		assert.False(t, taken)
	})
}

func TestProfilesUpdateRoundTripsJSONFields(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	created, err := repo.Profiles().Create(ctx, &social.Profile{
		Username:    "jordan",
		DisplayName: "Jordan",
	})
	require.NoError(t, err)

	created.ContentItems = []social.ContentItem{{ID: "v1", Title: "First"}}
	created.PinnedContentIDs = []string{"v1"}
	created.Stats.Videos = 1

	_, err = repo.Profiles().Update(ctx, created)
	require.NoError(t, err)

	found, err := repo.Profiles().GetByProfileID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, found.ContentItems, 1)
	assert.Equal(t, "First", found.ContentItems[0].Title)
	assert.Equal(t, []string{"v1"}, found.PinnedContentIDs)
	assert.Equal(t, 1, found.Stats.Videos)
}

func TestProfilesHardDelete(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	created, err := repo.Profiles().Create(ctx, &social.Profile{
		Username:    "jordan",
		DisplayName: "Jordan",
	})
	require.NoError(t, err)

	var snapshot *social.Profile
	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		snapshot, err = repo.Profiles().HardDeleteTx(ctx, tx, created.ID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "jordan", snapshot.Username)

	_, err = repo.Profiles().GetByProfileID(ctx, created.ID)
	assert.ErrorIs(t, err, social.ErrProfileNotFound)

	t.Run("the freed username is reusable", func(t *testing.T) {
		_, err := repo.Profiles().Create(ctx, &social.Profile{
			Username:    "Jordan",
			DisplayName: "Jordan II",
		})
		require.NoError(t, err)
	})
}
