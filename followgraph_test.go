package social_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adspark/go-social"
)

func TestToggleFollow(t *testing.T) {
	repo := setupRepoManager(t)
	remote := newFakeRemote()
	sink := &capturingSink{}
	graph := social.NewFollowGraph(repo,
		social.WithFollowGraphRemote(remote),
		social.WithFollowGraphActivitySink(sink),
	)
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()

	require.NoError(t, graph.ToggleFollow(ctx, alice, bob))

	following, err := graph.IsFollowing(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, following)

	t.Run("edge is mirrored remotely", func(t *testing.T) {
		assert.True(t, remote.edges[[2]uuid.UUID{alice, bob}])
	})

	t.Run("second toggle unfollows", func(t *testing.T) {
		require.NoError(t, graph.ToggleFollow(ctx, alice, bob))

		following, err := graph.IsFollowing(ctx, alice, bob)
		require.NoError(t, err)
		assert.False(t, following)
		assert.False(t, remote.edges[[2]uuid.UUID{alice, bob}])
	})

	t.Run("double toggle is a round trip, never a counter", func(t *testing.T) {
		require.NoError(t, graph.ToggleFollow(ctx, alice, bob))
		require.NoError(t, graph.ToggleFollow(ctx, alice, bob))

		count, err := graph.FollowerCount(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("self follow is a silent no-op", func(t *testing.T) {
		require.NoError(t, graph.ToggleFollow(ctx, alice, alice))

		following, err := graph.IsFollowing(ctx, alice, alice)
		require.NoError(t, err)
		assert.False(t, following)
	})

	t.Run("self edge never reaches storage", func(t *testing.T) {
		err := repo.Follows().Insert(ctx, alice, alice)
		assert.ErrorIs(t, err, social.ErrSelfFollow)
	})

	t.Run("nil ids are rejected", func(t *testing.T) {
		err := graph.ToggleFollow(ctx, uuid.Nil, bob)
		assert.ErrorIs(t, err, social.ErrProfileNotFound)
	})

	t.Run("toggle activity recorded", func(t *testing.T) {
		events := sink.byType(social.ActivityEventFollowToggled)
		assert.NotEmpty(t, events)
	})
}

func TestToggleFollowRemoteFailureRollsBack(t *testing.T) {
	repo := setupRepoManager(t)
	remote := newFakeRemote()
	graph := social.NewFollowGraph(repo, social.WithFollowGraphRemote(remote))
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()

	t.Run("failed follow leaves no local edge", func(t *testing.T) {
		remote.failInsertEdge = assert.AnError
		defer func() { remote.failInsertEdge = nil }()

		err := graph.ToggleFollow(ctx, alice, bob)
		assert.ErrorIs(t, err, social.ErrFollowSyncFailed)

		following, err := graph.IsFollowing(ctx, alice, bob)
		require.NoError(t, err)
		assert.False(t, following)
	})

	t.Run("failed unfollow restores the local edge", func(t *testing.T) {
		require.NoError(t, graph.ToggleFollow(ctx, alice, bob))

		remote.failDeleteEdge = assert.AnError
		defer func() { remote.failDeleteEdge = nil }()

		err := graph.ToggleFollow(ctx, alice, bob)
		assert.ErrorIs(t, err, social.ErrFollowSyncFailed)

		following, err := graph.IsFollowing(ctx, alice, bob)
		require.NoError(t, err)
		assert.True(t, following)
	})
}

func TestFollowGraphCounts(t *testing.T) {
	repo := setupRepoManager(t)
	graph := social.NewFollowGraph(repo)
	ctx := context.Background()

	star := uuid.New()
	fans := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, fan := range fans {
		require.NoError(t, graph.ToggleFollow(ctx, fan, star))
	}
	require.NoError(t, graph.ToggleFollow(ctx, star, fans[0]))

	followers, err := graph.FollowerCount(ctx, star)
	require.NoError(t, err)
	assert.Equal(t, 3, followers)

	following, err := graph.FollowingCount(ctx, star)
	require.NoError(t, err)
	assert.Equal(t, 1, following)
}

func TestFollowGraphResync(t *testing.T) {
	repo := setupRepoManager(t)
	remote := newFakeRemote()
	graph := social.NewFollowGraph(repo, social.WithFollowGraphRemote(remote))
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	require.NoError(t, repo.Follows().Insert(ctx, alice, bob))

	remote.edges[[2]uuid.UUID{bob, carol}] = true
	remote.edges[[2]uuid.UUID{carol, alice}] = true

	require.NoError(t, graph.Resync(ctx))

	following, err := graph.IsFollowing(ctx, alice, bob)
	require.NoError(t, err)
	assert.False(t, following, "stale local edge replaced by remote snapshot")

	following, err = graph.IsFollowing(ctx, bob, carol)
	require.NoError(t, err)
	assert.True(t, following)

	t.Run("remote outage keeps the local graph", func(t *testing.T) {
		remote.failListEdges = assert.AnError
		require.NoError(t, graph.Resync(ctx))

		following, err := graph.IsFollowing(ctx, bob, carol)
		require.NoError(t, err)
		assert.True(t, following)
	})
}
