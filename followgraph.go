package social

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// FollowGraph maintains the directed follow edge set. Toggles are optimistic:
// the local edge flips first, then the remote store is told; on remote failure
// the local change is rolled back and ErrFollowSyncFailed reported.
type FollowGraph struct {
	repo   RepositoryManager
	remote RemoteDirectory
	logger Logger
	sink   ActivitySink
}

// FollowGraphOption customizes follow graph construction.
type FollowGraphOption func(*FollowGraph)

// WithFollowGraphRemote sets the remote store to mirror edges into.
func WithFollowGraphRemote(remote RemoteDirectory) FollowGraphOption {
	return func(g *FollowGraph) {
		g.remote = normalizeRemoteDirectory(remote)
	}
}

// WithFollowGraphLogger overrides the logger.
func WithFollowGraphLogger(logger Logger) FollowGraphOption {
	return func(g *FollowGraph) {
		g.logger = normalizeLogger(logger)
	}
}

// WithFollowGraphActivitySink sets the audit sink.
func WithFollowGraphActivitySink(sink ActivitySink) FollowGraphOption {
	return func(g *FollowGraph) {
		g.sink = normalizeActivitySink(sink)
	}
}

// NewFollowGraph builds a follow graph over the repository manager.
func NewFollowGraph(repo RepositoryManager, opts ...FollowGraphOption) *FollowGraph {
	g := &FollowGraph{
		repo:   repo,
		remote: noopRemoteDirectory{},
		logger: defLogger{},
		sink:   noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// ToggleFollow flips the edge (follower → target). A self-follow is silently
// ignored. Double-toggle restores the original state; the edge is a set,
// never a count.
func (g *FollowGraph) ToggleFollow(ctx context.Context, follower, target uuid.UUID) error {
	if follower == target {
		return nil
	}
	if follower == uuid.Nil || target == uuid.Nil {
		return ErrProfileNotFound
	}

	exists, err := g.repo.Follows().Exists(ctx, follower, target)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "follow lookup failed")
	}

	if exists {
		return g.unfollow(ctx, follower, target)
	}
	return g.follow(ctx, follower, target)
}

func (g *FollowGraph) follow(ctx context.Context, follower, target uuid.UUID) error {
	if err := g.repo.Follows().Insert(ctx, follower, target); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not add follow edge")
	}

	if err := g.remote.InsertFollowEdge(ctx, follower, target); err != nil {
		// Compensate: the optimistic local edge comes back out.
		if rbErr := g.repo.Follows().Remove(ctx, follower, target); rbErr != nil {
			g.logger.Error("follow rollback failed, graph diverged until resync: %v", rbErr)
		}
		return ErrFollowSyncFailed.WithMetadata(map[string]any{
			"op":    "insert",
			"cause": err.Error(),
		})
	}

	g.recordToggle(ctx, follower, target, true)
	return nil
}

func (g *FollowGraph) unfollow(ctx context.Context, follower, target uuid.UUID) error {
	if err := g.repo.Follows().Remove(ctx, follower, target); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not remove follow edge")
	}

	if err := g.remote.DeleteFollowEdge(ctx, follower, target); err != nil {
		// Compensate: restore the removed edge.
		if rbErr := g.repo.Follows().Insert(ctx, follower, target); rbErr != nil {
			g.logger.Error("unfollow rollback failed, graph diverged until resync: %v", rbErr)
		}
		return ErrFollowSyncFailed.WithMetadata(map[string]any{
			"op":    "delete",
			"cause": err.Error(),
		})
	}

	g.recordToggle(ctx, follower, target, false)
	return nil
}

// IsFollowing reports edge membership.
func (g *FollowGraph) IsFollowing(ctx context.Context, follower, target uuid.UUID) (bool, error) {
	return g.repo.Follows().Exists(ctx, follower, target)
}

// FollowerCount counts inbound edges.
func (g *FollowGraph) FollowerCount(ctx context.Context, target uuid.UUID) (int, error) {
	return g.repo.Follows().CountFollowers(ctx, target)
}

// FollowingCount counts outbound edges.
func (g *FollowGraph) FollowingCount(ctx context.Context, follower uuid.UUID) (int, error) {
	return g.repo.Follows().CountFollowing(ctx, follower)
}

// Resync swaps the local edge set for the remote snapshot. Remote read
// failures are logged and tolerated.
func (g *FollowGraph) Resync(ctx context.Context) error {
	edges, err := g.remote.ListFollowEdges(ctx)
	if err != nil {
		g.logger.Warn("follow graph resync skipped, remote unavailable: %v", err)
		return nil
	}

	return g.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return g.repo.Follows().ReplaceAllTx(ctx, tx, edges)
	})
}

func (g *FollowGraph) recordToggle(ctx context.Context, follower, target uuid.UUID, following bool) {
	recordActivity(ctx, g.sink, g.logger, ActivityEvent{
		EventType: ActivityEventFollowToggled,
		Actor:     ActorRef{ID: follower.String(), Type: "profile"},
		ProfileID: target.String(),
		Metadata:  map[string]any{"following": following},
	})
}
