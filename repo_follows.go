package social

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// FollowEdges stores the directed follow graph as an edge set. The unique
// (follower, followee) index keeps toggles idempotent under races.
type FollowEdges interface {
	repository.Repository[*FollowEdge]

	Exists(ctx context.Context, follower, followee uuid.UUID) (bool, error)
	Insert(ctx context.Context, follower, followee uuid.UUID) error
	Remove(ctx context.Context, follower, followee uuid.UUID) error
	CountFollowers(ctx context.Context, followee uuid.UUID) (int, error)
	CountFollowing(ctx context.Context, follower uuid.UUID) (int, error)
	ListAll(ctx context.Context) ([]*FollowEdge, error)

	DeleteTouchingTx(ctx context.Context, tx bun.IDB, profileID uuid.UUID) (int, error)
	ReplaceAllTx(ctx context.Context, tx bun.IDB, edges []FollowEdgeRecord) error
}

type followEdges struct {
	repository.Repository[*FollowEdge]
	db *bun.DB
}

var _ FollowEdges = (*followEdges)(nil)

// NewFollowEdgesRepository builds the bun-backed follow edge repository.
func NewFollowEdgesRepository(db *bun.DB) FollowEdges {
	repo := repository.NewRepository[*FollowEdge](db, repository.ModelHandlers[*FollowEdge]{
		NewRecord: func() *FollowEdge { return &FollowEdge{} },
		GetID: func(e *FollowEdge) uuid.UUID {
			if e == nil {
				return uuid.Nil
			}
			return e.ID
		},
		SetID: func(e *FollowEdge, id uuid.UUID) {
			if e != nil {
				e.ID = id
			}
		},
	})

	return &followEdges{
		Repository: repo,
		db:         db,
	}
}

func (r *followEdges) Exists(ctx context.Context, follower, followee uuid.UUID) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*FollowEdge)(nil)).
		Where("?TableAlias.follower_id = ?", follower).
		Where("?TableAlias.followee_id = ?", followee).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Insert adds the edge; inserting an existing pair is a no-op, preserving set
// semantics under concurrent toggles. A self edge is never written.
func (r *followEdges) Insert(ctx context.Context, follower, followee uuid.UUID) error {
	if follower == followee {
		return ErrSelfFollow
	}
	edge := &FollowEdge{
		ID:         uuid.New(),
		FollowerID: follower,
		FolloweeID: followee,
	}
	_, err := r.db.NewInsert().
		Model(edge).
		On("CONFLICT (follower_id, followee_id) DO NOTHING").
		Exec(ctx)
	return err
}

func (r *followEdges) Remove(ctx context.Context, follower, followee uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*FollowEdge)(nil)).
		Where("follower_id = ?", follower).
		Where("followee_id = ?", followee).
		Exec(ctx)
	return err
}

func (r *followEdges) CountFollowers(ctx context.Context, followee uuid.UUID) (int, error) {
	return r.db.NewSelect().
		Model((*FollowEdge)(nil)).
		Where("?TableAlias.followee_id = ?", followee).
		Count(ctx)
}

func (r *followEdges) CountFollowing(ctx context.Context, follower uuid.UUID) (int, error) {
	return r.db.NewSelect().
		Model((*FollowEdge)(nil)).
		Where("?TableAlias.follower_id = ?", follower).
		Count(ctx)
}

func (r *followEdges) ListAll(ctx context.Context) ([]*FollowEdge, error) {
	var edges []*FollowEdge
	if err := r.db.NewSelect().Model(&edges).Scan(ctx); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return edges, nil
}

// DeleteTouchingTx strips every edge where the profile is follower or
// followee, returning how many were removed. Used by the delete cascade.
func (r *followEdges) DeleteTouchingTx(ctx context.Context, tx bun.IDB, profileID uuid.UUID) (int, error) {
	res, err := tx.NewDelete().
		Model((*FollowEdge)(nil)).
		Where("follower_id = ? OR followee_id = ?", profileID, profileID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// ReplaceAllTx swaps the whole edge set for the remote snapshot (resync pass).
func (r *followEdges) ReplaceAllTx(ctx context.Context, tx bun.IDB, edges []FollowEdgeRecord) error {
	if _, err := tx.NewDelete().
		Model((*FollowEdge)(nil)).
		Where("1 = 1").
		Exec(ctx); err != nil {
		return err
	}

	if len(edges) == 0 {
		return nil
	}

	rows := make([]*FollowEdge, 0, len(edges))
	for _, e := range edges {
		if e.FollowerID == uuid.Nil || e.FolloweeID == uuid.Nil || e.FollowerID == e.FolloweeID {
			continue
		}
		rows = append(rows, &FollowEdge{
			ID:         uuid.New(),
			FollowerID: e.FollowerID,
			FolloweeID: e.FolloweeID,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	_, err := tx.NewInsert().
		Model(&rows).
		On("CONFLICT (follower_id, followee_id) DO NOTHING").
		Exec(ctx)
	return err
}
