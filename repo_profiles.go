package social

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profiles is the profile directory's storage contract.
type Profiles interface {
	repository.Repository[*Profile]

	Create(ctx context.Context, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error)

	Update(ctx context.Context, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error)
	Upsert(ctx context.Context, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error)
	UpsertTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error)

	GetByProfileID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByUsername(ctx context.Context, username string) (*Profile, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	UsernameTaken(ctx context.Context, username string, excluding uuid.UUID) (bool, error)
	ListAll(ctx context.Context) ([]*Profile, error)

	HardDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Profile, error)
}

type profiles struct {
	repository.Repository[*Profile]
	db *bun.DB
}

var (
	_ Profiles                        = (*profiles)(nil)
	_ repository.Repository[*Profile] = (*profiles)(nil)
)

// NewProfilesRepository builds the bun-backed profiles repository.
func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (r *profiles) Create(ctx context.Context, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *profiles) CreateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error) {
	prepareProfileDefaults(record)
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (r *profiles) Update(ctx context.Context, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error) {
	return r.UpdateTx(ctx, r.db, record, criteria...)
}

func (r *profiles) UpdateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error) {
	if record != nil && len(criteria) == 0 {
		criteria = append(criteria, repository.UpdateByID(record.ID.String()))
	}
	return r.Repository.UpdateTx(ctx, tx, record, criteria...)
}

func (r *profiles) Upsert(ctx context.Context, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error) {
	return r.UpsertTx(ctx, r.db, record, criteria...)
}

func (r *profiles) UpsertTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error) {
	if record == nil {
		return nil, ErrProfileNotFound
	}

	existing := &Profile{}
	err := tx.NewSelect().
		Model(existing).
		Where("?TableAlias.id = ?", record.ID).
		Limit(1).
		Scan(ctx)
	if err == nil {
		return r.UpdateTx(ctx, tx, record, criteria...)
	}
	if !stderrors.Is(err, sql.ErrNoRows) && !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return r.CreateTx(ctx, tx, record)
}

func (r *profiles) GetByProfileID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	record := &Profile{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapProfileLookupErr(err, map[string]any{"id": id.String()})
	}
	return record, nil
}

// GetByUsername matches case-insensitively; stored usernames keep their case.
func (r *profiles) GetByUsername(ctx context.Context, username string) (*Profile, error) {
	return r.GetByUsernameTx(ctx, r.db, username)
}

func (r *profiles) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*Profile, error) {
	record := &Profile{}
	err := tx.NewSelect().
		Model(record).
		Where("lower(?TableAlias.username) = ?", NormalizeUsername(username)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapProfileLookupErr(err, map[string]any{"username": username})
	}
	return record, nil
}

func (r *profiles) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	record := &Profile{}
	err := r.db.NewSelect().
		Model(record).
		Where("lower(?TableAlias.email) = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapProfileLookupErr(err, map[string]any{"email": email})
	}
	return record, nil
}

// UsernameTaken reports a case-insensitive collision, optionally excluding one
// profile id so updates can keep their own name.
func (r *profiles) UsernameTaken(ctx context.Context, username string, excluding uuid.UUID) (bool, error) {
	q := r.db.NewSelect().
		Model((*Profile)(nil)).
		Where("lower(?TableAlias.username) = ?", NormalizeUsername(username))

	if excluding != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", excluding)
	}

	count, err := q.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *profiles) ListAll(ctx context.Context) ([]*Profile, error) {
	var records []*Profile
	if err := r.db.NewSelect().Model(&records).Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

// HardDeleteTx removes the row outright (no soft delete) and returns the
// removed snapshot, so delete cascades can report what was taken out.
func (r *profiles) HardDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Profile, error) {
	record := &Profile{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapProfileLookupErr(err, map[string]any{"id": id.String()})
	}

	if _, err := tx.NewDelete().
		Model((*Profile)(nil)).
		Where("id = ?", id).
		ForceDelete().
		Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func prepareProfileDefaults(record *Profile) {
	if record == nil {
		return
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Role == "" {
		record.Role = RoleCreator
	}
	record.EnsureStats()
	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
	}
}

func mapProfileLookupErr(err error, meta map[string]any) error {
	if stderrors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
		return ErrProfileNotFound.WithMetadata(meta)
	}
	return err
}
