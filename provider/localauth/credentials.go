package localauth

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/adspark/go-social"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Credential is one stored email/password pair.
type Credential struct {
	bun.BaseModel `bun:"table:auth_credentials,alias:cred"`

	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	EmailVerified bool       `bun:"email_verified" json:"email_verified"`
	DisplayName   string     `bun:"display_name" json:"display_name,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Credentials is the credential storage contract.
type Credentials interface {
	repository.Repository[*Credential]

	Create(ctx context.Context, record *Credential, criteria ...repository.InsertCriteria) (*Credential, error)
	Update(ctx context.Context, record *Credential, criteria ...repository.UpdateCriteria) (*Credential, error)
	GetByEmail(ctx context.Context, email string) (*Credential, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
}

type credentials struct {
	repository.Repository[*Credential]
	db *bun.DB
}

var _ Credentials = (*credentials)(nil)

// NewCredentialsRepository builds the bun-backed credential repository.
func NewCredentialsRepository(db *bun.DB) Credentials {
	repo := repository.NewRepository[*Credential](db, repository.ModelHandlers[*Credential]{
		NewRecord: func() *Credential { return &Credential{} },
		GetID: func(c *Credential) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Credential, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &credentials{
		Repository: repo,
		db:         db,
	}
}

func (r *credentials) Create(ctx context.Context, record *Credential, criteria ...repository.InsertCriteria) (*Credential, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, r.db, record, criteria...)
}

func (r *credentials) Update(ctx context.Context, record *Credential, criteria ...repository.UpdateCriteria) (*Credential, error) {
	if record != nil && len(criteria) == 0 {
		criteria = append(criteria, repository.UpdateByID(record.ID.String()))
	}
	return r.Repository.UpdateTx(ctx, r.db, record, criteria...)
}

func (r *credentials) GetByEmail(ctx context.Context, email string) (*Credential, error) {
	record := &Credential{}
	err := r.db.NewSelect().
		Model(record).
		Where("lower(?TableAlias.email) = ?", social.NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, social.ErrInvalidCredential
		}
		return nil, err
	}
	return record, nil
}

func (r *credentials) EmailTaken(ctx context.Context, email string) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*Credential)(nil)).
		Where("lower(?TableAlias.email) = ?", social.NormalizeEmail(email)).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
