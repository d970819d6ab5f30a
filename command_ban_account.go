package social

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type BanAccountMessage struct {
	Username    string     `json:"username"`
	Reason      string     `json:"reason"`
	BannedUntil *time.Time `json:"banned_until,omitempty"`
	IssuedBy    string     `json:"issued_by"`
}

func (e BanAccountMessage) Type() string { return "moderation.account.ban" }

type BanAccountHandler struct {
	repo    RepositoryManager
	revoker SessionRevoker
	now     func() time.Time
}

// NewBanAccountHandler builds the handler; revoker may be nil.
func NewBanAccountHandler(repo RepositoryManager, revoker SessionRevoker) *BanAccountHandler {
	return &BanAccountHandler{
		repo:    repo,
		revoker: normalizeSessionRevoker(revoker),
		now:     time.Now,
	}
}

func (h *BanAccountHandler) Execute(ctx context.Context, event BanAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account ban",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *BanAccountHandler) execute(ctx context.Context, event BanAccountMessage) error {
	reason := strings.TrimSpace(event.Reason)
	if reason == "" {
		return ErrEmptyReason
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	profile := &Profile{}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		// Lookup must ride the transaction: on a single-connection store the
		// pooled read would block behind it.
		if profile, err = h.repo.Profiles().GetByUsernameTx(ctx, tx, event.Username); err != nil {
			return err
		}

		profile.AccountBan = &BanRecord{
			Reason:      reason,
			BannedUntil: event.BannedUntil,
			IssuedAt:    h.now(),
			IssuedBy:    event.IssuedBy,
		}

		if _, err := h.repo.Profiles().UpdateTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not store account ban")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account ban transaction failed")
	}

	return h.revoker.RevokeProfile(ctx, profile.ID)
}
