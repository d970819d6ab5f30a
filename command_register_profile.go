package social

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterProfileMessage struct {
	DisplayName string   `json:"display_name"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Role        UserRole `json:"role"`
	AvatarRef   string   `json:"avatar_ref"`
	UseHashid   bool
}

func (e RegisterProfileMessage) Type() string { return "profile.register" }

type RegisterProfileHandler struct {
	repo         RepositoryManager
	isPrivileged PrivilegeChecker
}

// NewRegisterProfileHandler builds the handler; checker may be nil.
func NewRegisterProfileHandler(repo RepositoryManager, checker PrivilegeChecker) *RegisterProfileHandler {
	return &RegisterProfileHandler{
		repo:         repo,
		isPrivileged: normalizePrivilegeChecker(checker),
	}
}

func (h *RegisterProfileHandler) Execute(ctx context.Context, event RegisterProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterProfileHandler) execute(ctx context.Context, event RegisterProfileMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		username := strings.TrimSpace(event.Username)
		if username == "" {
			username = usernameFromEmail(event.Email)
		}

		email := NormalizeEmail(event.Email)
		role := DeriveRole(event.Role, email, h.isPrivileged)

		profile := &Profile{
			Username:    username,
			DisplayName: strings.TrimSpace(event.DisplayName),
			Email:       email,
			Role:        role,
			AvatarRef:   event.AvatarRef,
			Bio:         defaultBio(role),
		}
		if event.UseHashid {
			if id, err := hashid.NewUUID(email); err == nil {
				profile.ID = id
			}
		}

		if _, err := h.repo.Profiles().CreateTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create profile")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "profile registration transaction failed")
	}

	return nil
}

func usernameFromEmail(email string) string {
	if strings.Contains(email, "@") {
		return strings.Split(email, "@")[0]
	}
	return email
}
