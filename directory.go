package social

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileEditCooldown is the window non-admin profiles must wait between edits.
var ProfileEditCooldown = 7 * 24 * time.Hour

var usernameRx = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// RegisterCandidate is the payload for a new profile registration.
type RegisterCandidate struct {
	DisplayName string   `json:"display_name"`
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	Role        UserRole `json:"role,omitempty"`
	AvatarRef   string   `json:"avatar_ref,omitempty"`
}

// Validate checks the candidate before any storage or provider work.
func (c RegisterCandidate) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DisplayName, validation.Length(0, 200)),
		validation.Field(&c.Username,
			validation.Required,
			validation.Length(2, 40),
			validation.Match(usernameRx),
		),
		validation.Field(&c.Email, validation.Length(0, 100), is.Email),
	)
}

// ProfilePatch is a diff-only profile update; nil fields are ignored.
type ProfilePatch struct {
	DisplayName *string `json:"display_name,omitempty"`
	Username    *string `json:"username,omitempty"`
	AvatarRef   *string `json:"avatar_ref,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

// Validate checks the populated fields of the patch.
func (p ProfilePatch) Validate() error {
	fields := []*validation.FieldRules{}
	if p.DisplayName != nil {
		fields = append(fields, validation.Field(&p.DisplayName, validation.Length(1, 200)))
	}
	if p.Username != nil {
		fields = append(fields, validation.Field(&p.Username,
			validation.Length(2, 40),
			validation.Match(usernameRx),
		))
	}
	if p.Bio != nil {
		fields = append(fields, validation.Field(&p.Bio, validation.Length(0, 500)))
	}
	return validation.ValidateStruct(&p, fields...)
}

func (p ProfilePatch) empty() bool {
	return p.DisplayName == nil && p.Username == nil && p.AvatarRef == nil && p.Bio == nil
}

// Directory maintains the creator/profile set: registration, rate-limited
// edits, unique lookups, role derivation, and delete-with-cascade. Local
// mutations are applied first; the remote store is mirrored best-effort.
type Directory struct {
	repo         RepositoryManager
	remote       RemoteDirectory
	revoker      SessionRevoker
	isPrivileged PrivilegeChecker
	logger       Logger
	sink         ActivitySink
	now          func() time.Time
	cooldown     time.Duration
}

// DirectoryOption customizes directory construction.
type DirectoryOption func(*Directory)

// WithDirectoryRemote sets the remote store to mirror into.
func WithDirectoryRemote(remote RemoteDirectory) DirectoryOption {
	return func(d *Directory) {
		d.remote = normalizeRemoteDirectory(remote)
	}
}

// WithDirectoryLogger overrides the logger.
func WithDirectoryLogger(logger Logger) DirectoryOption {
	return func(d *Directory) {
		d.logger = normalizeLogger(logger)
	}
}

// WithDirectoryClock injects a custom clock (useful for tests).
func WithDirectoryClock(clock func() time.Time) DirectoryOption {
	return func(d *Directory) {
		if clock != nil {
			d.now = clock
		}
	}
}

// WithDirectoryAdminAllowList sets the privileged-email predicate consulted by
// every role-setting path.
func WithDirectoryAdminAllowList(checker PrivilegeChecker) DirectoryOption {
	return func(d *Directory) {
		d.isPrivileged = normalizePrivilegeChecker(checker)
	}
}

// WithDirectorySessionRevoker wires the session manager so delete cascades can
// force the acting identity out.
func WithDirectorySessionRevoker(revoker SessionRevoker) DirectoryOption {
	return func(d *Directory) {
		d.revoker = normalizeSessionRevoker(revoker)
	}
}

// WithDirectoryActivitySink sets the audit sink.
func WithDirectoryActivitySink(sink ActivitySink) DirectoryOption {
	return func(d *Directory) {
		d.sink = normalizeActivitySink(sink)
	}
}

// WithDirectoryEditCooldown overrides the non-admin edit window.
func WithDirectoryEditCooldown(window time.Duration) DirectoryOption {
	return func(d *Directory) {
		if window > 0 {
			d.cooldown = window
		}
	}
}

// NewDirectory builds a profile directory over the repository manager.
func NewDirectory(repo RepositoryManager, opts ...DirectoryOption) *Directory {
	d := &Directory{
		repo:         repo,
		remote:       noopRemoteDirectory{},
		revoker:      noopSessionRevoker{},
		isPrivileged: normalizePrivilegeChecker(nil),
		logger:       defLogger{},
		sink:         noopActivitySink{},
		now:          time.Now,
		cooldown:     ProfileEditCooldown,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	return d
}

// Register creates a profile. Admin role is derived from the allow-list, never
// taken from the candidate; a requested admin role downgrades to creator for
// unprivileged emails. The new row is mirrored to the remote store
// best-effort.
func (d *Directory) Register(ctx context.Context, candidate RegisterCandidate) (*Profile, error) {
	if err := candidate.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid registration payload")
	}

	username := strings.TrimSpace(candidate.Username)
	taken, err := d.repo.Profiles().UsernameTaken(ctx, username, uuid.Nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "username lookup failed")
	}
	if taken {
		return nil, ErrUsernameTaken.WithMetadata(map[string]any{"username": username})
	}

	email := NormalizeEmail(candidate.Email)
	role := DeriveRole(candidate.Role, email, d.isPrivileged)

	displayName := strings.TrimSpace(candidate.DisplayName)
	if displayName == "" {
		displayName = "New Creator"
	}

	profile := &Profile{
		Username:    username,
		DisplayName: displayName,
		Email:       email,
		Role:        role,
		AvatarRef:   candidate.AvatarRef,
		Bio:         defaultBio(role),
	}

	created, err := d.repo.Profiles().Create(ctx, profile)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create profile")
	}

	d.mirrorUpsert(ctx, created)

	recordActivity(ctx, d.sink, d.logger, ActivityEvent{
		EventType: ActivityEventProfileCreated,
		ProfileID: created.ID.String(),
		Metadata:  map[string]any{"username": created.Username, "role": created.Role},
	})

	return created, nil
}

// FindOrCreateForIdentity resolves the profile backing a verified remote
// identity: by provider-derived id first, then by email, else a fresh profile
// with a unique username generated from the email local part.
func (d *Directory) FindOrCreateForIdentity(ctx context.Context, identity *VerifiedIdentity) (*Profile, error) {
	if identity == nil {
		return nil, ErrProfileNotFound
	}

	if derived, err := hashid.NewUUID(identity.Provider + ":" + identity.ID); err == nil {
		if profile, err := d.repo.Profiles().GetByProfileID(ctx, derived); err == nil {
			return profile, nil
		} else if !goerrors.IsNotFound(err) {
			return nil, err
		}
	}

	email := NormalizeEmail(identity.Email)
	if email != "" {
		if profile, err := d.repo.Profiles().GetByEmail(ctx, email); err == nil {
			return profile, nil
		} else if !goerrors.IsNotFound(err) {
			return nil, err
		}
	}

	username, err := d.generateUsername(ctx, email, identity.Provider)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(identity.DisplayName)
	if displayName == "" {
		displayName = username
	}

	profile := &Profile{
		Username:    username,
		DisplayName: displayName,
		Email:       email,
		Role:        DeriveRole(RoleCreator, email, d.isPrivileged),
		AvatarRef:   identity.AvatarRef,
	}
	if derived, err := hashid.NewUUID(identity.Provider + ":" + identity.ID); err == nil {
		profile.ID = derived
	}
	profile.Bio = defaultBio(profile.Role)

	created, err := d.repo.Profiles().Create(ctx, profile)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create profile for identity")
	}

	d.mirrorUpsert(ctx, created)

	recordActivity(ctx, d.sink, d.logger, ActivityEvent{
		EventType: ActivityEventProfileCreated,
		ProfileID: created.ID.String(),
		Metadata:  map[string]any{"username": created.Username, "provider": identity.Provider},
	})

	return created, nil
}

// UpdateProfile applies a diff-only patch. Non-admin profiles are rejected
// inside the cool-down window; username changes re-check uniqueness. Empty or
// no-op patches leave the mutation clock untouched.
func (d *Directory) UpdateProfile(ctx context.Context, profileID uuid.UUID, patch ProfilePatch) error {
	if patch.empty() {
		return nil
	}
	if err := patch.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid profile patch")
	}

	profile, err := d.repo.Profiles().GetByProfileID(ctx, profileID)
	if err != nil {
		return err
	}

	now := d.now()
	if profile.Role != RoleAdmin && profile.LastMutationAt != nil {
		if elapsed := now.Sub(*profile.LastMutationAt); elapsed < d.cooldown {
			return ErrRateLimited.WithMetadata(map[string]any{
				"retry_after": (d.cooldown - elapsed).String(),
			})
		}
	}

	changed := false
	if patch.DisplayName != nil && *patch.DisplayName != profile.DisplayName {
		profile.DisplayName = *patch.DisplayName
		changed = true
	}
	if patch.Username != nil && NormalizeUsername(*patch.Username) != NormalizeUsername(profile.Username) {
		taken, err := d.repo.Profiles().UsernameTaken(ctx, *patch.Username, profile.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "username lookup failed")
		}
		if taken {
			return ErrUsernameTaken.WithMetadata(map[string]any{"username": *patch.Username})
		}
		profile.Username = strings.TrimSpace(*patch.Username)
		changed = true
	} else if patch.Username != nil && *patch.Username != profile.Username {
		// Case-only rename of your own handle; no collision possible.
		profile.Username = strings.TrimSpace(*patch.Username)
		changed = true
	}
	if patch.AvatarRef != nil && *patch.AvatarRef != profile.AvatarRef {
		profile.AvatarRef = *patch.AvatarRef
		changed = true
	}
	if patch.Bio != nil && *patch.Bio != profile.Bio {
		profile.Bio = *patch.Bio
		changed = true
	}

	if !changed {
		return nil
	}

	profile.LastMutationAt = &now
	if _, err := d.repo.Profiles().Update(ctx, profile); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not update profile")
	}

	d.mirrorUpsert(ctx, profile)

	recordActivity(ctx, d.sink, d.logger, ActivityEvent{
		EventType: ActivityEventProfileUpdated,
		ProfileID: profile.ID.String(),
	})

	return nil
}

// FindByUsername matches case-insensitively.
func (d *Directory) FindByUsername(ctx context.Context, username string) (*Profile, error) {
	return d.repo.Profiles().GetByUsername(ctx, username)
}

// FindByID looks a profile up by id.
func (d *Directory) FindByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return d.repo.Profiles().GetByProfileID(ctx, id)
}

// DeleteByID removes the profile and cascades: every follow edge touching it
// is stripped, any active session pointing at it is revoked, and the remote
// store is told best-effort. Returns the removed snapshot.
func (d *Directory) DeleteByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var removed *Profile

	err := d.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		snapshot, err := d.repo.Profiles().HardDeleteTx(ctx, tx, id)
		if err != nil {
			return err
		}
		removed = snapshot

		if _, err := d.repo.Follows().DeleteTouchingTx(ctx, tx, id); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not strip follow edges")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := d.revoker.RevokeProfile(ctx, id); err != nil {
		d.logger.Warn("session revoke after delete failed: %v", err)
	}

	if err := d.remote.DeleteProfile(ctx, id); err != nil {
		d.logger.Warn("remote profile delete failed, will converge on resync: %v", err)
	}

	recordActivity(ctx, d.sink, d.logger, ActivityEvent{
		EventType: ActivityEventProfileDeleted,
		ProfileID: id.String(),
		Metadata:  map[string]any{"username": removed.Username},
	})

	return removed, nil
}

// SetRole applies a role switch and reshapes the stats block. Admin is
// silently refused unless the target's email is allow-listed.
func (d *Directory) SetRole(ctx context.Context, profileID uuid.UUID, role UserRole) error {
	profile, err := d.repo.Profiles().GetByProfileID(ctx, profileID)
	if err != nil {
		return err
	}

	derived := DeriveRole(role, profile.Email, d.isPrivileged)
	if derived == profile.Role {
		return nil
	}

	profile.Role = derived
	profile.EnsureStats()

	if _, err := d.repo.Profiles().Update(ctx, profile); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not switch role")
	}

	d.mirrorUpsert(ctx, profile)
	return nil
}

// PinContent replaces the pin order atomically: de-duplicated, limited to the
// first three, and restricted to content the profile owns.
func (d *Directory) PinContent(ctx context.Context, profileID uuid.UUID, contentIDs []string) error {
	profile, err := d.repo.Profiles().GetByProfileID(ctx, profileID)
	if err != nil {
		return err
	}

	seen := map[string]struct{}{}
	pinned := make([]string, 0, maxPinnedContent)
	for _, id := range contentIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if !profile.HasContent(id) {
			continue
		}
		pinned = append(pinned, id)
		if len(pinned) == maxPinnedContent {
			break
		}
	}

	profile.PinnedContentIDs = pinned
	if _, err := d.repo.Profiles().Update(ctx, profile); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not update pins")
	}

	d.mirrorUpsert(ctx, profile)
	return nil
}

// Resync pulls the remote directory snapshot and upserts it locally. Remote
// read failures are logged and tolerated: the engine keeps serving the
// last-known-good cache.
func (d *Directory) Resync(ctx context.Context) error {
	remote, err := d.remote.ListProfiles(ctx)
	if err != nil {
		d.logger.Warn("directory resync skipped, remote unavailable: %v", err)
		return nil
	}

	for _, profile := range remote {
		if profile == nil || profile.ID == uuid.Nil {
			continue
		}
		if _, err := d.repo.Profiles().Upsert(ctx, profile); err != nil {
			d.logger.Warn("directory resync upsert failed for %s: %v", profile.ID, err)
		}
	}

	return nil
}

const maxPinnedContent = 3

// mirrorUpsert pushes the row to the remote store. Upserts are idempotent, so
// a failure is logged and left for the next resync pass.
func (d *Directory) mirrorUpsert(ctx context.Context, profile *Profile) {
	if err := d.remote.UpsertProfile(ctx, profile); err != nil {
		d.logger.Warn("remote profile upsert failed, will converge on resync: %v", err)
	}
}

// generateUsername derives a handle from the email local part and
// de-duplicates with a numeric suffix.
func (d *Directory) generateUsername(ctx context.Context, email, provider string) (string, error) {
	base := ""
	if at := strings.IndexByte(email, '@'); at > 0 {
		base = email[:at]
	}
	base = sanitizeUsername(base)
	if base == "" {
		base = sanitizeUsername(provider)
	}
	if base == "" {
		base = "creator"
	}

	candidate := base
	for i := 1; ; i++ {
		taken, err := d.repo.Profiles().UsernameTaken(ctx, candidate, uuid.Nil)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "username lookup failed")
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._-")
}

func defaultBio(role UserRole) string {
	if role == RoleAdvertiser {
		return "New advertiser on Ad Spark."
	}
	return "New creator on Ad Spark."
}
