package social

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Moderation issues warnings and bans, and removes content. Account bans on
// the acting identity revoke the session immediately; expiry is interpreted
// lazily through EffectiveBan, never swept in the background.
type Moderation struct {
	repo    RepositoryManager
	remote  RemoteDirectory
	revoker SessionRevoker
	logger  Logger
	sink    ActivitySink
	now     func() time.Time
}

// ModerationOption customizes moderation construction.
type ModerationOption func(*Moderation)

// WithModerationRemote sets the remote store to mirror into.
func WithModerationRemote(remote RemoteDirectory) ModerationOption {
	return func(m *Moderation) {
		m.remote = normalizeRemoteDirectory(remote)
	}
}

// WithModerationSessionRevoker wires the session manager for forced sign-outs.
func WithModerationSessionRevoker(revoker SessionRevoker) ModerationOption {
	return func(m *Moderation) {
		m.revoker = normalizeSessionRevoker(revoker)
	}
}

// WithModerationLogger overrides the logger.
func WithModerationLogger(logger Logger) ModerationOption {
	return func(m *Moderation) {
		m.logger = normalizeLogger(logger)
	}
}

// WithModerationClock injects a custom clock (useful for tests).
func WithModerationClock(clock func() time.Time) ModerationOption {
	return func(m *Moderation) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithModerationActivitySink sets the audit sink.
func WithModerationActivitySink(sink ActivitySink) ModerationOption {
	return func(m *Moderation) {
		m.sink = normalizeActivitySink(sink)
	}
}

// NewModeration builds the moderation subsystem over the repository manager.
func NewModeration(repo RepositoryManager, opts ...ModerationOption) *Moderation {
	m := &Moderation{
		repo:    repo,
		remote:  noopRemoteDirectory{},
		revoker: noopSessionRevoker{},
		logger:  defLogger{},
		sink:    noopActivitySink{},
		now:     time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// IssueWarning appends an immutable warning to the target's record.
func (m *Moderation) IssueWarning(ctx context.Context, targetUsername, reason, issuedBy string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrEmptyReason
	}

	profile, err := m.repo.Profiles().GetByUsername(ctx, targetUsername)
	if err != nil {
		return err
	}

	profile.Warnings = append(profile.Warnings, Warning{
		ID:       uuid.New(),
		Reason:   reason,
		IssuedAt: m.now(),
		IssuedBy: issuedBy,
	})

	if _, err := m.repo.Profiles().Update(ctx, profile); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not store warning")
	}

	m.mirror(ctx, profile)
	m.record(ctx, ActivityEventWarningIssued, issuedBy, profile, map[string]any{"reason": reason})
	return nil
}

// BanAccount sets the target's account ban. A nil bannedUntil is permanent.
// If the target holds the active session it is revoked immediately.
func (m *Moderation) BanAccount(ctx context.Context, targetUsername, reason string, bannedUntil *time.Time, issuedBy string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrEmptyReason
	}

	profile, err := m.repo.Profiles().GetByUsername(ctx, targetUsername)
	if err != nil {
		return err
	}

	profile.AccountBan = &BanRecord{
		Reason:      reason,
		BannedUntil: bannedUntil,
		IssuedAt:    m.now(),
		IssuedBy:    issuedBy,
	}

	if _, err := m.repo.Profiles().Update(ctx, profile); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not store account ban")
	}

	if err := m.revoker.RevokeProfile(ctx, profile.ID); err != nil {
		m.logger.Warn("session revoke after ban failed: %v", err)
	}

	m.mirror(ctx, profile)
	m.record(ctx, ActivityEventAccountBanned, issuedBy, profile, map[string]any{
		"reason":    reason,
		"permanent": bannedUntil == nil,
	})
	return nil
}

// UnbanAccount clears the stored account ban. This is the only path that
// clears the record; lapsed bans otherwise just stop counting on read.
func (m *Moderation) UnbanAccount(ctx context.Context, targetUsername string) error {
	profile, err := m.repo.Profiles().GetByUsername(ctx, targetUsername)
	if err != nil {
		return err
	}

	if profile.AccountBan == nil {
		return nil
	}

	profile.AccountBan = nil
	if _, err := m.repo.Profiles().Update(ctx, profile); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not clear account ban")
	}

	m.mirror(ctx, profile)
	m.record(ctx, ActivityEventAccountUnbanned, "", profile, nil)
	return nil
}

// BanContent flags one content item. Banned content drops out of public feed
// composition but stays addressable by id for review.
func (m *Moderation) BanContent(ctx context.Context, targetUsername, contentID, reason string, bannedUntil *time.Time, issuedBy string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrEmptyReason
	}

	profile, err := m.repo.Profiles().GetByUsername(ctx, targetUsername)
	if err != nil {
		return err
	}

	item, ok := profile.ContentByID(contentID)
	if !ok {
		return ErrContentNotFound.WithMetadata(map[string]any{"content_id": contentID})
	}

	item.ContentBan = &BanRecord{
		Reason:      reason,
		BannedUntil: bannedUntil,
		IssuedAt:    m.now(),
		IssuedBy:    issuedBy,
	}

	if _, err := m.repo.Profiles().Update(ctx, profile); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not store content ban")
	}

	m.mirror(ctx, profile)
	m.record(ctx, ActivityEventContentBanned, issuedBy, profile, map[string]any{
		"content_id": contentID,
		"reason":     reason,
	})
	return nil
}

// UnbanContent clears one content item's moderation flag.
func (m *Moderation) UnbanContent(ctx context.Context, targetUsername, contentID string) error {
	profile, err := m.repo.Profiles().GetByUsername(ctx, targetUsername)
	if err != nil {
		return err
	}

	item, ok := profile.ContentByID(contentID)
	if !ok {
		return ErrContentNotFound.WithMetadata(map[string]any{"content_id": contentID})
	}

	if item.ContentBan == nil {
		return nil
	}

	item.ContentBan = nil
	if _, err := m.repo.Profiles().Update(ctx, profile); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not clear content ban")
	}

	m.mirror(ctx, profile)
	m.record(ctx, ActivityEventContentUnbanned, "", profile, map[string]any{"content_id": contentID})
	return nil
}

// DeleteContent removes the item, prunes it from the pin list, and recomputes
// the content-count stat.
func (m *Moderation) DeleteContent(ctx context.Context, targetUsername, contentID string) error {
	profile, err := m.repo.Profiles().GetByUsername(ctx, targetUsername)
	if err != nil {
		return err
	}

	if !profile.HasContent(contentID) {
		return ErrContentNotFound.WithMetadata(map[string]any{"content_id": contentID})
	}

	items := profile.ContentItems[:0]
	for _, item := range profile.ContentItems {
		if item.ID != contentID {
			items = append(items, item)
		}
	}
	profile.ContentItems = items

	pins := profile.PinnedContentIDs[:0]
	for _, id := range profile.PinnedContentIDs {
		if id != contentID {
			pins = append(pins, id)
		}
	}
	profile.PinnedContentIDs = pins

	profile.Stats.Videos = len(profile.ContentItems)

	if _, err := m.repo.Profiles().Update(ctx, profile); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not delete content")
	}

	m.mirror(ctx, profile)
	m.record(ctx, ActivityEventContentDeleted, "", profile, map[string]any{"content_id": contentID})
	return nil
}

// ActiveAccountBan is the lazy-expiry read over the target's account ban.
func (m *Moderation) ActiveAccountBan(ctx context.Context, targetUsername string) (*BanRecord, error) {
	profile, err := m.repo.Profiles().GetByUsername(ctx, targetUsername)
	if err != nil {
		return nil, err
	}
	return EffectiveBan(profile.AccountBan, m.now()), nil
}

func (m *Moderation) mirror(ctx context.Context, profile *Profile) {
	if err := m.remote.UpsertProfile(ctx, profile); err != nil {
		m.logger.Warn("remote profile upsert failed, will converge on resync: %v", err)
	}
}

func (m *Moderation) record(ctx context.Context, event ActivityEventType, issuedBy string, profile *Profile, meta map[string]any) {
	actor := ActorRef{Type: "system"}
	if issuedBy != "" {
		actor = ActorRef{ID: issuedBy, Type: "moderator"}
	}
	recordActivity(ctx, m.sink, m.logger, ActivityEvent{
		EventType: event,
		Actor:     actor,
		ProfileID: profile.ID.String(),
		Metadata:  meta,
	})
}
