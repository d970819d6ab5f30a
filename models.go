package social

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profile is the durable record of one platform actor.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`

	ID               uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username         string        `bun:"username,notnull,unique" json:"username,omitempty"`
	DisplayName      string        `bun:"display_name,notnull" json:"display_name,omitempty"`
	Email            string        `bun:"email" json:"email,omitempty"`
	Role             UserRole      `bun:"user_role,notnull" json:"user_role,omitempty"`
	AvatarRef        string        `bun:"avatar_ref" json:"avatar_ref,omitempty"`
	Bio              string        `bun:"bio" json:"bio,omitempty"`
	Location         string        `bun:"location" json:"location,omitempty"`
	Focus            string        `bun:"focus" json:"focus,omitempty"`
	Stats            ProfileStats  `bun:"stats,type:jsonb" json:"stats"`
	ContentItems     []ContentItem `bun:"content_items,type:jsonb" json:"content_items,omitempty"`
	PinnedContentIDs []string      `bun:"pinned_content_ids,type:jsonb" json:"pinned_content_ids,omitempty"`
	Warnings         []Warning     `bun:"warnings,type:jsonb" json:"warnings,omitempty"`
	AccountBan       *BanRecord    `bun:"account_ban,type:jsonb" json:"account_ban,omitempty"`
	LastMutationAt   *time.Time    `bun:"last_mutation_at,nullzero" json:"last_mutation_at,omitempty"`
	CreatedAt        *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt        *time.Time    `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// ProfileStats are role-shaped counters. Earnings fields exist only for
// creators and admins; jobs-posted only for advertisers. Pointers distinguish
// "absent for this role" from zero.
type ProfileStats struct {
	Videos          int    `json:"videos"`
	Likes           int    `json:"likes"`
	Shares          int    `json:"shares"`
	Comments        int    `json:"comments"`
	Earnings        *int64 `json:"earnings,omitempty"`
	PendingEarnings *int64 `json:"pending_earnings,omitempty"`
	SubmittedJobs   *int   `json:"submitted_jobs,omitempty"`
	JobsPosted      *int   `json:"jobs_posted,omitempty"`
}

// ContentItem is one owned media item with an independent moderation flag.
type ContentItem struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	ThumbnailRef string     `json:"thumbnail_ref,omitempty"`
	SourceRef    string     `json:"source_ref,omitempty"`
	ContentBan   *BanRecord `json:"content_ban,omitempty"`
}

// Warning is immutable once created and append-only on a profile.
type Warning struct {
	ID       uuid.UUID `json:"id"`
	Reason   string    `json:"reason"`
	IssuedAt time.Time `json:"issued_at"`
	IssuedBy string    `json:"issued_by"`
}

// FollowEdge is a directed "follows" relationship between two profiles.
type FollowEdge struct {
	bun.BaseModel `bun:"table:follow_edges,alias:fedge"`

	ID         uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FollowerID uuid.UUID  `bun:"follower_id,notnull,type:uuid" json:"follower_id"`
	FolloweeID uuid.UUID  `bun:"followee_id,notnull,type:uuid" json:"followee_id"`
	CreatedAt  *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// NormalizeUsername lowercases and trims a username for comparison and
// indexing. Stored usernames keep the entered case.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EnsureStats shapes the stats block for the profile's role: advertisers drop
// earnings fields, creators and admins zero-fill them, advertisers zero-fill
// jobs-posted.
func (p *Profile) EnsureStats() {
	if p == nil {
		return
	}

	switch p.Role {
	case RoleAdvertiser:
		p.Stats.Earnings = nil
		p.Stats.PendingEarnings = nil
		p.Stats.SubmittedJobs = nil
		if p.Stats.JobsPosted == nil {
			p.Stats.JobsPosted = ptr(0)
		}
	default:
		if p.Stats.Earnings == nil {
			p.Stats.Earnings = ptr(int64(0))
		}
		if p.Stats.PendingEarnings == nil {
			p.Stats.PendingEarnings = ptr(int64(0))
		}
		if p.Stats.SubmittedJobs == nil {
			p.Stats.SubmittedJobs = ptr(0)
		}
	}
}

// ContentByID returns the owned content item with the given id.
func (p *Profile) ContentByID(contentID string) (*ContentItem, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.ContentItems {
		if p.ContentItems[i].ID == contentID {
			return &p.ContentItems[i], true
		}
	}
	return nil, false
}

// HasContent reports whether the profile owns the given content id.
func (p *Profile) HasContent(contentID string) bool {
	_, ok := p.ContentByID(contentID)
	return ok
}

// VisibleContent returns the content items whose content ban is not active at
// the given instant. Banned items stay addressable by id for review.
func (p *Profile) VisibleContent(now time.Time) []ContentItem {
	if p == nil {
		return nil
	}
	items := make([]ContentItem, 0, len(p.ContentItems))
	for _, item := range p.ContentItems {
		if EffectiveBan(item.ContentBan, now) == nil {
			items = append(items, item)
		}
	}
	return items
}

func ptr[T any](v T) *T {
	return &v
}
