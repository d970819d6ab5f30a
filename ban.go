package social

import "time"

// BanRecord is a moderation flag with optional expiry. A nil BannedUntil is a
// permanent ban; a past BannedUntil means the ban is inactive on read.
type BanRecord struct {
	Reason      string     `json:"reason"`
	BannedUntil *time.Time `json:"banned_until,omitempty"`
	IssuedAt    time.Time  `json:"issued_at"`
	IssuedBy    string     `json:"issued_by"`
}

// Permanent reports whether the ban has no expiry.
func (b *BanRecord) Permanent() bool {
	return b != nil && b.BannedUntil == nil
}

// EffectiveBan is the canonical banned-ness read. It returns the record when
// the ban is active at the given instant and nil otherwise. Expiry is
// evaluated lazily: a lapsed record stays in storage until an explicit unban,
// it just stops counting.
func EffectiveBan(ban *BanRecord, now time.Time) *BanRecord {
	if ban == nil {
		return nil
	}
	if ban.BannedUntil != nil && ban.BannedUntil.Before(now) {
		return nil
	}
	return ban
}
