package social

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// SessionMode is one of the three session states.
type SessionMode string

const (
	// SessionNone means no actor has been established.
	SessionNone SessionMode = "none"
	// SessionGuest is the read-only fallback actor.
	SessionGuest SessionMode = "guest"
	// SessionAuthenticated points at a verified, unbanned profile.
	SessionAuthenticated SessionMode = "authenticated"
)

// Session is the process-local pointer identifying which profile (if any) the
// current process is acting as. It is derived by the session manager and never
// set to authenticated for a banned identity.
type Session struct {
	Mode      SessionMode `json:"mode"`
	ProfileID uuid.UUID   `json:"profile_id,omitempty"`
}

// NoSession is the zero session.
func NoSession() Session { return Session{Mode: SessionNone} }

// GuestSession is the guest session.
func GuestSession() Session { return Session{Mode: SessionGuest} }

// AuthenticatedSession points at the given profile.
func AuthenticatedSession(profileID uuid.UUID) Session {
	return Session{Mode: SessionAuthenticated, ProfileID: profileID}
}

// Authenticated reports whether the session points at a profile.
func (s Session) Authenticated() bool {
	return s.Mode == SessionAuthenticated && s.ProfileID != uuid.Nil
}

// sessionPointerKey follows the original client's storage layout.
const sessionPointerKey = "current-session-pointer"

// SessionStore persists the session pointer across restarts.
type SessionStore struct {
	cache *Cache
}

// NewSessionStore wraps the cache with the session pointer codec.
func NewSessionStore(cache *Cache) *SessionStore {
	return &SessionStore{cache: cache}
}

// Load reads the cached pointer. A missing entry is SessionNone, not an error.
func (s *SessionStore) Load(ctx context.Context) (Session, error) {
	raw, err := s.cache.Get(ctx, sessionPointerKey)
	if err != nil {
		if IsCacheMiss(err) {
			return NoSession(), nil
		}
		return NoSession(), err
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		// A corrupt pointer degrades to no session rather than failing boot.
		return NoSession(), nil
	}

	switch session.Mode {
	case SessionGuest:
		return GuestSession(), nil
	case SessionAuthenticated:
		if session.ProfileID == uuid.Nil {
			return NoSession(), nil
		}
		return session, nil
	default:
		return NoSession(), nil
	}
}

// Save writes the pointer; SessionNone clears it.
func (s *SessionStore) Save(ctx context.Context, session Session) error {
	if session.Mode == SessionNone {
		return s.cache.Delete(ctx, sessionPointerKey)
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.cache.Put(ctx, sessionPointerKey, raw)
}
