package social

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionManager owns the process-local session pointer. All transitions run
// under one lock and carry a generation number, so a slow provider callback
// can never clobber a newer explicit transition.
type SessionManager struct {
	provider  IdentityProvider
	directory *Directory
	store     *SessionStore
	logger    Logger
	sink      ActivitySink
	now       func() time.Time

	guestUsername string

	mu          sync.Mutex
	current     Session
	generation  uint64
	listeners   map[int]func(Session)
	nextHandle  int
	unsubscribe func()
}

// SessionManagerOption customizes session manager construction.
type SessionManagerOption func(*SessionManager)

// WithSessionLogger overrides the logger.
func WithSessionLogger(logger Logger) SessionManagerOption {
	return func(s *SessionManager) {
		s.logger = normalizeLogger(logger)
	}
}

// WithSessionClock injects a custom clock (useful for tests).
func WithSessionClock(clock func() time.Time) SessionManagerOption {
	return func(s *SessionManager) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithSessionActivitySink sets the audit sink.
func WithSessionActivitySink(sink ActivitySink) SessionManagerOption {
	return func(s *SessionManager) {
		s.sink = normalizeActivitySink(sink)
	}
}

// WithSessionStore wires the persistent pointer store. Without one the session
// lives only in memory.
func WithSessionStore(store *SessionStore) SessionManagerOption {
	return func(s *SessionManager) {
		s.store = store
	}
}

// WithSessionGuestProfile names the directory profile guests browse as.
func WithSessionGuestProfile(username string) SessionManagerOption {
	return func(s *SessionManager) {
		s.guestUsername = username
	}
}

// NewSessionManager builds a session manager over the provider and directory,
// and subscribes to the provider's session-changed events.
func NewSessionManager(provider IdentityProvider, directory *Directory, opts ...SessionManagerOption) *SessionManager {
	s := &SessionManager{
		provider:  provider,
		directory: directory,
		logger:    defLogger{},
		sink:      noopActivitySink{},
		now:       time.Now,
		current:   NoSession(),
		listeners: map[int]func(Session){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if provider != nil {
		s.unsubscribe = provider.OnSessionChanged(s.onProviderSessionChanged)
	}

	return s
}

// Close removes the provider subscription.
func (s *SessionManager) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Current returns the session pointer as of now.
func (s *SessionManager) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// OnChange registers a listener fired after every transition, with the new
// session. The returned function removes the listener.
func (s *SessionManager) OnChange(fn func(Session)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle := s.nextHandle
	s.nextHandle++
	s.listeners[handle] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, handle)
	}
}

// SignIn authenticates the credential pair and resolves the session. Banned
// and unverified identities are signed out of the provider and the session
// stays at none.
func (s *SessionManager) SignIn(ctx context.Context, email, password string) (*Profile, error) {
	gen := s.beginTransition()

	identity, err := s.provider.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	return s.resolveIdentity(ctx, gen, identity)
}

// Register creates the credential at the provider, then resolves the session
// the same way a sign-in does.
func (s *SessionManager) Register(ctx context.Context, email, password string, meta RegistrationMetadata) (*Profile, error) {
	gen := s.beginTransition()

	identity, err := s.provider.Register(ctx, email, password, meta)
	if err != nil {
		return nil, err
	}

	return s.resolveIdentity(ctx, gen, identity)
}

// SignInFederated runs the named federated flow at the provider.
func (s *SessionManager) SignInFederated(ctx context.Context, providerName string) (*Profile, error) {
	gen := s.beginTransition()

	identity, err := s.provider.AuthenticateFederated(ctx, providerName)
	if err != nil {
		return nil, err
	}

	return s.resolveIdentity(ctx, gen, identity)
}

// ContinueAsGuest switches to the read-only guest actor. An authenticated
// provider session is signed out first so it cannot re-resolve past the
// explicit guest choice.
func (s *SessionManager) ContinueAsGuest(ctx context.Context) error {
	s.mu.Lock()
	authenticated := s.current.Authenticated()
	s.mu.Unlock()

	s.beginTransition()

	if authenticated {
		if err := s.provider.SignOut(ctx); err != nil {
			s.logger.Warn("provider sign-out failed: %v", err)
		}
	}

	s.setSession(ctx, GuestSession())
	return nil
}

// GuestProfile returns the directory profile guests browse as, when one is
// configured.
func (s *SessionManager) GuestProfile(ctx context.Context) (*Profile, error) {
	if s.guestUsername == "" {
		return nil, ErrProfileNotFound
	}
	return s.directory.FindByUsername(ctx, s.guestUsername)
}

// Logout signs the provider out and drops the session to guest, symmetric to
// guest continuation. Provider failures are logged but never keep the
// authenticated session alive.
func (s *SessionManager) Logout(ctx context.Context) error {
	s.beginTransition()

	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Warn("provider sign-out failed: %v", err)
	}

	s.setSession(ctx, GuestSession())
	return nil
}

// Restore rebuilds the session from the persistent pointer. A pointer at a
// missing profile degrades to none; a pointer at a banned profile is revoked.
// A lapsed temporary ban does not force a sign-out.
func (s *SessionManager) Restore(ctx context.Context) (Session, error) {
	s.beginTransition()

	if s.store == nil {
		return s.Current(), nil
	}

	saved, err := s.store.Load(ctx)
	if err != nil {
		return NoSession(), goerrors.Wrap(err, goerrors.CategoryInternal, "could not load session pointer")
	}

	if !saved.Authenticated() {
		s.setSession(ctx, saved)
		return saved, nil
	}

	profile, err := s.directory.FindByID(ctx, saved.ProfileID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			s.setSession(ctx, NoSession())
			return NoSession(), nil
		}
		return NoSession(), err
	}

	if ban := EffectiveBan(profile.AccountBan, s.now()); ban != nil {
		s.setSession(ctx, NoSession())
		return NoSession(), BannedError(ban)
	}

	s.setSession(ctx, saved)
	return saved, nil
}

// RevokeProfile forces the session down to guest if it points at the given
// profile. Moderation and delete cascades call this through the SessionRevoker
// seam.
func (s *SessionManager) RevokeProfile(ctx context.Context, profileID uuid.UUID) error {
	s.mu.Lock()
	match := s.current.Authenticated() && s.current.ProfileID == profileID
	s.mu.Unlock()

	if !match {
		return nil
	}

	s.beginTransition()

	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Warn("provider sign-out during revoke failed: %v", err)
	}

	s.setSession(ctx, GuestSession())

	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType: ActivityEventSessionRevoked,
		ProfileID: profileID.String(),
	})

	return nil
}

// resolveIdentity turns a verified identity into an authenticated session, or
// tears the attempt down when the identity is unverified or banned.
func (s *SessionManager) resolveIdentity(ctx context.Context, gen uint64, identity *VerifiedIdentity) (*Profile, error) {
	if identity == nil {
		s.setSessionAt(ctx, gen, NoSession())
		return nil, ErrInvalidCredential
	}

	if !identity.EmailVerified {
		if err := s.provider.SignOut(ctx); err != nil {
			s.logger.Warn("provider sign-out of unverified identity failed: %v", err)
		}
		s.setSessionAt(ctx, gen, NoSession())
		return nil, ErrUnverifiedEmail
	}

	profile, err := s.directory.FindOrCreateForIdentity(ctx, identity)
	if err != nil {
		s.setSessionAt(ctx, gen, NoSession())
		return nil, err
	}

	if ban := EffectiveBan(profile.AccountBan, s.now()); ban != nil {
		if err := s.provider.SignOut(ctx); err != nil {
			s.logger.Warn("provider sign-out of banned identity failed: %v", err)
		}
		s.setSessionAt(ctx, gen, NoSession())
		return nil, BannedError(ban)
	}

	if !s.setSessionAt(ctx, gen, AuthenticatedSession(profile.ID)) {
		// A newer transition won the race; report its outcome instead.
		return nil, ErrInvalidCredential.WithMetadata(map[string]any{"cause": "superseded"})
	}

	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType: ActivityEventSessionResolved,
		Actor:     ActorRef{ID: profile.ID.String(), Type: "profile"},
		ProfileID: profile.ID.String(),
		Metadata:  map[string]any{"provider": identity.Provider},
	})

	return profile, nil
}

// onProviderSessionChanged handles async provider events. The resolution runs
// against the generation captured at event time, so it is discarded when an
// explicit transition has happened since.
func (s *SessionManager) onProviderSessionChanged(identity *VerifiedIdentity) {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	ctx := context.Background()

	if identity == nil {
		// Remote sign-out: a prior pointer degrades to guest, a cold start
		// stays at none.
		s.mu.Lock()
		hadPointer := s.current.Mode != SessionNone
		s.mu.Unlock()

		next := NoSession()
		if hadPointer {
			next = GuestSession()
		}
		s.setSessionAt(ctx, gen, next)
		return
	}

	if _, err := s.resolveIdentity(ctx, gen, identity); err != nil {
		s.logger.Warn("provider session event resolution failed: %v", err)
	}
}

// beginTransition bumps the generation, invalidating in-flight resolutions.
func (s *SessionManager) beginTransition() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// setSession installs the session unconditionally under the current generation.
func (s *SessionManager) setSession(ctx context.Context, session Session) {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	s.setSessionAt(ctx, gen, session)
}

// setSessionAt installs the session if gen is still current. Returns false
// when a newer transition already superseded the caller.
func (s *SessionManager) setSessionAt(ctx context.Context, gen uint64, session Session) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.current = session

	listeners := make([]func(Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		if fn != nil {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(ctx, session); err != nil {
			s.logger.Warn("could not persist session pointer: %v", err)
		}
	}

	for _, fn := range listeners {
		fn(session)
	}

	return true
}
