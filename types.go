package social

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// VerifiedIdentity is the opaque identity token returned by an identity
// provider backend after a successful authentication or registration.
type VerifiedIdentity struct {
	ID            string
	Email         string
	EmailVerified bool
	Provider      string
	DisplayName   string
	AvatarRef     string
}

// RegistrationMetadata carries optional profile hints submitted at sign-up.
type RegistrationMetadata struct {
	DisplayName string
	Username    string
}

// SessionChangedFunc receives session-changed events from a provider backend.
// A nil identity means the provider signed the user out.
type SessionChangedFunc func(identity *VerifiedIdentity)

// IdentityProvider is the capability set the engine needs from a remote
// credential service. Implementations may be local-deterministic (demo mode)
// or remote-async; the session manager depends only on this interface.
type IdentityProvider interface {
	Authenticate(ctx context.Context, email, password string) (*VerifiedIdentity, error)
	Register(ctx context.Context, email, password string, meta RegistrationMetadata) (*VerifiedIdentity, error)
	AuthenticateFederated(ctx context.Context, providerName string) (*VerifiedIdentity, error)
	SignOut(ctx context.Context) error

	// OnSessionChanged subscribes to session-changed events. The returned
	// function removes the subscription.
	OnSessionChanged(fn SessionChangedFunc) (unsubscribe func())
}

// FollowEdgeRecord is the wire form of a follow edge in the remote store.
type FollowEdgeRecord struct {
	FollowerID uuid.UUID `json:"follower_id"`
	FolloweeID uuid.UUID `json:"followee_id"`
}

// RemoteDirectory is the remote profile store the engine mirrors into.
// All writes are best-effort: the directory and follow graph decide per
// operation whether a failure compensates or tolerates divergence.
type RemoteDirectory interface {
	UpsertProfile(ctx context.Context, profile *Profile) error
	DeleteProfile(ctx context.Context, id uuid.UUID) error
	ListProfiles(ctx context.Context) ([]*Profile, error)
	InsertFollowEdge(ctx context.Context, follower, followee uuid.UUID) error
	DeleteFollowEdge(ctx context.Context, follower, followee uuid.UUID) error
	ListFollowEdges(ctx context.Context) ([]FollowEdgeRecord, error)
}

type noopRemoteDirectory struct{}

func (noopRemoteDirectory) UpsertProfile(context.Context, *Profile) error    { return nil }
func (noopRemoteDirectory) DeleteProfile(context.Context, uuid.UUID) error   { return nil }
func (noopRemoteDirectory) ListProfiles(context.Context) ([]*Profile, error) { return nil, nil }
func (noopRemoteDirectory) InsertFollowEdge(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}
func (noopRemoteDirectory) DeleteFollowEdge(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}
func (noopRemoteDirectory) ListFollowEdges(context.Context) ([]FollowEdgeRecord, error) {
	return nil, nil
}

func normalizeRemoteDirectory(r RemoteDirectory) RemoteDirectory {
	if r == nil {
		return noopRemoteDirectory{}
	}
	return r
}

// SessionRevoker is the seam moderation and the directory use to force the
// acting identity out when its profile is banned or deleted.
type SessionRevoker interface {
	RevokeProfile(ctx context.Context, profileID uuid.UUID) error
}

type noopSessionRevoker struct{}

func (noopSessionRevoker) RevokeProfile(context.Context, uuid.UUID) error { return nil }

func normalizeSessionRevoker(r SessionRevoker) SessionRevoker {
	if r == nil {
		return noopSessionRevoker{}
	}
	return r
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SOCIAL "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SOCIAL "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SOCIAL "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SOCIAL "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
