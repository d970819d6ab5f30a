package localauth

import (
	"context"
	"strings"
	"sync"

	"github.com/adspark/go-social"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

const (
	// ProviderName identifies identities minted by this backend.
	ProviderName = "local"

	minPasswordLength = 8
)

// Provider implements social.IdentityProvider against a local credential
// table. Everything is synchronous: session-changed events fire inline with
// the operation that caused them.
type Provider struct {
	repo   Credentials
	logger social.Logger

	mu          sync.Mutex
	current     *social.VerifiedIdentity
	subscribers map[int]social.SessionChangedFunc
	nextHandle  int
}

// Option customizes provider construction.
type Option func(*Provider)

// WithLogger overrides the logger.
func WithLogger(logger social.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New builds a local identity provider over the credential repository.
func New(repo Credentials, opts ...Option) *Provider {
	p := &Provider{
		repo:        repo,
		subscribers: map[int]social.SessionChangedFunc{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// Authenticate verifies the credential pair and returns the identity. A
// missing account and a wrong password both collapse to the same error, so
// the response does not leak which emails exist.
func (p *Provider) Authenticate(ctx context.Context, email, password string) (*social.VerifiedIdentity, error) {
	cred, err := p.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := social.ComparePasswordAndHash(password, cred.PasswordHash); err != nil {
		return nil, social.ErrInvalidCredential
	}

	identity := p.identityFromCredential(cred)
	p.setCurrent(identity)
	return identity, nil
}

// Register creates the credential. Local accounts come out verified; there is
// no email round-trip in this backend.
func (p *Provider) Register(ctx context.Context, email, password string, meta social.RegistrationMetadata) (*social.VerifiedIdentity, error) {
	taken, err := p.repo.EmailTaken(ctx, email)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "credential lookup failed")
	}
	if taken {
		return nil, social.ErrAlreadyRegistered.WithMetadata(map[string]any{"email": social.NormalizeEmail(email)})
	}

	hash, err := social.HashPassword(password)
	if err != nil {
		return nil, err
	}

	cred := &Credential{
		Email:         social.NormalizeEmail(email),
		PasswordHash:  hash,
		EmailVerified: true,
		DisplayName:   strings.TrimSpace(meta.DisplayName),
	}
	if id, err := hashid.NewUUID(cred.Email); err == nil {
		cred.ID = id
	}

	created, err := p.repo.Create(ctx, cred)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create credential")
	}

	identity := p.identityFromCredential(created)
	p.setCurrent(identity)
	return identity, nil
}

// AuthenticateFederated returns a deterministic demo identity for the named
// federation. The same provider name always yields the same identity, so a
// demo install resolves to a stable profile.
func (p *Provider) AuthenticateFederated(ctx context.Context, providerName string) (*social.VerifiedIdentity, error) {
	name := strings.ToLower(strings.TrimSpace(providerName))
	if name == "" {
		return nil, social.ErrProvider.WithMetadata(map[string]any{"cause": "empty federation name"})
	}

	identity := &social.VerifiedIdentity{
		ID:            "demo-" + name,
		Email:         "demo." + name + "@adspark.dev",
		EmailVerified: true,
		Provider:      name,
		DisplayName:   capitalize(name) + " Demo",
	}

	p.setCurrent(identity)
	return identity, nil
}

// ChangePassword rotates the stored hash after verifying the old password.
// The replacement must be at least minPasswordLength characters.
func (p *Provider) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return social.ErrPasswordTooShort
	}

	cred, err := p.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := social.ComparePasswordAndHash(oldPassword, cred.PasswordHash); err != nil {
		return social.ErrInvalidCredential
	}

	hash, err := social.HashPassword(newPassword)
	if err != nil {
		return err
	}

	cred.PasswordHash = hash
	if _, err := p.repo.Update(ctx, cred); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not rotate credential")
	}

	return nil
}

// SignOut clears the current identity and notifies subscribers.
func (p *Provider) SignOut(ctx context.Context) error {
	p.setCurrent(nil)
	return nil
}

// OnSessionChanged subscribes to session-changed events.
func (p *Provider) OnSessionChanged(fn social.SessionChangedFunc) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	handle := p.nextHandle
	p.nextHandle++
	p.subscribers[handle] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, handle)
	}
}

func (p *Provider) identityFromCredential(cred *Credential) *social.VerifiedIdentity {
	return &social.VerifiedIdentity{
		ID:            cred.ID.String(),
		Email:         cred.Email,
		EmailVerified: cred.EmailVerified,
		Provider:      ProviderName,
		DisplayName:   cred.DisplayName,
	}
}

func (p *Provider) setCurrent(identity *social.VerifiedIdentity) {
	p.mu.Lock()
	p.current = identity
	subscribers := make([]social.SessionChangedFunc, 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		if fn != nil {
			subscribers = append(subscribers, fn)
		}
	}
	p.mu.Unlock()

	if p.logger != nil {
		if identity == nil {
			p.logger.Debug("local provider signed out")
		} else {
			p.logger.Debug("local provider session for %s", identity.Email)
		}
	}

	for _, fn := range subscribers {
		fn(identity)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
