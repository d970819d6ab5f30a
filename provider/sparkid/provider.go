package sparkid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/adspark/go-social"
)

const (
	// ProviderName identifies identities minted by this backend.
	ProviderName = "sparkid"
)

// Provider implements social.IdentityProvider against the hosted Spark ID
// service. Credentials never touch local storage: the service returns a
// signed token, which is verified against its JWKS before the identity is
// trusted.
type Provider struct {
	config   Config
	client   *http.Client
	verifier *tokenVerifier

	mu          sync.Mutex
	subscribers map[int]social.SessionChangedFunc
	nextHandle  int
}

// New builds a Spark ID provider; it fetches the JWKS eagerly so a bad
// endpoint fails at construction, not at first sign-in.
func New(cfg Config) (*Provider, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	verifier, err := newTokenVerifier(cfg)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:      cfg,
		client:      cfg.HTTPClient,
		verifier:    verifier,
		subscribers: map[int]social.SessionChangedFunc{},
	}, nil
}

// Close stops the background JWKS refresh.
func (p *Provider) Close() {
	p.verifier.close()
}

type credentialRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
	Username    string `json:"username,omitempty"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Authenticate exchanges the credential pair for a token and verifies it.
func (p *Provider) Authenticate(ctx context.Context, email, password string) (*social.VerifiedIdentity, error) {
	identity, err := p.exchange(ctx, "/v1/auth/login", credentialRequest{
		Email:    social.NormalizeEmail(email),
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	p.notify(identity)
	return identity, nil
}

// Register creates the remote credential and verifies the returned token.
func (p *Provider) Register(ctx context.Context, email, password string, meta social.RegistrationMetadata) (*social.VerifiedIdentity, error) {
	identity, err := p.exchange(ctx, "/v1/auth/register", registerRequest{
		Email:       social.NormalizeEmail(email),
		Password:    password,
		DisplayName: meta.DisplayName,
		Username:    meta.Username,
	})
	if err != nil {
		return nil, err
	}

	p.notify(identity)
	return identity, nil
}

// AuthenticateFederated runs the named federated flow server-side.
func (p *Provider) AuthenticateFederated(ctx context.Context, providerName string) (*social.VerifiedIdentity, error) {
	identity, err := p.exchange(ctx, "/v1/auth/federated/"+providerName, struct{}{})
	if err != nil {
		return nil, err
	}

	p.notify(identity)
	return identity, nil
}

// SignOut invalidates the remote session best-effort and notifies subscribers.
func (p *Provider) SignOut(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/v1/auth/logout", nil)
	if err == nil {
		if resp, err := p.client.Do(req); err == nil {
			resp.Body.Close()
		}
	}

	p.notify(nil)
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

// exchange POSTs the payload and turns the response into a verified identity.
func (p *Provider) exchange(ctx context.Context, path string, payload any) (*social.VerifiedIdentity, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, social.ErrProvider.WithMetadata(map[string]any{"cause": err.Error()})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, social.ErrProvider.WithMetadata(map[string]any{"cause": err.Error()})
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, social.ErrProvider.WithMetadata(map[string]any{"cause": err.Error()})
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, social.ErrInvalidCredential
	case http.StatusConflict:
		return nil, social.ErrAlreadyRegistered
	default:
		return nil, social.ErrProvider.WithMetadata(map[string]any{
			"cause": fmt.Sprintf("unexpected status %d", resp.StatusCode),
		})
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, social.ErrProvider.WithMetadata(map[string]any{"cause": err.Error()})
	}

	return p.verifier.verify(token.Token)
}

func (p *Provider) notify(identity *social.VerifiedIdentity) {
	p.mu.Lock()
	subscribers := make([]social.SessionChangedFunc, 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		if fn != nil {
			subscribers = append(subscribers, fn)
		}
	}
	p.mu.Unlock()

	for _, fn := range subscribers {
		fn(identity)
	}
}
