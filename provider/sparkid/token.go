package sparkid

import (
	"fmt"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/adspark/go-social"
)

// identityClaims are the claims Spark ID puts in its access tokens.
type identityClaims struct {
	jwt.RegisteredClaims

	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
}

// tokenVerifier validates RS256 tokens against the service JWKS.
type tokenVerifier struct {
	jwks   *keyfunc.JWKS
	issuer string
}

func newTokenVerifier(cfg Config) (*tokenVerifier, error) {
	jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
		RefreshInterval:   cfg.RefreshInterval,
		RefreshRateLimit:  cfg.RefreshInterval / 2,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sparkid: failed to load JWKS: %w", err)
	}

	return &tokenVerifier{
		jwks:   jwks,
		issuer: cfg.Issuer,
	}, nil
}

func (v *tokenVerifier) close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// verify parses the token and maps its claims to a verified identity.
func (v *tokenVerifier) verify(tokenString string) (*social.VerifiedIdentity, error) {
	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		return nil, social.ErrProvider.WithMetadata(map[string]any{
			"cause": err.Error(),
		})
	}
	if !token.Valid || claims.Subject == "" {
		return nil, social.ErrInvalidCredential
	}

	return &social.VerifiedIdentity{
		ID:            claims.Subject,
		Email:         social.NormalizeEmail(claims.Email),
		EmailVerified: claims.EmailVerified,
		Provider:      ProviderName,
		DisplayName:   claims.Name,
		AvatarRef:     claims.Picture,
	}, nil
}
