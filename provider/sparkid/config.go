package sparkid

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config configures the Spark ID identity provider.
type Config struct {
	// BaseURL is the identity service root, e.g. https://id.adspark.dev.
	BaseURL string

	// JWKSURL is the JSON Web Key Set endpoint used to verify issued tokens.
	// Defaults to BaseURL + "/.well-known/jwks.json".
	JWKSURL string

	// Issuer is the expected iss claim. Defaults to BaseURL.
	Issuer string

	// HTTPClient is used for every call. Defaults to a 10s-timeout client.
	HTTPClient *http.Client

	// RefreshInterval controls JWKS cache refresh. Defaults to 1 hour.
	RefreshInterval time.Duration
}

func (c *Config) normalize() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return fmt.Errorf("sparkid: base URL is required")
	}

	if c.JWKSURL == "" {
		c.JWKSURL = c.BaseURL + "/.well-known/jwks.json"
	}
	if c.Issuer == "" {
		c.Issuer = c.BaseURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = time.Hour
	}

	return nil
}
