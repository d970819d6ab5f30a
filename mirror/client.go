package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adspark/go-social"
)

// Client is the HTTP implementation of social.RemoteDirectory. Every write is
// idempotent on the server side, so callers can retry or defer to the next
// resync pass without double-applying.
type Client struct {
	baseURL string
	client  *http.Client
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// New builds a mirror client for the given service root.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("mirror: base URL is required")
	}

	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c, nil
}

var _ social.RemoteDirectory = (*Client)(nil)

// UpsertProfile implements social.RemoteDirectory.
func (c *Client) UpsertProfile(ctx context.Context, profile *social.Profile) error {
	if profile == nil {
		return nil
	}
	return c.send(ctx, http.MethodPut, "/v1/profiles/"+profile.ID.String(), profile, nil)
}

// DeleteProfile implements social.RemoteDirectory.
func (c *Client) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	return c.send(ctx, http.MethodDelete, "/v1/profiles/"+id.String(), nil, nil)
}

// ListProfiles implements social.RemoteDirectory.
func (c *Client) ListProfiles(ctx context.Context) ([]*social.Profile, error) {
	var profiles []*social.Profile
	if err := c.send(ctx, http.MethodGet, "/v1/profiles", nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// InsertFollowEdge implements social.RemoteDirectory.
func (c *Client) InsertFollowEdge(ctx context.Context, follower, followee uuid.UUID) error {
	return c.send(ctx, http.MethodPut, "/v1/follows", social.FollowEdgeRecord{
		FollowerID: follower,
		FolloweeID: followee,
	}, nil)
}

// DeleteFollowEdge implements social.RemoteDirectory.
func (c *Client) DeleteFollowEdge(ctx context.Context, follower, followee uuid.UUID) error {
	return c.send(ctx, http.MethodDelete,
		fmt.Sprintf("/v1/follows/%s/%s", follower, followee), nil, nil)
}

// ListFollowEdges implements social.RemoteDirectory.
func (c *Client) ListFollowEdges(ctx context.Context) ([]social.FollowEdgeRecord, error) {
	var edges []social.FollowEdgeRecord
	if err := c.send(ctx, http.MethodGet, "/v1/follows", nil, &edges); err != nil {
		return nil, err
	}
	return edges, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("mirror: encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("mirror: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("mirror: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound && method == http.MethodDelete:
		// Deleting something already gone is success.
		return nil
	case resp.StatusCode >= 400:
		return fmt.Errorf("mirror: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("mirror: decode response: %w", err)
		}
	}

	return nil
}
