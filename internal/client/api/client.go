package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultScheme is the Authorization scheme of the backend's token auth.
	DefaultScheme = "Token"

	maxResponse = 4 << 20
)

// TokenSource supplies the token attached to outgoing requests.
type TokenSource interface {
	Token() string
}

// Client is the single configured request interface to the gallery API.
// Endpoint paths are relative to BaseURL.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Tokens  TokenSource
	Scheme  string
	Logger  *zerolog.Logger

	// OnUnauthorized is called when a request that carried token is
	// answered with 401.
	OnUnauthorized func(ctx context.Context, token string)
}

type contextKey struct{}

var tokenContextKey = &contextKey{}

// WithToken makes requests issued with ctx carry token instead of the one
// provided by Tokens.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// TokenFrom returns the token attached to ctx with WithToken.
func TokenFrom(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(tokenContextKey).(string)
	return tok, ok
}

func (c *Client) token(ctx context.Context) string {
	if tok, ok := TokenFrom(ctx); ok {
		return tok
	}
	if c.Tokens == nil {
		return ""
	}
	return c.Tokens.Token()
}

func (c *Client) logger() *zerolog.Logger {
	if c.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return c.Logger
}

func (c *Client) resolve(path string) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse base url '%s': %w", c.BaseURL, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint '%s': %w", path, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	endpoint, err := c.resolve(path)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	token := c.token(ctx)
	if token != "" {
		scheme := c.Scheme
		if scheme == "" {
			scheme = DefaultScheme
		}
		req.Header.Set("Authorization", scheme+" "+token)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		c.logger().Debug().
			Str("op", op).
			Str("request", reqID).
			Err(err).
			Msg("request failed")
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger().Debug().
		Str("op", op).
		Str("request", reqID).
		Int("status", resp.StatusCode).
		Msg("got response")

	status := resp.StatusCode
	switch {
	case status >= 200 && status < 300:
		if out == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
		return nil
	case status >= 400 && status < 500:
		if status == http.StatusUnauthorized && token != "" && c.OnUnauthorized != nil {
			c.OnUnauthorized(ctx, token)
		}
		return &AuthError{Op: op, Status: status, Detail: errorDetail(data)}
	default:
		return &ServerError{Op: op, Status: status, Detail: errorDetail(data)}
	}
}
