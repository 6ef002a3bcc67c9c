package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// HTTPConfig configures the HTTP gateway.
type HTTPConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     uint64
	BackoffBase    time.Duration
}

// HTTP is a Gateway backed by a JSON API:
//
//	POST {base}/auth/login   {"email","password"} -> {"token","user"}
//	POST {base}/auth/logout  Authorization: Bearer <token>
type HTTP struct {
	cfg    HTTPConfig
	client *http.Client
}

const maxResponseBytes = 1 << 20

// NewHTTP returns an HTTP gateway. A nil client uses a dedicated client with no global timeout;
// each attempt is bounded by cfg.RequestTimeout instead.
func NewHTTP(cfg HTTPConfig, client *http.Client) (*HTTP, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway base URL required")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, errors.New("gateway request timeout must be > 0")
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 100 * time.Millisecond
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = &http.Client{}
	}
	return &HTTP{cfg: cfg, client: client}, nil
}

// Login validates creds and posts them to the login endpoint.
func (h *HTTP) Login(ctx context.Context, creds Credentials) (*Grant, error) {
	if err := Validate(creds); err != nil {
		return nil, err
	}
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var grant Grant
	if err := h.do(ctx, "/auth/login", "", body, &grant); err != nil {
		return nil, err
	}
	if err := validGrant(&grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// Logout tells the backend to revoke token.
func (h *HTTP) Logout(ctx context.Context, token string) error {
	return h.do(ctx, "/auth/logout", token, nil, nil)
}

func (h *HTTP) backoff() retry.Backoff {
	return retry.WithMaxRetries(h.cfg.MaxRetries, retry.NewExponential(h.cfg.BackoffBase))
}

func (h *HTTP) do(ctx context.Context, path, bearer string, body []byte, out any) error {
	err := retry.Do(ctx, h.backoff(), func(ctx context.Context) error {
		return h.attempt(ctx, path, bearer, body, out)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrAuthenticationFailed) || errors.Is(err, ErrGatewayUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
}

func (h *HTTP) attempt(ctx context.Context, path, bearer string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return retry.RetryableError(err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrInvalidInput, errorMessage(payload, resp.Status))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAuthenticationFailed, errorMessage(payload, resp.Status))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("%w: %s", ErrGatewayUnavailable, resp.Status))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: unexpected status %s", ErrGatewayUnavailable, resp.Status)
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrGatewayUnavailable, err)
	}
	return nil
}

func errorMessage(payload []byte, fallback string) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(payload, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return fallback
}
