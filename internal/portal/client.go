package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/portalxml/portal-api/internal/config"
	"github.com/sirupsen/logrus"
)

// TokenStore guards the bearer token used on every backend call. It is the
// single write entry point for the token; nothing else mutates it.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewTokenStore creates an empty token store
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Set replaces the stored token. An empty string clears it.
func (t *TokenStore) Set(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}

// Get returns the stored token, or empty when unauthenticated
func (t *TokenStore) Get() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

// Client is the typed HTTP adapter for the upstream Portal XML backend.
// Every request carries the bearer token when one is present and is logged
// with method, path, status and duration.
type Client struct {
	baseURL  string
	http     *http.Client
	tokens   *TokenStore
	logger   *logrus.Logger
	override string
}

// NewClient creates a backend client
func NewClient(cfg config.BackendConfig, tokens *TokenStore, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		tokens:  tokens,
		logger:  logger,
	}
}

// WithToken returns a shallow copy of the client that sends the given
// token instead of the stored one. Used to forward a caller's session
// token on a per-request basis.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.override = token
	return &clone
}

// Tokens returns the client token store
func (c *Client) Tokens() *TokenStore {
	return c.tokens
}

func (c *Client) token() string {
	if c.override != "" {
		return c.override
	}
	return c.tokens.Get()
}

// do executes one backend call. A non-nil out receives the decoded 2xx
// body; decoding failures surface as *DecodeError.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("portal: falha ao serializar corpo de %s: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("portal: falha ao montar requisição %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"method":   method,
			"path":     path,
			"duration": time.Since(start),
			"error":    err.Error(),
		}).Warn("Backend request failed")
		return fmt.Errorf("portal: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("portal: falha ao ler resposta de %s: %w", path, err)
	}

	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
		"bytes":    len(data),
	}).Debug("Backend request completed")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode >= 400:
		return c.apiError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Endpoint: path, Err: err}
	}
	return nil
}

// apiError extracts the business message from an error body, falling back
// to a generic message when the body has none.
func (c *Client) apiError(status int, data []byte) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Code = body.Code
		if body.Message != "" {
			apiErr.Message = body.Message
		} else {
			apiErr.Message = body.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = "erro ao comunicar com o servidor, tente novamente"
	}
	return apiErr
}

// Download streams an artifact (XML bundle) from the URL reported by a
// fulfilled solicitação. The caller owns the returned body.
func (c *Client) Download(ctx context.Context, url string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("portal: falha ao montar download: %w", err)
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("portal: download falhou: %w", err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, "", ErrUnauthorized
		}
		return nil, "", &APIError{StatusCode: resp.StatusCode, Message: "artefato indisponível"}
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}
