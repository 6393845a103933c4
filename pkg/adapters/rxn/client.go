// Package rxn implements ports.ActionExtractor against the IBM RXN for
// Chemistry "paragraph to actions" endpoint.
package rxn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/synthex/internal/logging"
	"github.com/aretw0/synthex/pkg/domain"
)

// Defaults for the public IBM RXN deployment, which takes the raw API key
// as the Authorization value.
const (
	DefaultBaseURL    = "https://rxn.res.ibm.com"
	DefaultPath       = "/rxn/api/api/v1/actions/convert-paragraph-to-actions"
	DefaultAuthScheme = ""
)

// maxErrorBody caps how much of a failed response is echoed into the error.
const maxErrorBody = 4096

// Config holds the configuration for the client.
type Config struct {
	BaseURL string
	Path    string
	// AuthScheme prefixes the credential in the Authorization header.
	// Empty sends the raw key.
	AuthScheme string
	// Credential is used when a request carries none.
	Credential domain.Credential
	// Timeout of zero leaves the http.Client default (no timeout).
	Timeout time.Duration
}

// DefaultConfig returns the public endpoint configuration.
func DefaultConfig(credential domain.Credential) Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		Path:       DefaultPath,
		AuthScheme: DefaultAuthScheme,
		Credential: credential,
	}
}

// Client calls the extraction service. It never retries.
type Client struct {
	endpoint   *url.URL
	authScheme string
	credential domain.Credential
	http       *http.Client
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger configures a logger for the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the configured endpoint.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", cfg.BaseURL)
	}

	c := &Client{
		endpoint:   base.JoinPath(cfg.Path),
		authScheme: strings.TrimSpace(cfg.AuthScheme),
		credential: cfg.Credential,
		http:       &http.Client{Timeout: cfg.Timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the resolved extraction URL.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// ExtractActions posts the paragraph unmodified and returns the actions in service order.
func (c *Client) ExtractActions(ctx context.Context, req domain.ExtractionRequest) (domain.ActionList, error) {
	credential := req.Credential.Or(c.credential)
	if credential.IsZero() {
		return nil, domain.ErrMissingCredential
	}

	body, err := json.Marshal(paragraphRequest{Paragraph: req.Paragraph})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", c.authorization(credential))

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("RXN response received",
		"status", resp.StatusCode,
		"bytes", len(data),
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	actions, err := decodeActions(data)
	if err != nil {
		return nil, err
	}
	return actions, nil
}

func (c *Client) authorization(credential domain.Credential) string {
	if c.authScheme == "" {
		return credential.Reveal()
	}
	return c.authScheme + " " + credential.Reveal()
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
}

// decodeActions accepts both the flattened and the raw RXN envelope.
func decodeActions(data []byte) (domain.ActionList, error) {
	var resp paragraphResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	switch {
	case resp.Actions != nil:
		return resp.Actions, nil
	case resp.Payload != nil && resp.Payload.Actions != nil:
		return resp.Payload.Actions, nil
	case resp.Payload != nil || resp.hasEmptyActions:
		return domain.ActionList{}, nil
	default:
		return nil, errors.New("failed to parse response: missing actions field")
	}
}

// errorMessage extracts the provider message from an error body.
func errorMessage(data []byte) string {
	var body errorResponse
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != nil && body.Error.Message != "" {
			return body.Error.Message
		}
		if body.Detail != "" {
			return body.Detail
		}
	}

	msg := strings.TrimSpace(string(data))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return msg
}
