// Package unifi implements a session against the UniFi OS network controller API.
package unifi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/xabinapal/unifi-vpn/internal/utils"
)

// Controller API paths.
const (
	loginPath      = "/api/auth/login"
	logoutPath     = "/api/auth/logout"
	networkConfFmt = "/proxy/network/api/s/%s/rest/networkconf"
)

// Anti-forgery headers used by UniFi OS.
const (
	HeaderCSRFToken        = "X-CSRF-Token"
	HeaderUpdatedCSRFToken = "X-Updated-CSRF-Token"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// ErrEmptyID is returned when an update is attempted without an identifier.
var ErrEmptyID = errors.New("network id is required")

// Logger is the leveled logger used by the session. It matches
// retryablehttp.LeveledLogger so transport retries are logged too.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// APIError describes a non-200 response from the controller.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s failed: status %d, body: %s", e.Op, e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	// BaseURL is the controller URL, e.g. https://192.168.1.1.
	BaseURL  string
	Site     string
	Username string
	Password string

	// VerifyTLS enables certificate verification (off by default).
	VerifyTLS bool
	// CACert is an optional PEM bundle used when VerifyTLS is set.
	CACert  string
	Timeout time.Duration

	// RetryMax is the number of retries on transient statuses. Zero means
	// DefaultRetryMax, negative disables retries.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	Logger Logger
}

// Client is an authenticated session against one controller.
type Client struct {
	baseURL  string
	site     string
	username string
	password string

	http   *retryablehttp.Client
	logger Logger

	csrfToken string
}

// NewClient creates a Client. It performs no network I/O.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, errors.New("controller URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid controller URL: %w", err)
	}
	if opts.Site == "" {
		opts.Site = "default"
	}

	hc, err := buildHTTPClient(opts)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
		opts.Logger = logger
	}

	return &Client{
		baseURL:  base,
		site:     opts.Site,
		username: opts.Username,
		password: opts.Password,
		http:     buildRetryClient(hc, opts),
		logger:   logger,
	}, nil
}

// Site returns the site the client operates on.
func (c *Client) Site() string { return c.site }

// CSRFToken returns the anti-forgery token captured at login, if any.
func (c *Client) CSRFToken() string { return c.csrfToken }

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// Login authenticates with the controller. The anti-forgery token is
// captured from the response headers when present; its absence is fine.
func (c *Client) Login(ctx context.Context) error {
	c.logger.Info("attempting to login to UniFi controller", "url", c.baseURL)

	resp, err := c.do(ctx, "login", http.MethodPost, loginPath, loginRequest{
		Username: c.username,
		Password: c.password,
		Remember: false,
	})
	if err != nil {
		c.logger.Error("login failed", "error", err)
		return err
	}

	if token := resp.Header.Get(HeaderCSRFToken); token != "" {
		c.csrfToken = token
		c.logger.Info("CSRF token obtained", "token", utils.Mask(token))
	}

	c.logger.Info("successfully authenticated with UniFi controller")
	return nil
}

// Logout ends the session. Callers typically ignore the error.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.do(ctx, "logout", http.MethodPost, logoutPath, nil); err != nil {
		c.logger.Debug("logout failed", "error", err)
		return err
	}
	c.csrfToken = ""
	c.logger.Info("logged out from UniFi controller")
	return nil
}

// ListNetworks returns every network profile of the site.
func (c *Client) ListNetworks(ctx context.Context) ([]Network, error) {
	resp, err := c.do(ctx, "list network configurations", http.MethodGet, c.networkConfPath(""), nil)
	if err != nil {
		c.logger.Error("failed to retrieve network configurations", "error", err)
		return nil, err
	}

	networks, err := decodeNetworks(resp.body)
	if err != nil {
		return nil, err
	}

	c.logger.Info("found network configurations", "count", len(networks))
	return networks, nil
}

// UpdateNetwork replaces the network profile identified by id with n.
func (c *Client) UpdateNetwork(ctx context.Context, id string, n Network) error {
	if id == "" {
		return ErrEmptyID
	}

	if _, err := c.do(ctx, "update network configuration", http.MethodPut, c.networkConfPath(id), n); err != nil {
		c.logger.Error("failed to update network configuration", "id", id, "error", err)
		return err
	}
	return nil
}

func (c *Client) networkConfPath(id string) string {
	p := fmt.Sprintf(networkConfFmt, url.PathEscape(c.site))
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

type response struct {
	Header http.Header
	body   []byte
}

// do sends one request and requires a 200 response.
func (c *Client) do(ctx context.Context, op, method, path string, payload any) (*response, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
	}

	var raw any
	if body != nil {
		raw = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && c.csrfToken != "" {
		req.Header.Set(HeaderCSRFToken, c.csrfToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error during %s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}

	c.logger.Debug("controller response", "op", op, "method", method, "status", resp.StatusCode)

	if token := resp.Header.Get(HeaderUpdatedCSRFToken); token != "" {
		c.csrfToken = token
		c.logger.Debug("CSRF token rotated", "op", op)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(respBody)), maxErrorBody),
		}
	}

	return &response{Header: resp.Header, body: respBody}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
