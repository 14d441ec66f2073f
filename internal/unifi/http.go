package unifi

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// Transport defaults.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultRetryMax     = 3
	DefaultRetryWaitMin = 1 * time.Second
	DefaultRetryWaitMax = 8 * time.Second
)

// retryableStatus lists the responses treated as transient.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// idempotentMethods are the only methods retried on a transient status.
var idempotentMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// buildHTTPClient creates the session HTTP client: pooled transport, TLS
// settings from the options and a cookie jar for the controller session.
func buildHTTPClient(opts Options) (*http.Client, error) {
	// Gateways ship self-signed certificates, so verification is opt-in.
	// #nosec G402
	tlsConfig := &tls.Config{InsecureSkipVerify: !opts.VerifyTLS}

	if opts.CACert != "" {
		// #nosec G304 - CA path comes from the user's own configuration
		caCert, err := os.ReadFile(opts.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = pool
	}

	transport := cleanhttp.DefaultPooledTransport()
	transport.TLSClientConfig = tlsConfig

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   timeout,
	}, nil
}

// buildRetryClient wraps hc with bounded retries on transient statuses.
func buildRetryClient(hc *http.Client, opts Options) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = hc
	rc.Logger = opts.Logger

	switch {
	case opts.RetryMax < 0:
		rc.RetryMax = 0
	case opts.RetryMax == 0:
		rc.RetryMax = DefaultRetryMax
	default:
		rc.RetryMax = opts.RetryMax
	}

	rc.RetryWaitMin = DefaultRetryWaitMin
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	rc.RetryWaitMax = DefaultRetryWaitMax
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}

	rc.CheckRetry = retryPolicy
	rc.Backoff = retryablehttp.DefaultBackoff
	// Hand the last response back once retries are exhausted so the caller
	// can report its status.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return rc
}

// retryPolicy retries transient statuses on idempotent requests only.
// Connection errors surface immediately.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil || resp == nil {
		return false, err
	}
	if resp.Request != nil && !idempotentMethods[resp.Request.Method] {
		return false, nil
	}
	return retryableStatus[resp.StatusCode], nil
}
