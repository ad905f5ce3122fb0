// Package httpclient provides the context-aware HTTP client used for outbound calls,
// currently the Pushover messages API.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tphakala/motionsort/internal/errors"
	"github.com/tphakala/motionsort/internal/logger"
)

const (
	// DefaultTimeout applies when the request context has no deadline.
	DefaultTimeout = 30 * time.Second

	defaultIdleConnTimeout       = 90 * time.Second
	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultResponseHeaderTimeout = 20 * time.Second
	defaultDialTimeout           = 15 * time.Second
	defaultDialKeepAlive         = 30 * time.Second

	defaultUserAgent = "motionsort"

	// errorBodyLimit bounds how much of an error response is kept.
	errorBodyLimit = 512
)

// Client wraps http.Client with default deadlines, a User-Agent and error classification.
// It is safe for concurrent use.
type Client struct {
	client         *http.Client
	defaultTimeout time.Duration
	userAgent      string
}

// Config holds client settings. Zero values fall back to defaults.
type Config struct {
	DefaultTimeout time.Duration
	UserAgent      string
	Transport      http.RoundTripper // nil builds a tuned *http.Transport
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: DefaultTimeout,
		UserAgent:      defaultUserAgent,
	}
}

// New creates a client. A nil cfg uses DefaultConfig; cfg is not modified.
func New(cfg *Config) *Client {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.DefaultTimeout > 0 {
			c.DefaultTimeout = cfg.DefaultTimeout
		}
		if cfg.UserAgent != "" {
			c.UserAgent = cfg.UserAgent
		}
		c.Transport = cfg.Transport
	}

	if c.Transport == nil {
		c.Transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   defaultDialTimeout,
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          10,
			IdleConnTimeout:       defaultIdleConnTimeout,
			TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
			ResponseHeaderTimeout: defaultResponseHeaderTimeout,
		}
	}

	return &Client{
		client:         &http.Client{Transport: c.Transport},
		defaultTimeout: c.DefaultTimeout,
		userAgent:      c.UserAgent,
	}
}

// HTTPClient exposes the underlying client, e.g. for httpmock.ActivateNonDefault.
func (c *Client) HTTPClient() *http.Client {
	return c.client
}

// Do sends req. When ctx has no deadline the default timeout is applied.
// The caller must close the response body when err is nil.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.Newf("nil request").
			Component("httpclient").
			Category(errors.CategoryValidation).
			Build()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// the timeout cancel is tied to the body so reading it after return still works
	var cancel context.CancelFunc
	if _, ok := ctx.Deadline(); !ok && c.defaultTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
	}
	req = req.WithContext(ctx)

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, requestError(ctx, err, req, time.Since(start))
	}

	GetLogger().Debug("http request completed",
		logger.String("method", req.Method),
		logger.String("host", req.URL.Host),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)))

	if cancel != nil {
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	}
	return resp, nil
}

// FormFile is a file part of a multipart request.
type FormFile struct {
	Field    string
	Filename string
	Content  io.Reader
}

// PostMultipart posts a multipart/form-data body with string fields followed by files.
// Fields are written in the order given.
func (c *Client) PostMultipart(ctx context.Context, url string, fields [][2]string, files ...FormFile) (*http.Response, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, encodeError(err, f[0])
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return nil, encodeError(err, f.Field)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, encodeError(err, f.Field)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, encodeError(err, "")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, errors.New(err).
			Component("httpclient").
			Category(errors.CategoryValidation).
			Context("operation", "build_request").
			Build()
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.Do(ctx, req)
}

// StatusError is returned by CheckResponse for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected HTTP status %d: %s", e.StatusCode, e.Body)
}

// CheckResponse drains and closes resp. It returns a *StatusError wrapped in an
// EnhancedError unless the status is 2xx.
func CheckResponse(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return errors.New(&StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}).
		Component("httpclient").
		Category(errors.CategoryHTTP).
		Context("status_code", resp.StatusCode).
		Build()
}

// Close releases idle connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func requestError(ctx context.Context, err error, req *http.Request, d time.Duration) error {
	category := errors.CategoryNetwork
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		category = errors.CategoryTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		category = errors.CategoryCancellation
	}
	return errors.New(err).
		Component("httpclient").
		Category(category).
		Context("method", req.Method).
		Context("host", req.URL.Host).
		Timing("http_request", d).
		Build()
}

func encodeError(err error, field string) error {
	return errors.New(err).
		Component("httpclient").
		Category(errors.CategoryValidation).
		Context("operation", "encode_multipart").
		Context("field", field).
		Build()
}

// GetLogger returns the httpclient module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("httpclient")
}
