package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/nhle/smsexpert/internal/metrics"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// TokenSource yields the bearer token for authenticated requests.
type TokenSource interface {
	Token() (string, error)
}

// Reporter surfaces a request failure to the user (a toast, a status line).
type Reporter interface {
	ReportError(message string)
}

// Options control a single request.
type Options struct {
	Method string
	Body   any

	// RequiresAuth attaches the bearer token when one is available.
	RequiresAuth bool

	// ShowErrorToast hands failure messages to the Reporter.
	ShowErrorToast bool
}

// DefaultOptions is an authenticated GET that reports failures.
func DefaultOptions() Options {
	return Options{
		Method:         http.MethodGet,
		RequiresAuth:   true,
		ShowErrorToast: true,
	}
}

// Config holds the connection settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client performs API requests and normalizes every outcome into an
// Envelope. It never returns an error for timeouts, HTTP failures or
// network failures.
type Client struct {
	http     *resty.Client
	timeout  time.Duration
	tokens   TokenSource
	metrics  *metrics.Metrics
	log      *zap.Logger
	reporter Reporter
}

// Option configures a Client.
type Option func(*Client)

// WithReporter sets the failure reporter.
func WithReporter(r Reporter) Option {
	return func(c *Client) { c.reporter = r }
}

// WithMetrics records request outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Client for the API rooted at cfg.BaseURL.
func New(cfg Config, tokens TokenSource, logger *zap.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "smsexpert-cli"
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetLogger(logger.Sugar())

	c := &Client{
		http:    rc,
		timeout: timeout,
		tokens:  tokens,
		log:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// Request calls endpoint (relative to the base URL, query string allowed)
// and returns the normalized envelope.
func (c *Client) Request(ctx context.Context, endpoint string, opts Options) Envelope {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	path := "/" + strings.TrimLeft(endpoint, "/")
	requestID := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", requestID)

	if opts.RequiresAuth && c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			c.log.Warn("loading api token failed", zap.String("request_id", requestID), zap.Error(err))
		} else if token != "" {
			req.SetAuthToken(token)
		}
	}
	if opts.Body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(opts.Body)
	}

	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
	}
	c.log.Debug("api request", fields...)

	start := time.Now()
	res, err := req.Execute(method, path)
	fields = append(fields, zap.Duration("latency", time.Since(start)))

	if err != nil {
		env, outcome := classifyError(err)
		c.log.Warn("api request failed", append(fields, zap.String("outcome", outcome), zap.Error(err))...)
		return c.finish(method, outcome, env, opts)
	}

	status := res.StatusCode()
	body := strings.TrimSpace(res.String())
	fields = append(fields, zap.Int("status", status))

	var env Envelope
	var decodeErr error
	if body != "" {
		decodeErr = json.Unmarshal([]byte(body), &env)
	}
	env.HTTPStatus = status

	if status < 200 || status >= 300 {
		env.Status = false
		if decodeErr != nil || env.Message == "" {
			env.Message = fmt.Sprintf("Request failed with status %d", status)
		}
		c.log.Warn("api request rejected", append(fields, zap.String("message", env.Message))...)
		return c.finish(method, "http_error", env, opts)
	}

	if body == "" {
		// 204 and friends: success without payload.
		c.log.Debug("api response", fields...)
		return c.finish(method, "ok", Envelope{Status: true, HTTPStatus: status}, opts)
	}

	if decodeErr != nil {
		c.log.Warn("api response undecodable", append(fields, zap.Error(decodeErr))...)
		env = failure(MsgInvalidResponse)
		env.HTTPStatus = status
		return c.finish(method, "decode", env, opts)
	}

	if !env.Status {
		if env.Message == "" {
			env.Message = MsgRequestFailed
		}
		c.log.Warn("api request unsuccessful", append(fields, zap.String("message", env.Message))...)
		return c.finish(method, "app_error", env, opts)
	}

	c.log.Debug("api response", append(fields, zap.String("message", env.Message))...)
	return c.finish(method, "ok", env, opts)
}

func (c *Client) finish(method, outcome string, env Envelope, opts Options) Envelope {
	c.metrics.ObserveRequest(method, outcome)
	if !env.Status && opts.ShowErrorToast {
		r := c.reporter
		if r != nil {
			r.ReportError(env.Message)
		}
	}
	return env
}

// classifyError maps a failed round trip to its envelope and metric outcome.
func classifyError(err error) (Envelope, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return failure(MsgTimeout), "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failure(MsgTimeout), "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return failure(MsgCancelled), "cancelled"
	}
	return failure(MsgNetwork), "network"
}
