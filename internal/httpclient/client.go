package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/metrics"
	"github.com/ternarybob/larder/internal/models"
)

const (
	// DefaultTimeout bounds one upstream call end to end
	DefaultTimeout = 15 * time.Second

	maxBodyBytes = 8 << 20
)

// Outcome labels used in logs and metrics
const (
	OutcomeSuccess         = "success"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeAuthInvalid     = "auth_invalid"
	OutcomeTransient       = "transient"
	OutcomeRejected        = "rejected"
)

// Request is one upstream call. Body, when set, is sent as JSON.
type Request struct {
	Method string
	URL    string
	Body   interface{}
}

// Response is a successful (2xx) upstream reply
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	FinalURL   string
}

// Executor replays the stored session against the upstream API.
// The session is loaded on every call so a fresh capture applies without a restart.
// It never retries; that decision belongs to the caller.
type Executor struct {
	store     interfaces.SessionStorage
	baseURL   *url.URL
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
	transport http.RoundTripper
	metrics   interfaces.MetricsRecorder
	logger    arbor.ILogger
}

// ExecutorOption configures the Executor.
type ExecutorOption func(*Executor)

// WithTimeout sets the per-call bound.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithUserAgent overrides the browser User-Agent header.
func WithUserAgent(userAgent string) ExecutorOption {
	return func(e *Executor) {
		if userAgent != "" {
			e.userAgent = userAgent
		}
	}
}

// WithRateLimit enforces a minimum gap between upstream calls. Zero disables limiting.
func WithRateLimit(interval time.Duration) ExecutorOption {
	return func(e *Executor) {
		if interval > 0 {
			e.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// WithTransport sets the round tripper shared by all calls.
func WithTransport(transport http.RoundTripper) ExecutorOption {
	return func(e *Executor) {
		e.transport = transport
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder interfaces.MetricsRecorder) ExecutorOption {
	return func(e *Executor) {
		if recorder != nil {
			e.metrics = recorder
		}
	}
}

// NewExecutor creates an executor for the upstream at baseURL
func NewExecutor(store interfaces.SessionStorage, baseURL string, logger arbor.ILogger, opts ...ExecutorOption) (*Executor, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", baseURL)
	}

	e := &Executor{
		store:     store,
		baseURL:   parsed,
		userAgent: defaultUserAgent,
		timeout:   DefaultTimeout,
		transport: http.DefaultTransport.(*http.Transport).Clone(),
		metrics:   metrics.NewNoopRecorder(),
		logger:    logger,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// BaseURL returns the upstream root without a trailing slash
func (e *Executor) BaseURL() string {
	return e.baseURL.String()
}

// Do performs one authenticated call and classifies the result.
// A nil error means a 2xx reply that is not a sign-in page.
// Failures are *models.UpstreamError wrapping ErrAuthInvalid, ErrTransient or ErrRequestRejected,
// or models.ErrUnauthenticated when no session is stored.
func (e *Executor) Do(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	resp, err := e.do(ctx, req)

	outcome := outcomeOf(err)
	e.metrics.RecordUpstreamRequest(req.Method, outcome, time.Since(start))

	event := e.logger.Debug()
	if err != nil && outcome != OutcomeUnauthenticated {
		event = e.logger.Warn().Err(err)
	}
	event.
		Str("method", req.Method).
		Str("url", req.URL).
		Str("outcome", outcome).
		Dur("duration", time.Since(start)).
		Msg("Upstream request")

	return resp, err
}

func (e *Executor) do(ctx context.Context, req *Request) (*Response, error) {
	session, err := e.store.Load(ctx)
	if errors.Is(err, interfaces.ErrSessionNotFound) {
		return nil, models.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	client, err := e.newClient(session)
	if err != nil {
		return nil, err
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, e.upstreamError(req, models.ErrTransient, 0, "rate limiter wait aborted", err)
		}
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := models.EncodeJSON(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	applyBrowserHeaders(httpReq, e.userAgent)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		detail := "network error"
		if errors.Is(err, context.DeadlineExceeded) {
			detail = fmt.Sprintf("timed out after %s", e.timeout)
		}
		return nil, e.upstreamError(req, models.ErrTransient, 0, detail, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, e.upstreamError(req, models.ErrTransient, resp.StatusCode, "failed to read response body", err)
	}

	finalURL := resp.Request.URL
	if detail, class := Classify(resp.StatusCode, finalURL, resp.Header.Get("Content-Type"), data); class != nil {
		return nil, e.upstreamError(req, class, resp.StatusCode, detail, nil)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		FinalURL:   finalURL.String(),
	}, nil
}

// newClient builds a client whose jar holds the session cookies.
// Cookies are grouped by domain so the jar accepts each against a matching URL;
// a cookie without a domain is scoped to the upstream host.
func (e *Executor) newClient(session *models.Session) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	cookiesByDomain := make(map[string][]*http.Cookie)
	for _, c := range session.Cookies {
		domain := strings.TrimPrefix(c.Domain, ".")
		if domain == "" {
			domain = e.baseURL.Hostname()
		}
		cookiesByDomain[domain] = append(cookiesByDomain[domain], c.ToHTTPCookie())
	}

	for domain, domainCookies := range cookiesByDomain {
		domainURL := &url.URL{Scheme: e.baseURL.Scheme, Host: domain, Path: "/"}
		jar.SetCookies(domainURL, domainCookies)
	}

	return &http.Client{
		Jar:       jar,
		Transport: e.transport,
	}, nil
}

func (e *Executor) upstreamError(req *Request, class error, status int, detail string, cause error) *models.UpstreamError {
	return &models.UpstreamError{
		Class:      class,
		Method:     req.Method,
		URL:        req.URL,
		StatusCode: status,
		Detail:     detail,
		Err:        cause,
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, models.ErrUnauthenticated):
		return OutcomeUnauthenticated
	case errors.Is(err, models.ErrAuthInvalid):
		return OutcomeAuthInvalid
	case errors.Is(err, models.ErrTransient):
		return OutcomeTransient
	default:
		return OutcomeRejected
	}
}
