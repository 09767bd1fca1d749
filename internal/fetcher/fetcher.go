package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

// Default values used when no option overrides them.
const (
	defaultTimeout     = 10 * time.Second
	defaultUserAgent   = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	defaultMaxBodySize = 5 * 1024 * 1024
)

// Fetcher downloads pages with a per-request timeout.
// It is safe for concurrent use.
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
	limiter     *rate.Limiter
	logger      *slog.Logger

	proxyAddress string
	cookie       string
	headers      map[string]string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout applied to each request.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per response.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithRateLimit limits requests to rps per second across all callers.
// Zero or a negative value disables the limit.
func WithRateLimit(rps float64) Option {
	return func(f *Fetcher) {
		if rps > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			f.limiter = nil
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithProxy routes all requests through the SOCKS5 proxy at addr.
func WithProxy(addr string) Option {
	return func(f *Fetcher) {
		f.proxyAddress = addr
	}
}

// WithCookie sends cookie as the Cookie header of every request.
func WithCookie(cookie string) Option {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithHTTPClient replaces the HTTP client. Proxy, cookie and header options
// are still applied on top of its transport.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// New creates a Fetcher.
func New(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:     defaultTimeout,
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}

	client, err := f.buildClient()
	if err != nil {
		return nil, err
	}
	f.client = client

	return f, nil
}

// buildClient assembles the HTTP client from the configured options.
func (f *Fetcher) buildClient() (*http.Client, error) {
	var base http.Client
	if f.client != nil {
		base = *f.client
	}

	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	if f.proxyAddress != "" {
		t, err := socksTransport(f.proxyAddress)
		if err != nil {
			return nil, err
		}
		transport = t
	}

	if f.cookie != "" || len(f.headers) > 0 {
		transport = &headerInjectingTransport{
			base:    transport,
			cookie:  f.cookie,
			headers: f.headers,
		}
	}

	base.Transport = transport
	base.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &base, nil
}

// socksTransport returns a transport dialing through a SOCKS5 proxy.
func socksTransport(addr string) (*http.Transport, error) {
	if !isValidProxyAddress(addr) {
		return nil, ErrInvalidProxyAddress
	}

	dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	t := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	t.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		t.DialContext = cd.DialContext
	} else {
		t.DialContext = func(_ context.Context, network, address string) (net.Conn, error) {
			return dialer.Dial(network, address)
		}
	}
	return t, nil
}

// isValidProxyAddress checks for "host:port" with a port between 1 and 65535.
func isValidProxyAddress(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// Fetch downloads pageURL and returns the response body whatever the status
// code. If the request times out it returns a nil body and a nil error.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if pageURL == "" {
		return nil, ErrEmptyURL
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, status, err := f.get(reqCtx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isTimeout(err) {
			f.logger.Info("timeout while fetching page", "url", pageURL, "timeout", f.timeout)
			return nil, nil
		}
		return nil, err
	}

	f.logger.Debug("page fetched", "url", pageURL, "status", status, "bytes", len(body))
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, pageURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "it-IT,it;q=0.9,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// isTimeout reports whether err comes from an expired deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// headerInjectingTransport adds a cookie and custom headers to every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
