package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"wikibasego/pkg/tracker"
	"wikibasego/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("wikibasego/%s (Go Wikibase client; set api.user_agent to add contact details)", version.Version)

var (
	// ErrStatus is wrapped by errors for non-retryable HTTP status codes.
	ErrStatus = errors.New("http status error")
	// ErrRetriesExceeded is returned when every attempt failed.
	ErrRetriesExceeded = errors.New("max retries exceeded")
	// ErrClosed is returned for requests made or still queued after Close.
	ErrClosed = errors.New("client closed")
)

// ClientConfig holds transport settings.
type ClientConfig struct {
	Timeout   time.Duration
	Retries   int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Gap is the pause between two requests to the same host.
	Gap       time.Duration
	UserAgent string
}

// Client performs HTTP requests one at a time per host, with retries and
// backoff. Cookies are kept across requests so session-bound tokens stay valid.
type Client struct {
	httpClient *http.Client
	tracker    *tracker.Tracker
	backoff    *HostBackoff
	cfg        ClientConfig

	// Queues per host
	queues map[string]chan job
	mu     sync.Mutex // Protects queues map

	done      chan struct{}
	closeOnce sync.Once
}

// job represents a queued request.
type job struct {
	req      *http.Request
	headers  map[string]string
	respChan chan jobResult
}

type jobResult struct {
	body []byte
	err  error
}

// New creates a new Client. A nil tracker gets a private one.
func New(t *tracker.Tracker, cfg ClientConfig) *Client {
	if t == nil {
		t = tracker.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retries < 1 {
		cfg.Retries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	// cookiejar.New only fails on invalid options.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Jar: jar},
		tracker:    t,
		backoff:    NewHostBackoff(cfg.BaseDelay, cfg.MaxDelay),
		cfg:        cfg,
		queues:     make(map[string]chan job),
		done:       make(chan struct{}),
	}
}

// Close stops the per-host workers. Callers still waiting for a response get
// ErrClosed. Close is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, u string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(ctx, req, headers)
}

// PostForm performs a POST request with an url-encoded body.
func (c *Client) PostForm(ctx context.Context, u string, form url.Values) ([]byte, error) {
	body := []byte(form.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Rewind the body for retries.
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return c.do(ctx, req, map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
}

func (c *Client) do(ctx context.Context, req *http.Request, headers map[string]string) ([]byte, error) {
	respChan := make(chan jobResult, 1)
	c.dispatch(req.URL.Host, job{req: req, headers: headers, respChan: respChan})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-respChan:
		return res.body, res.err
	case <-c.done:
		// A worker may have answered just before shutdown.
		select {
		case res := <-respChan:
			return res.body, res.err
		default:
			return nil, ErrClosed
		}
	}
}

// dispatch sends the job to the host's queue, creating the queue/worker if needed.
func (c *Client) dispatch(host string, j job) {
	select {
	case <-c.done:
		j.respChan <- jobResult{err: ErrClosed}
		return
	default:
	}

	c.mu.Lock()
	q, ok := c.queues[host]
	if !ok {
		q = make(chan job, 100)
		c.queues[host] = q
		go c.worker(host, q)
	}
	c.mu.Unlock()

	// Blocks while the queue is full, throttling the caller.
	select {
	case q <- j:
	case <-j.req.Context().Done():
		j.respChan <- jobResult{err: j.req.Context().Err()}
	case <-c.done:
		j.respChan <- jobResult{err: ErrClosed}
	}
}

// worker processes requests for a specific host sequentially until Close.
func (c *Client) worker(host string, q <-chan job) {
	for {
		var j job
		select {
		case <-c.done:
			drain(q)
			return
		case j = <-q:
		}
		select {
		case <-c.done:
			j.respChan <- jobResult{err: ErrClosed}
			continue
		default:
		}

		if j.req.Context().Err() != nil {
			slog.Warn("Job dropped from queue (context expired)", "host", host, "error", j.req.Context().Err())
			j.respChan <- jobResult{err: j.req.Context().Err()}
			continue
		}

		uaSet := false
		for k, v := range j.headers {
			j.req.Header.Set(k, v)
			if http.CanonicalHeaderKey(k) == "User-Agent" {
				uaSet = true
			}
		}
		if !uaSet {
			j.req.Header.Set("User-Agent", c.cfg.UserAgent)
		}

		var body []byte
		err := c.backoff.Wait(j.req.Context(), host)
		if err == nil {
			body, err = c.executeWithBackoff(j.req)
		}
		if err == nil {
			c.backoff.Success(host)
			c.tracker.TrackSuccess(host)
		} else {
			c.tracker.TrackFailure(host)
		}

		j.respChan <- jobResult{body: body, err: err}

		if c.cfg.Gap > 0 {
			select {
			case <-time.After(c.cfg.Gap):
			case <-c.done:
			}
		}
	}
}

// drain fails every job still waiting in q.
func drain(q <-chan job) {
	for {
		select {
		case j := <-q:
			j.respChan <- jobResult{err: ErrClosed}
		default:
			return
		}
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status < 600)
}

// executeWithBackoff attempts the request with exponential backoff on retryable errors.
func (c *Client) executeWithBackoff(req *http.Request) ([]byte, error) {
	host := req.URL.Host
	for attempt := 0; attempt < c.cfg.Retries; attempt++ {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to rewind body: %w", err)
			}
			req.Body = body
		}

		slog.Debug("Network Request", "host", host, "path", req.URL.Path, "attempt", attempt+1)
		resp, err := c.httpClient.Do(req)

		if err != nil {
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}
			slog.Warn("Request failed, retrying", "host", host, "attempt", attempt+1, "error", err)
		} else {
			if !retryable(resp.StatusCode) {
				body, readErr := io.ReadAll(resp.Body)
				resp.Body.Close()
				if resp.StatusCode >= 400 {
					return nil, fmt.Errorf("%w: status %d", ErrStatus, resp.StatusCode)
				}
				if readErr != nil {
					return nil, fmt.Errorf("read error: %w", readErr)
				}
				return body, nil
			}
			resp.Body.Close()
			slog.Warn("API Backoff", "status", resp.StatusCode, "host", host, "attempt", attempt+1)
		}

		c.backoff.Failure(host)
		if attempt+1 < c.cfg.Retries {
			if err := c.backoff.Wait(req.Context(), host); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("%w for %s", ErrRetriesExceeded, host)
}
