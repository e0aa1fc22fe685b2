package rss

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mmcdole/gofeed"

	"feed_syncer/internal/domain"
)

// Config holds feed fetching configuration.
type Config struct {
	Timeout        time.Duration
	UserAgent      string
	MaxBodyBytes   int64
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	FallbackHosts  []string
	FallbackTitle  string
}

// Parser fetches feed documents over HTTP and normalizes them.
type Parser struct {
	httpClient     *http.Client
	userAgent      string
	maxBodyBytes   int64
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	fallback       fallbackPolicy
	now            func() time.Time
	logger         *slog.Logger
}

// New creates a new feed parser.
func New(cfg Config, logger *slog.Logger) *Parser {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Parser{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent:      cfg.UserAgent,
		maxBodyBytes:   cfg.MaxBodyBytes,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		fallback:       newFallbackPolicy(cfg.FallbackHosts, cfg.FallbackTitle),
		now:            time.Now,
		logger:         logger.With("component", "parser"),
	}
}

// Parse fetches feedURL and returns its normalized document. Failures wrap
// domain.ErrFetch or domain.ErrFormat.
func (p *Parser) Parse(ctx context.Context, feedURL string) (*domain.Document, error) {
	base, err := parseFeedURL(feedURL)
	if err != nil {
		return nil, err
	}

	body, err := p.fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	doc, err := p.parseDocument(body, base)
	if err != nil {
		if p.fallback.applies(base) {
			p.logger.Warn("feed unparseable, using fallback entry",
				"feed_url", feedURL,
				"error", err,
			)
			return p.fallback.document(base, p.now()), nil
		}
		return nil, err
	}

	return doc, nil
}

func parseFeedURL(feedURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(feedURL))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url %q: %v", domain.ErrFetch, feedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported url scheme %q", domain.ErrFetch, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: url %q has no host", domain.ErrFetch, feedURL)
	}
	return u, nil
}

func (p *Parser) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	var body []byte

	operation := func() error {
		b, err := p.doRequest(ctx, feedURL)
		if err != nil {
			return err
		}
		body = b
		return nil
	}

	notify := func(err error, wait time.Duration) {
		p.logger.Warn("request failed, retrying",
			"feed_url", feedURL,
			"backoff", wait,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, p.newBackOff(ctx), notify); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}

	return body, nil
}

func (p *Parser) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.initialBackoff
	exp.MaxInterval = p.maxBackoff
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.maxAttempts-1)), ctx)
}

func (p *Parser) doRequest(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if isPermanentNetError(err) {
			return nil, backoff.Permanent(fmt.Errorf("execute request: %w", err))
		}
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("unexpected status: %d", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	reader := io.Reader(resp.Body)
	if p.maxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, p.maxBodyBytes+1)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if p.maxBodyBytes > 0 && int64(len(body)) > p.maxBodyBytes {
		return nil, backoff.Permanent(fmt.Errorf("body exceeds %d bytes", p.maxBodyBytes))
	}

	return body, nil
}

// isPermanentNetError reports failures that a retry cannot fix, such as an
// unknown host.
func isPermanentNetError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound
	}
	return false
}

func (p *Parser) parseDocument(body []byte, base *url.URL) (doc *domain.Document, err error) {
	// gofeed panics on a handful of pathological inputs; treat them as malformed.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: parser panic: %v", domain.ErrFormat, r)
		}
	}()

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFormat, err)
	}

	return p.normalize(feed, base)
}
