// Package fetcher retrieves a single feed endpoint and normalizes its entries.
package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"newsroom/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/mmcdole/gofeed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	fetchAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsroom_fetch_attempts_total",
		Help: "The total number of feed fetch attempts, retries included",
	})

	fetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsroom_fetch_errors_total",
		Help: "The total number of failed feed fetch attempts by reason",
	}, []string{"reason"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsroom_fetch_duration_seconds",
		Help:    "Duration of successful feed fetches including parsing",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // Start at 50ms, double each bucket
	})
)

const (
	DefaultUserAgent     = "newsroom/0.1 (+https://example.com)"
	DefaultTimeout       = 20 * time.Second
	DefaultRetries       = 2
	DefaultRetryInterval = 2 * time.Second

	maxFeedSize = 10 * 1024 * 1024 // 10MB
)

// ErrBadStatus is wrapped by errors for non-2xx responses
var ErrBadStatus = errors.New("unexpected response status")

// Config holds the settings for fetching feeds
type Config struct {
	// Timeout bounds a single attempt, request and body included
	Timeout   time.Duration
	UserAgent string
	// Retries is the number of extra attempts for transient failures
	Retries       uint64
	RetryInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout:       DefaultTimeout,
		UserAgent:     DefaultUserAgent,
		Retries:       DefaultRetries,
		RetryInterval: DefaultRetryInterval,
	}
}

// FetchError is returned when a source cannot be fetched or parsed
type FetchError struct {
	Source string
	Url    string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Source, e.Url, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Fetcher struct {
	config     Config
	client     *http.Client
	normalizer *Normalizer
}

func New(config Config) *Fetcher {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = DefaultRetryInterval
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: (&net.Dialer{
			Timeout:   config.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: config.Timeout,
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		normalizer: NewNormalizer(),
	}
}

// Fetch retrieves the source feed and returns its valid, normalized entries.
// Any failure fails the whole source and no items are returned.
func (f *Fetcher) Fetch(ctx context.Context, source models.Source) ([]models.RawItem, error) {
	feed, err := f.fetchFeed(ctx, source.Url)
	if err != nil {
		return nil, &FetchError{Source: source.Name, Url: source.Url, Err: err}
	}

	items := f.normalizer.Items(feed, source)

	log.WithFields(log.Fields{
		"source":  source.Name,
		"entries": len(feed.Items),
		"items":   len(items),
	}).Debug("Fetched feed")

	return items, nil
}

// CheckResult describes a feed as seen by Check
type CheckResult struct {
	Title    string `json:"title"`
	FeedType string `json:"feed_type"`
	Entries  int    `json:"entries"`
	Items    int    `json:"items"`
}

// Check fetches a source and reports what it contains without storing anything
func (f *Fetcher) Check(ctx context.Context, source models.Source) (CheckResult, error) {
	feed, err := f.fetchFeed(ctx, source.Url)
	if err != nil {
		return CheckResult{}, &FetchError{Source: source.Name, Url: source.Url, Err: err}
	}

	return CheckResult{
		Title:    feed.Title,
		FeedType: feed.FeedType,
		Entries:  len(feed.Items),
		Items:    len(f.normalizer.Items(feed, source)),
	}, nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.config.RetryInterval
	bo.MaxInterval = 30 * time.Second
	bo.Multiplier = 2

	operation := func() (*gofeed.Feed, error) {
		return f.fetchOnce(ctx, url)
	}

	notify := func(err error, wait time.Duration) {
		log.WithFields(log.Fields{
			"url":   url,
			"error": err,
			"wait":  wait,
		}).Warn("Feed fetch failed, retrying")
	}

	return backoff.RetryNotifyWithData[*gofeed.Feed](operation, backoff.WithContext(backoff.WithMaxRetries(bo, f.config.Retries), ctx), notify)
}

// fetchOnce performs a single attempt. Errors that retrying cannot fix are
// marked permanent.
func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*gofeed.Feed, error) {
	fetchAttempts.Inc()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		fetchErrors.WithLabelValues("request").Inc()
		return nil, backoff.Permanent(fmt.Errorf("invalid request: %w", err))
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		fetchErrors.WithLabelValues("network").Inc()
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fetchErrors.WithLabelValues("status").Inc()
		err := fmt.Errorf("%w: %d %s", ErrBadStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	// gofeed.Parser lazily sets its translators, so it is not shared between goroutines
	feed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		if ctx.Err() != nil {
			fetchErrors.WithLabelValues("network").Inc()
			return nil, fmt.Errorf("reading feed: %w", err)
		}
		fetchErrors.WithLabelValues("parse").Inc()
		return nil, backoff.Permanent(fmt.Errorf("failed to parse feed: %w", err))
	}

	fetchDuration.Observe(time.Since(start).Seconds())
	return feed, nil
}
