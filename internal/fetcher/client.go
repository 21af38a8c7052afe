// Package fetcher is the REST Fetcher (C2): a single-host HTTP client with
// timeout, bounded exponential backoff + jitter on retryable failures, and
// token-bucket rate limiting, exposing the three typed read operations
// spec.md §4.2 names.
package fetcher

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/uharev-ux/dex-dump-screener/pkg/logger"
)

// Config mirrors the constants original_source/config.py hard-codes for the
// default (collection) profile; the CLI's "check" command uses a second,
// stricter Config built the same way (see CheckConfig).
type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	Chain          string        `mapstructure:"chain"`
	TimeoutSec     float64       `mapstructure:"timeout_sec"`
	MaxRetries     int           `mapstructure:"max_retries"`
	BackoffBaseSec float64       `mapstructure:"backoff_base_sec"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
}

// DefaultConfig mirrors original_source/dexscreener_screener/config.py's
// BASE_URL / DEFAULT_* constants.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.dexscreener.com",
		Chain:          "solana",
		TimeoutSec:     10.0,
		MaxRetries:     4,
		BackoffBaseSec: 0.5,
		RateLimitRPS:   3.0,
	}
}

// CheckConfig mirrors original_source's CHECK_* constants, used only by the
// CLI's "check" smoke-test subcommand.
func CheckConfig() Config {
	cfg := DefaultConfig()
	cfg.TimeoutSec = 15.0
	cfg.MaxRetries = 2
	cfg.RateLimitRPS = 2.0
	return cfg
}

const (
	pairsChunkSize  = 20
	tokensChunkSize = 30
	jitterMaxSec    = 0.2
)

// Fetcher is a single-host REST client. It is not safe for use by more than
// one goroutine at a time: its rate limiter's last-request state is
// deliberately process-local, unshared, un-ambient (spec.md §9).
type Fetcher struct {
	cfg     Config
	http    *resty.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// New builds a Fetcher bound to cfg.BaseURL.
func New(cfg Config) *Fetcher {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSec * float64(time.Second))).
		SetHeader("Accept", "application/json")

	return &Fetcher{
		cfg:     cfg,
		http:    client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1),
		log:     logger.Default().Named("fetcher"),
	}
}

// retryableStatus reports whether an HTTP status code should be retried:
// 429 and any 5xx are retryable, other 4xx are not (spec.md §4.2).
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// get performs one rate-limited, retried GET against path and returns the
// raw response body. The retry/backoff contract is our own, not resty's
// built-in retrier, so it matches spec.md §4.2 exactly: delay_i =
// backoff_base * 2^i + jitter, jitter uniform in [0, 0.2s), up to
// max_retries attempts.
func (f *Fetcher) get(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < f.cfg.MaxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limiter wait")
		}

		resp, err := f.http.R().SetContext(ctx).Get(path)
		if err == nil && !retryableStatus(resp.StatusCode()) {
			if resp.IsError() {
				return nil, errors.Errorf("non-retryable status %d for %s", resp.StatusCode(), path)
			}
			return resp.Body(), nil
		}

		if err != nil {
			lastErr = errors.Wrapf(err, "request %s", path)
		} else {
			lastErr = errors.Errorf("retryable status %d for %s", resp.StatusCode(), path)
		}

		if attempt == f.cfg.MaxRetries-1 {
			break
		}
		delay := time.Duration(f.cfg.BackoffBaseSec*float64(time.Second)*float64(int64(1)<<uint(attempt))) +
			time.Duration(rand.Float64()*jitterMaxSec*float64(time.Second))
		f.log.Warn("retrying fetch",
			logger.String("path", path),
			logger.Int("attempt", attempt+1),
			logger.FieldErr(lastErr),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, errors.Wrap(lastErr, "exhausted retries")
}

func chunk(items []string, size int) [][]string {
	var chunks [][]string
	for size > 0 && len(items) > 0 {
		if len(items) < size {
			size = len(items)
		}
		chunks = append(chunks, items[:size])
		items = items[size:]
	}
	return chunks
}

func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += item
	}
	return out
}
