// Package retry wraps feed operations with bounded retries and
// exponential backoff. Transient failures (timeouts, resets, rate
// limits) are retried; anything else returns immediately.
package retry

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"math/big"
	"strings"
	"time"
)

type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
}

var DefaultConfig = Config{
	MaxRetries:     3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	Timeout:        2 * time.Minute,
}

// Op is one retryable unit of work.
type Op func(ctx context.Context) error

type Client struct {
	logger *log.Logger
	config Config
}

// NewClient builds a retry client. A nil logger discards output and
// non-positive config values fall back to DefaultConfig.
func NewClient(logger *log.Logger, config ...Config) *Client {
	cfg := DefaultConfig
	if len(config) > 0 {
		cfg = sanitizeConfig(config[0])
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Client{
		logger: logger,
		config: cfg,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultConfig.MaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultConfig.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultConfig.MaxBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig.Timeout
	}
	return cfg
}

// Do runs op until it succeeds, fails permanently, or the attempt
// budget is spent. The name appears in logs and wrapped errors.
func (c *Client) Do(ctx context.Context, name string, op Op) error {
	opCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var lastErr error
	backoff := c.config.InitialBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}

		select {
		case <-opCtx.Done():
			return fmt.Errorf("%s timed out after %v: %w", name, c.config.Timeout, opCtx.Err())
		default:
		}

		c.logger.Printf("%s attempt %d/%d", name, attempt+1, c.config.MaxRetries+1)

		err := op(opCtx)
		if err == nil {
			if attempt > 0 {
				c.logger.Printf("%s succeeded on attempt %d", name, attempt+1)
			}
			return nil
		}

		lastErr = err
		c.logger.Printf("%s attempt %d failed: %v", name, attempt+1, err)

		if c.isTransientError(err) && attempt < c.config.MaxRetries {
			c.logger.Printf("Transient error detected, retrying in %v", backoff)
			select {
			case <-time.After(backoff):
				backoff = c.calculateNextBackoff(backoff)
			case <-opCtx.Done():
				return fmt.Errorf("%s timed out during backoff: %w", name, opCtx.Err())
			case <-ctx.Done():
				return fmt.Errorf("operation canceled during backoff: %w", ctx.Err())
			}
		} else {
			break
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, c.config.MaxRetries+1, lastErr)
}

// DoValue runs op through c and returns its typed result. Methods
// cannot take type parameters, so this is a package function.
func DoValue[T any](ctx context.Context, c *Client, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := c.Do(ctx, name, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (c *Client) calculateNextBackoff(currentBackoff time.Duration) time.Duration {
	backoff := time.Duration(float64(currentBackoff) * 1.5)
	if backoff > c.config.MaxBackoff {
		backoff = c.config.MaxBackoff
	}

	maxJitter := int64(backoff / 4)
	if maxJitter > 0 {
		jitterVal, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
		if err != nil {
			log.Printf("Failed to generate jitter: %v", err)
		} else {
			jitter := time.Duration(jitterVal.Int64())
			backoff += jitter
		}
	}

	return backoff
}

func (c *Client) isTransientError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	transientPatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"server error",
		"rate limit",
		"429", // HTTP 429 Too Many Requests
		"502", // HTTP 502 Bad Gateway
		"503", // HTTP 503 Service Unavailable
		"504", // HTTP 504 Gateway Timeout
		"network",
		"dns",
		"tcp",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
