// Package ledger is the HTTP client for the remote node's account API. The
// daemon only reads one thing from it: the latest confirmed sequence number
// per account.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	defaultRequestTimeout = 5 * time.Second
	defaultFetchAttempts  = 3
	defaultRetryDelay     = 200 * time.Millisecond
	maxAccountBodyBytes   = 64 << 10
)

type Config struct {
	// BaseURL points at the node, e.g. "http://127.0.0.1:9090".
	BaseURL string
	// RequestTimeout bounds each HTTP attempt.
	RequestTimeout time.Duration
	// FetchAttempts is the retry budget per fetch, transient errors only.
	FetchAttempts uint
	// FetchRPS / FetchBurst rate-limit outbound fetches so reconciliation
	// polling across many accounts cannot hammer the node. Zero disables.
	FetchRPS   float64
	FetchBurst int
}

type Client struct {
	baseURL  string
	http     *http.Client
	attempts uint
	limiter  *rate.Limiter
	logger   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("node base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid node base URL: %w", err)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	attempts := cfg.FetchAttempts
	if attempts == 0 {
		attempts = defaultFetchAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if cfg.FetchRPS > 0 && cfg.FetchBurst > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.FetchRPS), cfg.FetchBurst)
	}
	return &Client{
		baseURL:  base,
		http:     &http.Client{Timeout: timeout},
		attempts: attempts,
		limiter:  limiter,
		logger:   logger,
	}, nil
}

type accountResponse struct {
	Address      string `json:"address"`
	ConfirmedSeq string `json:"confirmed_seq"`
}

// ConfirmedSeq returns the latest sequence number the node has confirmed for
// the account. Transient transport and 5xx failures are retried within the
// configured budget; a missing account and malformed responses are not.
func (c *Client) ConfirmedSeq(ctx context.Context, address string) (uint64, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return 0, &FetchError{Address: address, Err: errors.New("address is required")}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, &FetchError{Address: address, Err: err}
		}
	}

	var seq uint64
	err := retry.Do(
		func() error {
			var attemptErr error
			seq, attemptErr = c.fetchOnce(ctx, address)
			return attemptErr
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(defaultRetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("account fetch retry",
				"component", "ledger",
				"address", address,
				"attempt", n+1,
				"error", err.Error())
		}),
	)
	if err != nil {
		return 0, &FetchError{Address: address, Err: err}
	}
	return seq, nil
}

func (c *Client) fetchOnce(ctx context.Context, address string) (uint64, error) {
	endpoint := c.baseURL + "/v1/accounts/" + url.PathEscape(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return 0, retry.Unrecoverable(ErrAccountNotFound)
	case resp.StatusCode >= 500:
		return 0, fmt.Errorf("node returned status %d", resp.StatusCode)
	default:
		return 0, retry.Unrecoverable(fmt.Errorf("node returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAccountBodyBytes))
	if err != nil {
		return 0, err
	}
	var parsed accountResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, retry.Unrecoverable(fmt.Errorf("decode account response: %w", err))
	}
	seq, err := strconv.ParseUint(strings.TrimSpace(parsed.ConfirmedSeq), 10, 64)
	if err != nil {
		return 0, retry.Unrecoverable(fmt.Errorf("invalid confirmed_seq %q: %w", parsed.ConfirmedSeq, err))
	}
	return seq, nil
}
