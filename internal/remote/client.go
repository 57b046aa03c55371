// Package remote is the HTTP client for the marketplace API, the service of
// record for orders, payments and wishlists.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/fjod/go_cart/marketplace-client/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const maxErrorBody = 64 << 10

// TokenSource supplies the bearer token of the current session.
type TokenSource interface {
	Token() (string, bool)
}

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	RateBurst int
	Breaker   circuitbreaker.Config
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	breaker *circuitbreaker.Breaker
	log     *slog.Logger
}

func New(cfg Config, tokens TokenSource, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tokens:  tokens,
		limiter: limiter,
		breaker: circuitbreaker.New("marketplace-api", cfg.Breaker, breakerSuccess, log),
		log:     log,
	}
}

// breakerSuccess keeps answers the server chose to give (4xx) and caller side
// aborts from tripping the breaker.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrNoSession) {
		return true
	}
	var re *domain.RemoteError
	return errors.As(err, &re) && re.IsClientError()
}

type request struct {
	op     string
	method string
	path   string
	body   any
	header http.Header
	public bool
	decode any
}

func (c *Client) do(ctx context.Context, r request) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &domain.RemoteError{Op: r.op, Err: err}
	}

	err := c.breaker.Execute(func() error {
		return c.roundTrip(ctx, r)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return &domain.RemoteError{Op: r.op, Err: err}
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, r request) error {
	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", r.op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.header {
		req.Header[k] = v
	}
	if !r.public {
		token, ok := c.tokens.Token()
		if !ok {
			return domain.ErrNoSession
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.RemoteError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	c.log.DebugContext(ctx, "remote call",
		"op", r.op,
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.RemoteError{
			Op:         r.op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	if r.decode == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.decode); err != nil {
		return &domain.RemoteError{
			Op:         r.op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

// errorMessage extracts {"message": "..."} from an error body.
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// BreakerState exposes the breaker for health reporting.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}
