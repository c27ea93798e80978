// Package remote talks to the external coefficient, pricing and account service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/pricing"
	"github.com/noah-isme/jwfoods/internal/resilience"
)

// Doer executes an outbound request. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// User is the account profile returned by the login endpoint.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Registration is the payload accepted by the register endpoint.
type Registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Breaker targets for the two upstream concerns.
const (
	TargetPricing  = "pricing_api"
	TargetAccounts = "accounts_api"
)

// endpoint describes one upstream route. Only idempotent pricing reads are retried; login,
// registration and coefficient updates are sent once and the user resubmits on failure.
type endpoint struct {
	method     string
	path       string
	accounts   bool
	idempotent bool
}

var (
	calculateEndpoint    = endpoint{method: http.MethodPost, path: "/api/calculate", idempotent: true}
	getCoeffsEndpoint    = endpoint{method: http.MethodGet, path: "/api/coefficients", idempotent: true}
	putCoeffsEndpoint    = endpoint{method: http.MethodPut, path: "/api/coefficients"}
	loginEndpoint        = endpoint{method: http.MethodPost, path: "/api/login", accounts: true}
	registrationEndpoint = endpoint{method: http.MethodPost, path: "/api/register", accounts: true}
)

// Client is a typed wrapper over the external service endpoints.
type Client struct {
	baseURL  string
	pricing  Doer
	accounts Doer
}

// Option customises a Client.
type Option func(*Client)

// WithAccounts sends login and registration through doer, typically guarded by its own
// breaker so a pricing outage cannot refuse sign-ins.
func WithAccounts(doer Doer) Option {
	return func(c *Client) { c.accounts = doer }
}

// New constructs a client rooted at baseURL. Without WithAccounts every endpoint shares doer.
func New(baseURL string, doer Doer, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), pricing: doer, accounts: doer}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClient returns an instrumented http.Client for the external service.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Name implements pricing.Source.
func (c *Client) Name() string { return "remote" }

// QuoteDelivery implements pricing.Source via POST /api/calculate.
func (c *Client) QuoteDelivery(ctx context.Context, distance, weight float64) (float64, error) {
	var out struct {
		Price *float64 `json:"price"`
	}
	in := map[string]float64{"distance": distance, "weight": weight}
	if err := c.call(ctx, calculateEndpoint, in, &out); err != nil {
		return 0, err
	}
	if out.Price == nil {
		return 0, common.NewRemoteError("calculate response missing price", nil)
	}
	return *out.Price, nil
}

// GetCoefficients implements pricing.CoefficientReader via GET /api/coefficients.
func (c *Client) GetCoefficients(ctx context.Context) (pricing.Coefficients, error) {
	var out pricing.Coefficients
	if err := c.call(ctx, getCoeffsEndpoint, nil, &out); err != nil {
		return pricing.Coefficients{}, err
	}
	if out.DistanceCoefficient == 0 && out.WeightCoefficient == 0 {
		return pricing.Coefficients{}, common.NewRemoteError("coefficients not configured", nil)
	}
	return out, nil
}

// UpdateCoefficients implements pricing.CoefficientWriter via PUT /api/coefficients.
func (c *Client) UpdateCoefficients(ctx context.Context, in pricing.Coefficients) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.call(ctx, putCoeffsEndpoint, in, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Login exchanges credentials for the account profile.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var out struct {
		User *User `json:"user"`
	}
	in := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, loginEndpoint, in, &out); err != nil {
		return User{}, err
	}
	if out.User == nil {
		return User{}, common.NewRemoteError("login response missing user", nil)
	}
	return *out.User, nil
}

// Register creates an account and returns the service's confirmation message.
func (c *Client) Register(ctx context.Context, in Registration) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.call(ctx, registrationEndpoint, in, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Ping checks that the service answers the coefficient endpoint. Pings are single-attempt and
// bypass the breaker so health checks never open the circuit.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetCoefficients(resilience.Unguarded(resilience.NoRetry(ctx)))
	return err
}

func (c *Client) call(ctx context.Context, ep endpoint, in, out any) error {
	method, path := ep.method, ep.path
	doer, unavailable := c.pricing, "pricing service unavailable"
	if ep.accounts {
		doer, unavailable = c.accounts, "account service unavailable"
	}
	if !ep.idempotent {
		ctx = resilience.NoRetry(ctx)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := doer.Do(ctx, req)
	if err != nil {
		var statusErr *resilience.StatusError
		if errors.As(err, &statusErr) {
			return common.NewRemoteError(messageFrom(statusErr.Body, statusErr.Status), err)
		}
		return common.NewRemoteError(unavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return common.NewRemoteError("read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &common.AppError{
			Code:       common.CodeRemote,
			Message:    messageFrom(data, resp.Status),
			HTTPStatus: upstreamStatus(resp.StatusCode),
		}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return common.NewRemoteError("decode response", err)
	}
	return nil
}

// messageFrom extracts the service's {"error": "..."} text.
func messageFrom(body []byte, fallback string) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
	}
	return fallback
}

// upstreamStatus keeps 4xx answers (bad credentials, duplicate email) visible to clients and
// folds everything else into 502.
func upstreamStatus(code int) int {
	if code >= 400 && code < 500 {
		return code
	}
	return http.StatusBadGateway
}
