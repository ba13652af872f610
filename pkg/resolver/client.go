package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/freightops/afrmm/pkg/money"
)

// ErrDuplicateQuery is returned when the lookup API rejects a call as
// a repeat of a recent query for the same CE. Each accepted call is
// billed, so the API enforces a dedupe window server-side.
var ErrDuplicateQuery = errors.New("duplicate query rejected by lookup API")

// Valuation is the lookup API's answer for a CE. The Has* flags
// distinguish an explicit false/zero from an absent field; responses
// missing both amount and paid flag must never be read as "paid".
type Valuation struct {
	AmountDue   money.Centavos
	HasAmount   bool
	Paid        bool
	HasPaidFlag bool
}

// Client calls the billed Mercante valuation endpoint. Calls are
// rate-limited locally so a burst of previews cannot run up charges.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures the lookup client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the maximum sustained request rate.
func WithRateLimit(perMinute int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

// NewClient creates a lookup client for the given endpoint.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(6*time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// valuationResponse mirrors the API payload. Pointer fields so an
// absent key is distinguishable from an explicit value.
type valuationResponse struct {
	Valor *string `json:"valor"`
	Pago  *bool   `json:"pago"`
	Erro  string  `json:"erro,omitempty"`
}

// GetValueAndStatus queries the amount due and paid status for a CE.
func (c *Client) GetValueAndStatus(ctx context.Context, ceNumber string) (*Valuation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/ce/%s/valor", c.baseURL, url.PathEscape(ceNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusTooManyRequests, http.StatusConflict:
		return nil, ErrDuplicateQuery
	case http.StatusNotFound:
		return nil, fmt.Errorf("CE %s not found at lookup API", ceNumber)
	default:
		return nil, fmt.Errorf("lookup API returned status %d", resp.StatusCode)
	}

	var payload valuationResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}
	if payload.Erro == "consulta duplicada" {
		return nil, ErrDuplicateQuery
	}

	v := &Valuation{}
	if payload.Pago != nil {
		v.Paid = *payload.Pago
		v.HasPaidFlag = true
	}
	if payload.Valor != nil {
		amount, err := money.ParseBRL(*payload.Valor)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", *payload.Valor, err)
		}
		v.AmountDue = amount
		v.HasAmount = true
	}
	return v, nil
}
