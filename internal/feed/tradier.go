package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eddiefleurent/strangle-signals/internal/chain"
)

// Market clock state constants
const (
	marketStateOpen       = "open"
	marketStatePreMarket  = "premarket"
	marketStatePostMarket = "postmarket"
)

// defaultWindowDays bounds how far ahead Snapshot pulls expirations.
const defaultWindowDays = 60

// APIError represents an API error with status code and response body
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// TradierClient pulls quotes and option chains from the Tradier market
// data API. It only touches read endpoints, so a read-only access token
// is enough.
type TradierClient struct {
	client     *http.Client
	apiKey     string
	baseURL    string
	sandbox    bool
	windowDays int
}

// NewTradierClient creates a market data client with default settings.
func NewTradierClient(apiKey string, sandbox bool) *TradierClient {
	baseURL := "https://api.tradier.com/v1"
	if sandbox {
		baseURL = "https://sandbox.tradier.com/v1"
	}

	return &TradierClient{
		client:     &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		baseURL:    baseURL,
		sandbox:    sandbox,
		windowDays: defaultWindowDays,
	}
}

// WithHTTPClient allows overriding the HTTP client (tests, custom transport).
func (t *TradierClient) WithHTTPClient(c *http.Client) *TradierClient {
	if c != nil {
		t.client = c
	}
	return t
}

// WithBaseURL points the client at a different host (tests, proxies).
func (t *TradierClient) WithBaseURL(baseURL string) *TradierClient {
	if baseURL != "" {
		t.baseURL = strings.TrimRight(baseURL, "/")
	}
	return t
}

// WithWindow bounds how many days ahead Snapshot looks for expirations.
func (t *TradierClient) WithWindow(days int) *TradierClient {
	if days > 0 {
		t.windowDays = days
	}
	return t
}

// ============ API Response Structures ============

// Handle single-object vs array responses from Tradier
type singleOrArray[T any] []T

func (s *singleOrArray[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '[' {
		return json.Unmarshal(b, (*[]T)(s))
	}
	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*s = append(*s, one)
	return nil
}

type optionChainResponse struct {
	Options struct {
		Option singleOrArray[apiOption] `json:"option"`
	} `json:"options"`
}

type apiOption struct {
	Greeks         *apiGreeks `json:"greeks,omitempty"`
	Symbol         string     `json:"symbol"`
	OptionType     string     `json:"option_type"`
	ExpirationDate string     `json:"expiration_date"`
	Underlying     string     `json:"underlying"`
	Bid            float64    `json:"bid"`
	Ask            float64    `json:"ask"`
	Last           float64    `json:"last"`
	Volume         int64      `json:"volume"`
	OpenInterest   int64      `json:"open_interest"`
	Strike         float64    `json:"strike"`
}

type apiGreeks struct {
	UpdatedAt string  `json:"updated_at"`
	Delta     float64 `json:"delta"`
	Gamma     float64 `json:"gamma"`
	Theta     float64 `json:"theta"`
	Vega      float64 `json:"vega"`
	MidIV     float64 `json:"mid_iv"`
}

type expirationsResponse struct {
	Expirations struct {
		Date []string `json:"date"`
	} `json:"expirations"`
}

// MarketClockResponse represents the market clock response from the Tradier API.
type MarketClockResponse struct {
	Clock struct {
		Date        string `json:"date"`
		Description string `json:"description"`
		State       string `json:"state"`
		Timestamp   int64  `json:"timestamp"`
		NextChange  string `json:"next_change"`
		NextState   string `json:"next_state"`
	} `json:"clock"`
}

// ============ API Methods ============

// Expirations retrieves available option expiration dates for an underlying.
func (t *TradierClient) Expirations(ctx context.Context, underlying string) ([]time.Time, error) {
	params := url.Values{}
	params.Set("symbol", underlying)
	params.Set("includeAllRoots", "true")
	params.Set("strikes", "false")
	endpoint := t.baseURL + "/markets/options/expirations?" + params.Encode()

	var response expirationsResponse
	if err := t.makeRequestCtx(ctx, "GET", endpoint, nil, &response); err != nil {
		return nil, err
	}

	out := make([]time.Time, 0, len(response.Expirations.Date))
	for _, d := range response.Expirations.Date {
		exp, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, fmt.Errorf("bad expiration %q from provider: %w", d, err)
		}
		out = append(out, exp)
	}
	return out, nil
}

// Chain retrieves contracts for one expiration, stamped with asOf as
// the quote time. Contracts without greeks are dropped since they
// cannot be delta-filtered.
func (t *TradierClient) Chain(ctx context.Context, underlying string, expiration, asOf time.Time) ([]chain.Contract, error) {
	params := url.Values{}
	params.Set("symbol", underlying)
	params.Set("expiration", expiration.Format("2006-01-02"))
	params.Set("greeks", "true")
	endpoint := t.baseURL + "/markets/options/chains?" + params.Encode()

	var response optionChainResponse
	if err := t.makeRequestCtx(ctx, "GET", endpoint, nil, &response); err != nil {
		return nil, err
	}

	contracts := make([]chain.Contract, 0, len(response.Options.Option))
	for _, opt := range response.Options.Option {
		if opt.Greeks == nil {
			continue
		}
		exp := expiration
		if opt.ExpirationDate != "" {
			parsed, err := time.Parse("2006-01-02", opt.ExpirationDate)
			if err != nil {
				return nil, fmt.Errorf("bad expiration %q from provider: %w", opt.ExpirationDate, err)
			}
			exp = parsed
		}
		contracts = append(contracts, chain.Contract{
			Symbol:       opt.Symbol,
			Underlying:   underlying,
			OptionType:   chain.OptionType(strings.ToLower(opt.OptionType)),
			Strike:       opt.Strike,
			Expiration:   exp,
			QuoteTime:    asOf,
			Delta:        opt.Greeks.Delta,
			Bid:          opt.Bid,
			Ask:          opt.Ask,
			Last:         opt.Last,
			Volume:       opt.Volume,
			OpenInterest: opt.OpenInterest,
		})
	}
	return contracts, nil
}

// Snapshot pulls every expiration inside the window and merges the
// chains into one snapshot quoted at a single instant.
func (t *TradierClient) Snapshot(ctx context.Context, underlying string) (chain.Snapshot, error) {
	asOf := time.Now().UTC()

	expirations, err := t.Expirations(ctx, underlying)
	if err != nil {
		return chain.Snapshot{}, fmt.Errorf("listing expirations for %s: %w", underlying, err)
	}

	snap := chain.Snapshot{Underlying: underlying}
	for _, exp := range expirations {
		days := chain.DaysBetween(asOf, exp)
		if days < 0 || days > t.windowDays {
			continue
		}
		contracts, err := t.Chain(ctx, underlying, exp, asOf)
		if err != nil {
			return chain.Snapshot{}, fmt.Errorf("fetching %s chain for %s: %w", underlying, exp.Format("2006-01-02"), err)
		}
		snap.Contracts = append(snap.Contracts, contracts...)
	}

	if err := snap.Validate(); err != nil {
		return chain.Snapshot{}, err
	}
	return snap, nil
}

// MarketClock retrieves the current market clock status.
func (t *TradierClient) MarketClock(ctx context.Context, delayed bool) (*MarketClockResponse, error) {
	endpoint := fmt.Sprintf("%s/markets/clock?delayed=%t", t.baseURL, delayed)

	var response MarketClockResponse
	if err := t.makeRequestCtx(ctx, "GET", endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// IsSessionOpen returns true during a trading session (open, premarket,
// or postmarket).
func (t *TradierClient) IsSessionOpen(ctx context.Context) (bool, error) {
	clock, err := t.MarketClock(ctx, true)
	if err != nil {
		return false, err
	}

	state := clock.Clock.State
	return state == marketStateOpen || state == marketStatePreMarket || state == marketStatePostMarket, nil
}

// makeRequestCtx makes an HTTP request with context support for timeout/cancellation
func (t *TradierClient) makeRequestCtx(ctx context.Context, method, endpoint string,
	params url.Values, response interface{}) error {
	var req *http.Request
	var err error

	if method == "POST" && params != nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(params.Encode()))
		if err != nil {
			return err
		}
		req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, http.NoBody)
		if err != nil {
			return err
		}
	}

	req.Header.Add("Authorization", "Bearer "+t.apiKey)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("User-Agent", "strangle-signals/1.0 (+tradier)")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			// Log error but don't fail the operation
			log.Printf("Failed to close response body: %v", err)
		}
	}()

	// Check rate limit headers
	remaining := resp.Header.Get("X-Ratelimit-Available")
	if remaining == "" {
		remaining = resp.Header.Get("X-RateLimit-Available")
		if remaining == "" {
			remaining = resp.Header.Get("X-RateLimit-Remaining")
		}
	}
	if remaining != "" && t.sandbox {
		log.Printf("Rate limit remaining: %s", remaining)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusNoContent {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) // 64KB cap to avoid huge payloads
		if err != nil {
			return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s -> failed to read error body", method, endpoint)}
		}
		ct := resp.Header.Get("Content-Type")
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s (%s) -> %s (retry-after: %s)", method, endpoint, ct, string(body), ra)}
		}
		return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s (%s) -> %s", method, endpoint, ct, string(body))}
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(response); err != nil && err != io.EOF {
		return err
	}
	return nil
}
