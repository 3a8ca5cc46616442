package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/tokenfolio/dash/internal/domain"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the CoinGecko API. It carries the
// status code and the raw response body so callers can surface both.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coingecko HTTP %d: %s", e.Status, e.Body)
}

// Client is an HTTP client for the CoinGecko API. A demo API key, when
// configured, is appended to every request as a query parameter.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new CoinGecko API client. apiKey may be empty.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// get performs a GET request. Non-2xx responses become an *APIError; there is
// no automatic retry, a failed call is terminal.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.apiKey != "" {
		params.Set("x_cg_demo_api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest any) error {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing response from %s: %w", path, err)
	}
	return nil
}

// marketJSON mirrors one element of the /coins/markets response.
type marketJSON struct {
	ID        string   `json:"id"`
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Image     string   `json:"image"`
	Price     float64  `json:"current_price"`
	Change24h *float64 `json:"price_change_percentage_24h"`
	Sparkline *struct {
		Price []float64 `json:"price"`
	} `json:"sparkline_in_7d"`
}

func (m marketJSON) toSnapshot() domain.MarketSnapshot {
	s := domain.MarketSnapshot{
		ID:        m.ID,
		Name:      m.Name,
		Symbol:    strings.ToUpper(m.Symbol),
		Icon:      m.Image,
		Price:     m.Price,
		Change24h: m.Change24h,
	}
	if m.Sparkline != nil {
		s.Spark7D = m.Sparkline.Price
	}
	return s
}

// MarketsByIDs fetches current market data, with a 7-day sparkline and the
// 24h change percentage, for the given asset ids. An empty id list returns
// an empty result without touching the network.
func (c *Client) MarketsByIDs(ctx context.Context, ids []string) ([]domain.MarketSnapshot, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("ids", strings.Join(ids, ","))
	params.Set("sparkline", "true")
	params.Set("price_change_percentage", "24h")

	var raw []marketJSON
	if err := c.getJSON(ctx, "/coins/markets", params, &raw); err != nil {
		return nil, err
	}
	return lo.Map(raw, func(m marketJSON, _ int) domain.MarketSnapshot {
		return m.toSnapshot()
	}), nil
}

// TopMarkets fetches one page of markets ordered by market cap descending.
// Used to seed an empty watchlist on first run.
func (c *Client) TopMarkets(ctx context.Context, page, perPage int) ([]domain.MarketSnapshot, error) {
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("order", "market_cap_desc")
	params.Set("page", fmt.Sprint(page))
	params.Set("per_page", fmt.Sprint(perPage))
	params.Set("sparkline", "true")
	params.Set("price_change_percentage", "24h")

	var raw []marketJSON
	if err := c.getJSON(ctx, "/coins/markets", params, &raw); err != nil {
		return nil, err
	}
	return lo.Map(raw, func(m marketJSON, _ int) domain.MarketSnapshot {
		return m.toSnapshot()
	}), nil
}

type searchCoinJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Thumb  string `json:"thumb"`
}

func (s searchCoinJSON) toResult() domain.SearchResult {
	return domain.SearchResult{
		ID:     s.ID,
		Name:   s.Name,
		Symbol: strings.ToUpper(s.Symbol),
		Thumb:  s.Thumb,
	}
}

// Search looks up coins matching query. The query is trimmed first; an empty
// or whitespace-only query returns no results without a network call.
func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("query", query)

	var raw struct {
		Coins []searchCoinJSON `json:"coins"`
	}
	if err := c.getJSON(ctx, "/search", params, &raw); err != nil {
		return nil, err
	}
	return lo.Map(raw.Coins, func(s searchCoinJSON, _ int) domain.SearchResult {
		return s.toResult()
	}), nil
}

type trendingCoinJSON struct {
	Item searchCoinJSON `json:"item"`
}

// Trending fetches the current trending coins list.
func (c *Client) Trending(ctx context.Context) ([]domain.SearchResult, error) {
	var raw struct {
		Coins []trendingCoinJSON `json:"coins"`
	}
	if err := c.getJSON(ctx, "/search/trending", url.Values{}, &raw); err != nil {
		return nil, err
	}
	return lo.Map(raw.Coins, func(t trendingCoinJSON, _ int) domain.SearchResult {
		return t.Item.toResult()
	}), nil
}
