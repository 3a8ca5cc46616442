package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const marketsBody = `[
	{
		"id": "bitcoin", "symbol": "btc", "name": "Bitcoin",
		"image": "https://img.example/btc.png",
		"current_price": 43000.5,
		"price_change_percentage_24h": -1.2,
		"sparkline_in_7d": {"price": [42000, 42500, 43000]}
	},
	{
		"id": "ethereum", "symbol": "eth", "name": "Ethereum",
		"image": "https://img.example/eth.png",
		"current_price": 2250.0,
		"price_change_percentage_24h": null
	}
]`

func TestMarketsByIDs(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"vs_currency":             q.Get("vs_currency"),
			"ids":                     q.Get("ids"),
			"sparkline":               q.Get("sparkline"),
			"price_change_percentage": q.Get("price_change_percentage"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(marketsBody))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	snaps, err := client.MarketsByIDs(context.Background(), []string{"bitcoin", "ethereum"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery["vs_currency"] != "usd" {
		t.Errorf("vs_currency = %q, want usd", gotQuery["vs_currency"])
	}
	if gotQuery["ids"] != "bitcoin,ethereum" {
		t.Errorf("ids = %q, want bitcoin,ethereum", gotQuery["ids"])
	}
	if gotQuery["sparkline"] != "true" {
		t.Errorf("sparkline = %q, want true", gotQuery["sparkline"])
	}
	if gotQuery["price_change_percentage"] != "24h" {
		t.Errorf("price_change_percentage = %q, want 24h", gotQuery["price_change_percentage"])
	}

	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}
	btc := snaps[0]
	if btc.ID != "bitcoin" || btc.Symbol != "BTC" || btc.Price != 43000.5 {
		t.Errorf("bitcoin snapshot = %+v", btc)
	}
	if btc.Change24h == nil || *btc.Change24h != -1.2 {
		t.Errorf("bitcoin change = %v, want -1.2", btc.Change24h)
	}
	if len(btc.Spark7D) != 3 {
		t.Errorf("bitcoin sparkline length = %d, want 3", len(btc.Spark7D))
	}

	eth := snaps[1]
	if eth.Change24h != nil {
		t.Errorf("ethereum change = %v, want nil", eth.Change24h)
	}
	if len(eth.Spark7D) != 0 {
		t.Errorf("ethereum sparkline length = %d, want 0", len(eth.Spark7D))
	}
}

func TestMarketsByIDsEmptySkipsNetwork(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	snaps, err := client.MarketsByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snaps != nil {
		t.Errorf("got %v, want nil", snaps)
	}
	if calls != 0 {
		t.Errorf("server called %d times, want 0", calls)
	}
}

func TestSearchTrimsQuery(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		w.Write([]byte(`{"coins":[{"id":"ethereum","name":"Ethereum","symbol":"eth","thumb":"t.png"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	results, err := client.Search(context.Background(), "  ETH  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "ETH" {
		t.Errorf("query = %q, want ETH", gotQuery)
	}
	if len(results) != 1 || results[0].Symbol != "ETH" {
		t.Errorf("results = %+v", results)
	}
}

func TestSearchEmptyQuerySkipsNetwork(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	for _, q := range []string{"", "   ", "\t\n"} {
		results, err := client.Search(context.Background(), q)
		if err != nil {
			t.Fatalf("query %q: unexpected error: %v", q, err)
		}
		if results != nil {
			t.Errorf("query %q: got %v, want nil", q, results)
		}
	}
	if calls != 0 {
		t.Errorf("server called %d times, want 0", calls)
	}
}

func TestTrending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/trending" {
			t.Errorf("path = %q, want /search/trending", r.URL.Path)
		}
		w.Write([]byte(`{"coins":[
			{"item":{"id":"solana","name":"Solana","symbol":"sol","thumb":"s.png"}},
			{"item":{"id":"dogecoin","name":"Dogecoin","symbol":"doge","thumb":"d.png"}}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	results, err := client.Trending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != "solana" || results[0].Symbol != "SOL" {
		t.Errorf("first result = %+v", results[0])
	}
}

func TestNon2xxReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.MarketsByIDs(context.Background(), []string{"bitcoin"})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %T is not *APIError", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", apiErr.Status)
	}
	if apiErr.Body != `{"error":"rate limited"}` {
		t.Errorf("body = %q", apiErr.Body)
	}
}

func TestAPIKeyAppended(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("x_cg_demo_api_key")
		w.Write([]byte(`{"coins":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "demo-key-123")
	if _, err := client.Trending(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "demo-key-123" {
		t.Errorf("api key = %q, want demo-key-123", gotKey)
	}
}
