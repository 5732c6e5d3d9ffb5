// Package zhuanzhuan is a client for the Zhuanzhuan search gateway, the
// second marketplace consulted for secondhand price referencing.
package zhuanzhuan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/resilience"
)

// Client searches Zhuanzhuan listings.
type Client interface {
	Search(ctx context.Context, q Query) ([]Listing, error)
}

// Query describes one listing search.
type Query struct {
	Keyword string `json:"keyword"`
	Limit   int    `json:"limit,omitempty"`
}

// Listing is one comparable listing. Zhuanzhuan reports prices in fen.
type Listing struct {
	Title    string `json:"title"`
	PriceFen int64  `json:"price_fen"`
	City     string `json:"city,omitempty"`
	URL      string `json:"url,omitempty"`
}

// PriceYuan converts the listing price to yuan.
func (l Listing) PriceYuan() float64 { return float64(l.PriceFen) / 100 }

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Zhuanzhuan search client against the given gateway URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(2), 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Items []Listing `json:"items"`
}

func (c *httpClient) Search(ctx context.Context, q Query) ([]Listing, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "zhuanzhuan: rate limit wait")
	}

	payload, err := json.Marshal(q)
	if err != nil {
		return nil, eris.Wrap(err, "zhuanzhuan: encode query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "zhuanzhuan: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "zhuanzhuan: search")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "zhuanzhuan: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.New(fmt.Sprintf("zhuanzhuan: unexpected status %d", resp.StatusCode))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "zhuanzhuan: decode response")
	}
	return sr.Items, nil
}
