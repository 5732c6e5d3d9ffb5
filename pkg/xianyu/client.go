// Package xianyu is a client for the Xianyu search gateway, which serves
// comparable secondhand listings for price referencing.
package xianyu

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

// Client searches Xianyu listings.
type Client interface {
	Search(ctx context.Context, q Query) ([]Listing, error)
}

// Query describes one listing search.
type Query struct {
	Keyword string `json:"keyword"`
	Limit   int    `json:"limit,omitempty"`
}

// Listing is one comparable listing.
type Listing struct {
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Area   string  `json:"area,omitempty"`
	Seller string  `json:"seller,omitempty"`
	URL    string  `json:"url,omitempty"`
}

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

// NewClient creates a Xianyu search client against the given gateway URL.
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
	Listings []Listing `json:"listings"`
}

func (c *httpClient) Search(ctx context.Context, q Query) ([]Listing, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "xianyu: rate limit wait")
	}

	payload, err := json.Marshal(q)
	if err != nil {
		return nil, eris.Wrap(err, "xianyu: encode query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "xianyu: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "xianyu: search")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "xianyu: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.New(fmt.Sprintf("xianyu: unexpected status %d", resp.StatusCode))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "xianyu: decode response")
	}
	return sr.Listings, nil
}
