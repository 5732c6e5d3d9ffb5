// Package amap is a thin client for the AMap (Gaode) place search API, used
// to find recycling and donation drop-off points near the user.
package amap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/resilience"
)

const defaultBaseURL = "https://restapi.amap.com/v3"

// Client performs POI searches.
type Client interface {
	SearchAround(ctx context.Context, q Query) ([]POI, error)
}

// Query describes one around-search request.
type Query struct {
	// Location is "longitude,latitude".
	Location string
	Keywords string
	// Radius in meters; the API default applies when 0.
	Radius int
	Limit  int
}

// POI is one point of interest from the search response.
type POI struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Distance string `json:"distance"`
	Tel      string `json:"tel"`
	Location string `json:"location"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(base string) Option {
	return func(c *httpClient) { c.baseURL = base }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	key     string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an AMap client. The free tier meters QPS, so requests
// pass through a client-side limiter.
func NewClient(key string, opts ...Option) Client {
	c := &httpClient{
		key:     key,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(3), 3),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Status string `json:"status"`
	Info   string `json:"info"`
	POIs   []POI  `json:"pois"`
}

func (c *httpClient) SearchAround(ctx context.Context, q Query) ([]POI, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "amap: rate limit wait")
	}

	params := url.Values{}
	params.Set("key", c.key)
	params.Set("location", q.Location)
	params.Set("keywords", q.Keywords)
	if q.Radius > 0 {
		params.Set("radius", fmt.Sprintf("%d", q.Radius))
	}
	if q.Limit > 0 {
		params.Set("offset", fmt.Sprintf("%d", q.Limit))
	}

	reqURL := c.baseURL + "/place/around?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "amap: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "amap: search around")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "amap: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.New(fmt.Sprintf("amap: unexpected status %d", resp.StatusCode))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "amap: decode response")
	}
	if sr.Status != "1" {
		return nil, eris.New("amap: api error: " + sr.Info)
	}

	return sr.POIs, nil
}
