// Package bilibili is a thin client for the Bilibili video search API, used
// to find renovation/DIY tutorial candidates for the creative path.
package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/resilience"
)

const defaultBaseURL = "https://api.bilibili.com"

// Client performs video searches.
type Client interface {
	Search(ctx context.Context, keyword string, limit int) ([]Video, error)
}

// Video is one search hit with the engagement metrics the ranker consumes.
type Video struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Play     int    `json:"play"`
	Danmaku  int    `json:"video_review"`
	Duration string `json:"duration"`
	URL      string `json:"arcurl"`
	Cover    string `json:"pic"`
	BVID     string `json:"bvid"`
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
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Bilibili search client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(2), 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Result []Video `json:"result"`
	} `json:"data"`
}

func (c *httpClient) Search(ctx context.Context, keyword string, limit int) ([]Video, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "bilibili: rate limit wait")
	}

	params := url.Values{}
	params.Set("search_type", "video")
	params.Set("keyword", keyword)
	params.Set("order", "totalrank")

	reqURL := c.baseURL + "/x/web-interface/search/type?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "bilibili: build request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; rewise/1.0)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "bilibili: search")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "bilibili: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.New(fmt.Sprintf("bilibili: unexpected status %d", resp.StatusCode))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "bilibili: decode response")
	}
	if sr.Code != 0 {
		return nil, eris.New(fmt.Sprintf("bilibili: api error %d: %s", sr.Code, sr.Message))
	}

	videos := sr.Data.Result
	for i := range videos {
		// Search titles embed highlight markup.
		videos[i].Title = stripEm(videos[i].Title)
	}
	if limit > 0 && len(videos) > limit {
		videos = videos[:limit]
	}
	return videos, nil
}

func stripEm(title string) string {
	title = strings.ReplaceAll(title, `<em class="keyword">`, "")
	return strings.ReplaceAll(title, "</em>", "")
}
