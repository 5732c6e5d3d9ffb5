package amap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/resilience"
)

func TestSearchAround(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/around", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "116.48,39.99", q.Get("location"))
		assert.Equal(t, "废品回收站", q.Get("keywords"))
		assert.Equal(t, "3000", q.Get("radius"))
		assert.Equal(t, "5", q.Get("offset"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "1", "info": "OK", "pois": [
			{"name": "回收站A", "address": "某路1号", "distance": "620", "tel": "010-1234", "location": "116.47,39.98"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	pois, err := c.SearchAround(context.Background(), Query{
		Location: "116.48,39.99",
		Keywords: "废品回收站",
		Radius:   3000,
		Limit:    5,
	})

	require.NoError(t, err)
	require.Len(t, pois, 1)
	assert.Equal(t, "回收站A", pois[0].Name)
	assert.Equal(t, "620", pois[0].Distance)
}

func TestSearchAround_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "0", "info": "INVALID_USER_KEY"}`))
	}))
	defer srv.Close()

	c := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := c.SearchAround(context.Background(), Query{Location: "116.48,39.99"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_USER_KEY")
	assert.False(t, resilience.IsTransient(err))
}

func TestSearchAround_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.SearchAround(context.Background(), Query{Location: "116.48,39.99"})

	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	var te *resilience.TransientError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
}
