package xianyu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/resilience"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)

		var q Query
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		assert.Equal(t, "办公椅", q.Keyword)
		assert.Equal(t, 10, q.Limit)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"listings": [
			{"title": "九成新办公椅", "price": 150.5, "area": "北京", "url": "https://x/1"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	listings, err := c.Search(context.Background(), Query{Keyword: "办公椅", Limit: 10})

	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "九成新办公椅", listings[0].Title)
	assert.Equal(t, 150.5, listings[0].Price)
}

func TestSearch_BadGatewayIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Search(context.Background(), Query{Keyword: "椅子"})

	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestSearch_ClientErrorNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Search(context.Background(), Query{Keyword: "椅子"})

	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}
