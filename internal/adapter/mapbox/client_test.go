package mapbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

const (
	testToken         = "test-token"
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

func testClient(baseURL string) *Client {
	c := NewClient(testToken, 5*time.Second, "weather-insight-test")
	c.baseURL = baseURL
	return c
}

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Austin, TX.json", r.URL.Path)
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))

		resp := response{
			Features: []feature{
				{
					Center:    []float64{-97.7431, 30.2672},
					PlaceName: "Austin, Texas, United States",
					Text:      "Austin",
					Relevance: 0.95,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Search(context.Background(), "Austin, TX")
	require.NoError(t, err)

	assert.Equal(t, domain.LatLng{Lat: 30.2672, Lng: -97.7431}, got)
}

func TestClient_Reverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/-97.743100,30.267200"), "lon,lat order: %s", r.URL.Path)
		assert.Equal(t, "place,locality", r.URL.Query().Get("types"))

		resp := response{
			Features: []feature{{Center: []float64{-97.7431, 30.2672}, PlaceName: "Austin, Travis County, Texas"}},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	name, err := testClient(srv.URL).Reverse(context.Background(), domain.LatLng{Lat: 30.2672, Lng: -97.7431})
	require.NoError(t, err)

	assert.Equal(t, "Austin, Travis County, Texas", name)
}

func TestClient_Search_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Search(context.Background(), "NONEXISTENT")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_Reverse_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{}))
	}))
	defer srv.Close()

	name, err := testClient(srv.URL).Reverse(context.Background(), domain.LatLng{Lat: 0, Lng: -160})
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestClient_Search_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Search(context.Background(), "AUSTIN")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_Search_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(testToken, 50*time.Millisecond, "")
	c.baseURL = srv.URL

	_, err := c.Search(context.Background(), "AUSTIN")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}
