package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("lat"))
		assert.NotEmpty(t, r.URL.Query().Get("lng"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"county":"Cook","state":"IL","metro_area":"Chicago","population":5275541}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetHeader("X-Api-Key", "secret")

	info, err := c.ReverseGeocode(context.Background(), 41.8781, -87.6298)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Cook", info.County)
	assert.Equal(t, "IL", info.State)
	assert.Equal(t, 5275541, info.Population)
}

func TestReverseGeocodeNotFoundMeansNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	info, err := NewClient(srv.URL).ReverseGeocode(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Nil(t, info, "no data is not an error")
}

func TestReverseGeocodeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	info, err := NewClient(srv.URL).ReverseGeocode(context.Background(), 0, 0)
	require.Error(t, err)
	assert.Nil(t, info)
	assert.Contains(t, err.Error(), "500")
}
