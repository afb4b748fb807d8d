package places

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-safe-assist/internal/api/ratelimit"
	"github.com/FACorreiaa/go-safe-assist/internal/types"
)

func setupPlacesTest(t *testing.T, handler http.HandlerFunc) (*ServiceImpl, *ratelimit.CacheStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	limiter := ratelimit.NewCacheStore(time.Hour, time.Hour)
	opts := Options{BaseURL: srv.URL, RadiusM: 10000, ResultLimit: 1, Timeout: 5 * time.Second}
	service := NewServiceImpl(opts, func() string { return "test-key" }, limiter, logger)
	return service, limiter
}

func TestFindNearest(t *testing.T) {
	origin := types.GeoPoint{Lon: 77.6, Lat: 12.9}

	t.Run("maps first feature to place result", func(t *testing.T) {
		var gotQuery map[string]string
		service, _ := setupPlacesTest(t, func(w http.ResponseWriter, r *http.Request) {
			gotQuery = map[string]string{
				"categories": r.URL.Query().Get("categories"),
				"limit":      r.URL.Query().Get("limit"),
				"lang":       r.URL.Query().Get("lang"),
				"apiKey":     r.URL.Query().Get("apiKey"),
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"features":[{"properties":{"name":"City Hospital","formatted":"12 Main St, Bangalore","lon":77.61,"lat":12.91}}]}`))
		})

		place, err := service.FindNearest(context.Background(), types.CategoryHospital, origin, "en")
		require.NoError(t, err)
		require.NotNil(t, place)
		assert.Equal(t, "City Hospital", place.Name)
		assert.Equal(t, "12 Main St, Bangalore", place.Address)
		require.NotNil(t, place.Coordinates)
		assert.InDelta(t, 77.61, place.Coordinates.Lon, 1e-9)
		assert.InDelta(t, 12.91, place.Coordinates.Lat, 1e-9)

		assert.Equal(t, "healthcare.hospital", gotQuery["categories"])
		assert.Equal(t, "1", gotQuery["limit"])
		assert.Equal(t, "en", gotQuery["lang"])
		assert.Equal(t, "test-key", gotQuery["apiKey"])
	})

	t.Run("zero matches is nil result, nil error", func(t *testing.T) {
		service, _ := setupPlacesTest(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"features":[]}`))
		})

		place, err := service.FindNearest(context.Background(), types.CategoryPharmacy, origin, "en")
		require.NoError(t, err)
		assert.Nil(t, place)
	})

	t.Run("missing coordinates yields place without coordinates", func(t *testing.T) {
		service, _ := setupPlacesTest(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"features":[{"properties":{"name":"Old Precinct","formatted":"9 Station Rd"}}]}`))
		})

		place, err := service.FindNearest(context.Background(), types.CategoryPoliceStation, origin, "en")
		require.NoError(t, err)
		require.NotNil(t, place)
		assert.Nil(t, place.Coordinates)
	})

	t.Run("provider error status propagates", func(t *testing.T) {
		service, _ := setupPlacesTest(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := service.FindNearest(context.Background(), types.CategoryHospital, origin, "en")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("malformed payload propagates", func(t *testing.T) {
		service, _ := setupPlacesTest(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"features":`))
		})

		_, err := service.FindNearest(context.Background(), types.CategoryHospital, origin, "en")
		require.Error(t, err)
	})

	t.Run("slow provider hits the per-call timeout", func(t *testing.T) {
		service, _ := setupPlacesTest(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{"features":[]}`))
		})
		service.opts.Timeout = 20 * time.Millisecond

		_, err := service.FindNearest(context.Background(), types.CategoryHospital, origin, "en")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("cancelled request aborts the call", func(t *testing.T) {
		service, _ := setupPlacesTest(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"features":[]}`))
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := service.FindNearest(ctx, types.CategoryHospital, origin, "en")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("records rate-limit headers for the request user", func(t *testing.T) {
		service, limiter := setupPlacesTest(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Limit", "3000")
			w.Header().Set("X-RateLimit-Remaining", "2998")
			w.Write([]byte(`{"features":[]}`))
		})

		ctx := ratelimit.WithUserID(context.Background(), "user-1")
		_, err := service.FindNearest(ctx, types.CategoryHospital, origin, "en")
		require.NoError(t, err)

		rec, found := limiter.Get("user-1")
		require.True(t, found)
		assert.Equal(t, 2998, rec.Remaining)
	})
}
