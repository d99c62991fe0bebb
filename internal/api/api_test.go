package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/goldcurve/internal/api/handlers"
	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/internal/output"
	"github.com/wonny/goldcurve/pkg/logger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func point(date time.Time, premium float64) contracts.PremiumPoint {
	return contracts.PremiumPoint{
		Date:       date,
		Premium:    premium,
		PriceNear:  7000,
		PriceFar:   7100,
		ExpiryNear: day(2024, time.February, 5),
		ExpiryFar:  day(2024, time.April, 5),
	}
}

// newTestRouter publishes points to a temp data.json and serves it
func newTestRouter(t *testing.T, points []contracts.PremiumPoint) http.Handler {
	t.Helper()
	sink := output.NewJSONFile(filepath.Join(t.TempDir(), "data.json"), logger.Nop())
	if points != nil {
		require.NoError(t, sink.Publish(context.Background(), "run-1", points))
	}
	return NewRouter(handlers.NewPremiumHandler(sink, nil, logger.Nop()), logger.Nop())
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestRouter(t, nil), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestGetSeries(t *testing.T) {
	router := newTestRouter(t, []contracts.PremiumPoint{
		point(day(2024, time.January, 2), 8.69),
		point(day(2024, time.January, 3), 8.5),
		point(day(2024, time.January, 4), 8.1),
	})

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantDates []string
	}{
		{"all", "/api/premium", http.StatusOK, []string{"2024-01-02", "2024-01-03", "2024-01-04"}},
		{"from only", "/api/premium?from=2024-01-03", http.StatusOK, []string{"2024-01-03", "2024-01-04"}},
		{"inclusive range", "/api/premium?from=2024-01-02&to=2024-01-03", http.StatusOK, []string{"2024-01-02", "2024-01-03"}},
		{"empty range", "/api/premium?from=2025-01-01", http.StatusOK, []string{}},
		{"bad date", "/api/premium?from=02/01/2024", http.StatusBadRequest, nil},
		{"reversed", "/api/premium?from=2024-01-04&to=2024-01-02", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, tt.target)
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantDates == nil {
				return
			}

			var body []map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			dates := make([]string, 0, len(body))
			for _, p := range body {
				dates = append(dates, p["date"].(string))
			}
			assert.Equal(t, tt.wantDates, dates)
		})
	}
}

func TestGetLatest(t *testing.T) {
	router := newTestRouter(t, []contracts.PremiumPoint{
		point(day(2024, time.January, 2), 8.69),
		point(day(2024, time.January, 3), 8.5),
	})

	rec := get(t, router, "/api/premium/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var p contracts.PremiumPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, day(2024, time.January, 3), p.Date)
	assert.Equal(t, 8.5, p.Premium)
}

func TestNotPublished(t *testing.T) {
	router := newTestRouter(t, nil)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/api/premium").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/api/premium/latest").Code)
}

func TestLatest_EmptySeries(t *testing.T) {
	router := newTestRouter(t, []contracts.PremiumPoint{})
	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/premium/latest").Code)
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/premium", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
