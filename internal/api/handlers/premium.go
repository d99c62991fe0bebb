package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/internal/output"
	"github.com/wonny/goldcurve/pkg/logger"
	"github.com/wonny/goldcurve/pkg/redis"
)

// PremiumHandler serves the published premium series to the dashboard
// ⭐ SSOT: 시리즈 조회 API는 이 구조체에서만
type PremiumHandler struct {
	reader contracts.SeriesReader
	cache  *redis.Cache // nil = no cache
	logger *logger.Logger
}

// NewPremiumHandler creates a new premium handler
func NewPremiumHandler(reader contracts.SeriesReader, cache *redis.Cache, log *logger.Logger) *PremiumHandler {
	return &PremiumHandler{
		reader: reader,
		cache:  cache,
		logger: log,
	}
}

// GetSeries returns the series, optionally limited to [from, to]
// GET /api/premium?from=2024-01-01&to=2024-12-31
func (h *PremiumHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	from, to, err := parseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	load := func() (interface{}, error) {
		points, err := h.reader.Read(ctx)
		if err != nil {
			return nil, err
		}
		return FilterRange(points, from, to), nil
	}

	var points []contracts.PremiumPoint
	if h.cache != nil {
		key := redis.PremiumSeriesKey(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		err = h.cache.GetOrSet(ctx, key, &points, redis.TTLShort, load)
	} else {
		var v interface{}
		if v, err = load(); err == nil {
			points = v.([]contracts.PremiumPoint)
		}
	}
	if err != nil {
		h.respondReadError(w, err)
		return
	}

	if points == nil {
		points = []contracts.PremiumPoint{}
	}
	respondJSON(w, http.StatusOK, points)
}

// GetLatest returns the most recent point
// GET /api/premium/latest
func (h *PremiumHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	points, err := h.reader.Read(r.Context())
	if err != nil {
		h.respondReadError(w, err)
		return
	}
	if len(points) == 0 {
		respondError(w, http.StatusNotFound, "series is empty")
		return
	}

	respondJSON(w, http.StatusOK, points[len(points)-1])
}

func (h *PremiumHandler) respondReadError(w http.ResponseWriter, err error) {
	if errors.Is(err, output.ErrNoSeries) {
		respondError(w, http.StatusServiceUnavailable, "series not published yet")
		return
	}
	h.logger.WithError(err).Error("Failed to read premium series")
	respondError(w, http.StatusInternalServerError, "Failed to retrieve premium series")
}

// FilterRange keeps points with from <= date <= to; a zero bound is open
func FilterRange(points []contracts.PremiumPoint, from, to time.Time) []contracts.PremiumPoint {
	out := make([]contracts.PremiumPoint, 0, len(points))
	for _, p := range points {
		if !from.IsZero() && p.Date.Before(from) {
			continue
		}
		if !to.IsZero() && p.Date.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func parseRange(fromStr, toStr string) (from, to time.Time, err error) {
	if fromStr != "" {
		if from, err = time.Parse(contracts.ISODateLayout, fromStr); err != nil {
			return from, to, fmt.Errorf("invalid from date %q (want YYYY-MM-DD)", fromStr)
		}
	}
	if toStr != "" {
		if to, err = time.Parse(contracts.ISODateLayout, toStr); err != nil {
			return from, to, fmt.Errorf("invalid to date %q (want YYYY-MM-DD)", toStr)
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return from, to, fmt.Errorf("from %s is after to %s", fromStr, toStr)
	}
	return from, to, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
