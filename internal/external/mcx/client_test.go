package mcx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/goldcurve/pkg/httputil"
	"github.com/wonny/goldcurve/pkg/logger"
)

const sampleResponse = `{"d":{"__type":"BhavCopy","Data":[
	{"Date":"/Date(1704133800000)/","Symbol":"GOLD","ExpiryDate":"05FEB2024","Open":62900,"High":"63,200","Low":62800,"Close":63000,"PreviousClose":"62850","Volume":"1234","Value":null,"OpenInterest":"-"},
	{"Date":"2024-01-03T00:00:00","Symbol":"GOLD ","ExpiryDate":"05feb2024","Open":"63000","High":63300,"Low":62900,"Close":"63150.5","PreviousClose":63000,"Volume":10,"Value":1.5,"OpenInterest":7},
	{"Date":null,"Symbol":"GOLD","ExpiryDate":"05FEB2024","Close":1}
]}}`

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	hc := httputil.NewWithPolicy(logger.Nop(), 5*time.Second, httputil.RetryConfig{Enabled: false})
	return NewClient(hc, srv.URL, "", logger.Nop())
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseBhavcopy(t *testing.T) {
	bars, err := ParseBhavcopy([]byte(sampleResponse))
	require.NoError(t, err)
	require.Len(t, bars, 2, "row without date is dropped")

	assert.Equal(t, date(2024, time.January, 2), bars[0].Date, "/Date(ms)/ is an IST midnight")
	assert.Equal(t, 63200.0, bars[0].High)
	assert.Equal(t, 62850.0, bars[0].PreviousClose)
	assert.Equal(t, 0.0, bars[0].Value)
	assert.Equal(t, 0.0, bars[0].OpenInterest)

	assert.Equal(t, date(2024, time.January, 3), bars[1].Date)
	assert.Equal(t, "GOLD", bars[1].Symbol)
	assert.Equal(t, "05FEB2024", bars[1].ExpiryDate)
	assert.Equal(t, 63150.5, bars[1].Close)
}

func TestParseBhavcopy_EmptyAndInvalid(t *testing.T) {
	bars, err := ParseBhavcopy([]byte(`{"d":{"Data":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, bars)

	bars, err = ParseBhavcopy([]byte(`{"d":null}`))
	require.NoError(t, err)
	assert.Empty(t, bars)

	_, err = ParseBhavcopy([]byte(`<html>blocked</html>`))
	assert.Error(t, err)
}

func TestParseAPIDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"/Date(1704133800000)/", date(2024, time.January, 2)},
		{"/Date(1704133800000+0530)/", date(2024, time.January, 2)},
		{"2024-01-02T00:00:00", date(2024, time.January, 2)},
		{"2024-01-02T00:00:00.000", date(2024, time.January, 2)},
		{"2024-01-02", date(2024, time.January, 2)},
		{"02/01/2024", date(2024, time.January, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAPIDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseAPIDate("yesterday")
	assert.Error(t, err)
}

func TestCSVRows(t *testing.T) {
	bars := []Bar{
		{Date: date(2024, time.January, 2), Symbol: "GOLD", ExpiryDate: "05FEB2024", Open: 62900, Close: 63000.5, Volume: 1234},
		{Date: date(2024, time.January, 3), Symbol: "GOLD", Close: 63100},
	}

	rows := CSVRows(bars, date(2024, time.February, 5))
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], len(CSVHeader))
	assert.Equal(t, []string{"2024-01-02", "GOLD", "05FEB2024", "62900", "0", "0", "63000.5", "0", "1234", "0", "0"}, rows[0])
	assert.Equal(t, "05FEB2024", rows[1][2], "missing expiry filled from request")
}

func TestClient_SessionAndFetch(t *testing.T) {
	var gotPayload bhavcopyRequest
	var gotCookie, gotXRW, gotUA string

	mux := http.NewServeMux()
	mux.HandleFunc(bhavcopyPagePath, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "ASP.NET_SessionId", Value: "abc123", Path: "/"})
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc(bhavcopyAPIPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if c, err := r.Cookie("ASP.NET_SessionId"); err == nil {
			gotCookie = c.Value
		}
		gotXRW = r.Header.Get("X-Requested-With")
		gotUA = r.Header.Get("User-Agent")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx := context.Background()

	require.NoError(t, c.InitSession(ctx))
	assert.Equal(t, 0, c.Requests())

	bars, err := c.FetchDateRange(ctx, "GOLD", date(2025, time.April, 4), date(2024, time.September, 16), date(2025, time.April, 4))
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.Equal(t, 1, c.Requests())

	assert.Equal(t, "abc123", gotCookie, "session cookie is replayed")
	assert.Equal(t, "XMLHttpRequest", gotXRW)
	assert.Contains(t, gotUA, "Mozilla/5.0")
	assert.Equal(t, bhavcopyRequest{
		Symbol:         "GOLD",
		Expiry:         "04APR2025",
		FromDate:       "09/16/2024",
		ToDate:         "04/04/2025",
		InstrumentName: "FUTCOM",
	}, gotPayload)

	require.NoError(t, c.InitSession(ctx))
	assert.Equal(t, 0, c.Requests(), "new session resets the request counter")
}

func TestClient_FetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.FetchDateRange(context.Background(), "GOLD", date(2024, time.February, 5), date(2023, time.July, 20), date(2024, time.February, 5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	assert.Error(t, c.InitSession(context.Background()))
}
