package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	c := NewClient(baseURL, 5*time.Second, nil, 0)
	c.now = func() time.Time {
		return time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local)
	}
	return c
}

func sampleJSON(dt int64, temp, tempMin, tempMax, rain, wind float64, desc string) map[string]interface{} {
	return map[string]interface{}{
		"dt": dt,
		"main": map[string]interface{}{
			"temp":     temp,
			"temp_min": tempMin,
			"temp_max": tempMax,
		},
		"weather": []map[string]interface{}{{"description": desc}},
		"rain":    map[string]interface{}{"3h": rain},
		"wind":    map[string]interface{}{"speed": wind},
	}
}

func forecastServer(t *testing.T, hits *int64, payload interface{}, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)
		w.WriteHeader(status)
		if payload != nil {
			require.NoError(t, json.NewEncoder(w).Encode(payload))
		}
	}))
}

func TestSummarize_PreconditionsSkipNetwork(t *testing.T) {
	var hits int64
	srv := forecastServer(t, &hits, nil, http.StatusOK)
	defer srv.Close()
	client := newTestClient(srv.URL)

	tests := []struct {
		name    string
		lat     float64
		lon     float64
		apiKey  string
		message string
	}{
		{"invalid latitude", math.NaN(), 77.0, "key", "Invalid coordinates in profile. Cannot fetch weather."},
		{"infinite longitude", 12.0, math.Inf(1), "key", "Invalid coordinates in profile. Cannot fetch weather."},
		{"location not set sentinel", 0.0, 0.0, "key", "Location not set in profile. Cannot fetch weather."},
		{"missing api key", 12.0, 77.0, "", "Weather API Key is missing in the configuration."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := client.Summarize(context.Background(), tt.lat, tt.lon, tt.apiKey)
			assert.Equal(t, StatusError, result.Status)
			assert.Equal(t, tt.message, result.Message)
		})
	}

	assert.Equal(t, int64(0), atomic.LoadInt64(&hits), "precondition failures must not reach the network")
}

type stubCache struct {
	cached   *Result
	setCalls int
	lastKey  string
}

func (s *stubCache) GetForecast(ctx context.Context, key string, out interface{}) (bool, error) {
	s.lastKey = key
	if s.cached == nil {
		return false, nil
	}
	*out.(*Result) = *s.cached
	return true, nil
}

func (s *stubCache) SetForecast(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.setCalls++
	return nil
}

func TestSummarize_CacheHitSkipsNetwork(t *testing.T) {
	var hits int64
	srv := forecastServer(t, &hits, nil, http.StatusOK)
	defer srv.Close()

	client := newTestClient(srv.URL)
	client.cache = &stubCache{cached: &Result{
		Status:       StatusSuccess,
		Location:     "Lucknow",
		DailySummary: []string{"Today (Tue): Temp 8°C / 22°C, Clear sky"},
	}}

	result := client.Summarize(context.Background(), 26.85, 80.95, "key")
	require.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "Lucknow", result.Location)
	assert.Equal(t, int64(0), atomic.LoadInt64(&hits), "a warm cache must not reach the network")
}

func TestSummarize_SuccessStoredInCache(t *testing.T) {
	day := time.Date(2026, 3, 10, 6, 0, 0, 0, time.Local)
	payload := map[string]interface{}{
		"city": map[string]interface{}{"name": "Lucknow"},
		"list": []map[string]interface{}{sampleJSON(day.Unix(), 20, 15, 25, 0, 2, "clear sky")},
	}

	var hits int64
	srv := forecastServer(t, &hits, payload, http.StatusOK)
	defer srv.Close()

	cache := &stubCache{}
	client := newTestClient(srv.URL)
	client.cache = cache

	result := client.Summarize(context.Background(), 26.85, 80.95, "key")
	require.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
	assert.Equal(t, 1, cache.setCalls)
	assert.NotEmpty(t, cache.lastKey)
}

func TestSummarize_ErrorResultNotCached(t *testing.T) {
	var hits int64
	srv := forecastServer(t, &hits, nil, http.StatusInternalServerError)
	defer srv.Close()

	cache := &stubCache{}
	client := newTestClient(srv.URL)
	client.cache = cache

	result := client.Summarize(context.Background(), 26.85, 80.95, "key")
	require.Equal(t, StatusError, result.Status)
	assert.Equal(t, 0, cache.setCalls)
}

func TestSummarize_InvalidCoordinatesWinOverSentinel(t *testing.T) {
	var hits int64
	srv := forecastServer(t, &hits, nil, http.StatusOK)
	defer srv.Close()
	client := newTestClient(srv.URL)

	// NaN with a zero pair member still classifies as invalid, not unset.
	result := client.Summarize(context.Background(), math.NaN(), 0.0, "")
	assert.Equal(t, "Invalid coordinates in profile. Cannot fetch weather.", result.Message)
	assert.Equal(t, int64(0), atomic.LoadInt64(&hits))
}

func TestSummarize_DailyBucketing(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 6, 0, 0, 0, time.Local)  // "today" for the fixed clock
	day2 := time.Date(2026, 3, 11, 6, 0, 0, 0, time.Local)

	payload := map[string]interface{}{
		"city": map[string]interface{}{"name": "Lucknow"},
		"list": []map[string]interface{}{
			sampleJSON(day1.Unix(), 15, 8, 18, 0, 3, "clear sky"),
			sampleJSON(day1.Add(3*time.Hour).Unix(), 21, 12, 22, 6.0, 4, "light rain"),
			sampleJSON(day2.Unix(), 40, 30, 41, 0, 16, "clear sky"),
		},
	}

	var hits int64
	srv := forecastServer(t, &hits, payload, http.StatusOK)
	defer srv.Close()
	client := newTestClient(srv.URL)

	result := client.Summarize(context.Background(), 26.85, 80.95, "key")
	require.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "Lucknow", result.Location)
	require.Len(t, result.DailySummary, 2)

	today := result.DailySummary[0]
	assert.True(t, strings.HasPrefix(today, "Today ("), today)
	assert.Contains(t, today, "Temp 8°C / 22°C")
	assert.Contains(t, today, "Clear sky, Light rain")
	assert.Contains(t, today, "Rain: 6.0mm")
	assert.Contains(t, today, "Heavy rain (6.0mm/3hr)")

	tomorrow := result.DailySummary[1]
	assert.True(t, strings.HasPrefix(tomorrow, "Tomorrow ("), tomorrow)
	assert.Contains(t, tomorrow, "High temp (40°C)")
	assert.Contains(t, tomorrow, "Strong wind (16.0 m/s)")
	assert.NotContains(t, tomorrow, "Rain:")
}

func TestSummarize_MalformedSamplesSkipped(t *testing.T) {
	day := time.Date(2026, 3, 10, 6, 0, 0, 0, time.Local)
	payload := map[string]interface{}{
		"city": map[string]interface{}{"name": "Lucknow"},
		"list": []map[string]interface{}{
			{"dt": day.Unix()}, // no main block
			sampleJSON(day.Unix(), 20, 15, 25, 0, 2, "few clouds"),
		},
	}

	var hits int64
	srv := forecastServer(t, &hits, payload, http.StatusOK)
	defer srv.Close()

	result := newTestClient(srv.URL).Summarize(context.Background(), 26.85, 80.95, "key")
	require.Equal(t, StatusSuccess, result.Status)
	require.Len(t, result.DailySummary, 1)
	assert.Contains(t, result.DailySummary[0], "Few clouds")
}

func TestSummarize_AllSamplesMalformed(t *testing.T) {
	payload := map[string]interface{}{
		"city": map[string]interface{}{"name": "Lucknow"},
		"list": []map[string]interface{}{{"dt": 0}},
	}

	var hits int64
	srv := forecastServer(t, &hits, payload, http.StatusOK)
	defer srv.Close()

	result := newTestClient(srv.URL).Summarize(context.Background(), 26.85, 80.95, "key")
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "Could not generate daily forecast summary.", result.Message)
}

func TestSummarize_MissingListField(t *testing.T) {
	payload := map[string]interface{}{"city": map[string]interface{}{"name": "Lucknow"}}

	var hits int64
	srv := forecastServer(t, &hits, payload, http.StatusOK)
	defer srv.Close()

	result := newTestClient(srv.URL).Summarize(context.Background(), 26.85, 80.95, "key")
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "Unexpected weather API response format.", result.Message)
}

func TestSummarize_HTTPErrorTaxonomy(t *testing.T) {
	tests := []struct {
		status  int
		message string
	}{
		{http.StatusUnauthorized, "Weather API Key invalid or unauthorized. Please check the configured key."},
		{http.StatusNotFound, "Weather data not found for location (26.85,80.95)."},
		{http.StatusTooManyRequests, "Weather API rate limit exceeded. Please try again later."},
		{http.StatusInternalServerError, "Weather service error (Code: 500). Check API key or service status."},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			var hits int64
			srv := forecastServer(t, &hits, nil, tt.status)
			defer srv.Close()

			result := newTestClient(srv.URL).Summarize(context.Background(), 26.85, 80.95, "key")
			assert.Equal(t, StatusError, result.Status)
			assert.Equal(t, tt.message, result.Message)
		})
	}
}

func TestSummarize_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	result := newTestClient(srv.URL).Summarize(context.Background(), 26.85, 80.95, "key")
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "Network error connecting to weather service.", result.Message)
}

func TestSummarize_UnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	defer srv.Close()

	result := newTestClient(srv.URL).Summarize(context.Background(), 26.85, 80.95, "key")
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "An unexpected error occurred while processing weather data.", result.Message)
}

func TestSummarize_RequestParameters(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		day := time.Date(2026, 3, 10, 6, 0, 0, 0, time.Local)
		payload := map[string]interface{}{
			"city": map[string]interface{}{"name": "Lucknow"},
			"list": []map[string]interface{}{sampleJSON(day.Unix(), 20, 15, 25, 0, 2, "clear sky")},
		}
		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	newTestClient(srv.URL).Summarize(context.Background(), 26.85, 80.95, "secret")
	assert.Contains(t, gotQuery, "appid=secret")
	assert.Contains(t, gotQuery, "units=metric")
	assert.Contains(t, gotQuery, "cnt=40")
	assert.Contains(t, gotQuery, "lat=26.85")
	assert.Contains(t, gotQuery, "lon=80.95")
}
