package weather

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	rediscache "github.com/krishi-sahayak/backend/internal/cache/redis"
	"github.com/krishi-sahayak/backend/internal/metrics"
	"github.com/krishi-sahayak/backend/pkg/circuitbreaker"
	"github.com/krishi-sahayak/backend/pkg/logger"
)

// The forecast window is 5 days at 3-hour resolution.
const (
	forecastSamples = 40
	maxSummaryDays  = 5
)

// Alert thresholds applied per 3-hour sample.
const (
	heavyRainMM   = 5.0
	highTempC     = 38.0
	lowTempC      = 5.0
	strongWindMPS = 15.0
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the summarizer payload: either a per-day summary or a
// user-facing error message, never both.
type Result struct {
	Status       string   `json:"status"`
	Location     string   `json:"location,omitempty"`
	DailySummary []string `json:"daily_summary,omitempty"`
	Message      string   `json:"message,omitempty"`
}

// forecastCache is the slice of the redis client the summarizer uses. A
// nil-safe implementation turns caching off entirely.
type forecastCache interface {
	GetForecast(ctx context.Context, key string, out interface{}) (bool, error)
	SetForecast(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Client fetches a 5-day forecast and condenses it into daily summary lines.
// It owns no persistent state; the optional cache only short-circuits
// identical lookups.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	cache      forecastCache
	cacheTTL   time.Duration
	now        func() time.Time
}

func NewClient(baseURL string, timeout time.Duration, cache *rediscache.Client, cacheTTL time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cb: circuitbreaker.New("weather", circuitbreaker.Config{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			OpenTimeout:      30 * time.Second,
			Logger:           logger.GetLogger(),
		}),
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Summarize returns the daily forecast summary for the given coordinates.
// Preconditions are checked in order and make no network call: invalid
// coordinates, the (0,0) "location not set" sentinel, then a missing API key.
func (c *Client) Summarize(ctx context.Context, latitude, longitude float64, apiKey string) Result {
	if math.IsNaN(latitude) || math.IsInf(latitude, 0) || math.IsNaN(longitude) || math.IsInf(longitude, 0) {
		logger.Warn("Weather forecast skipped: invalid coordinates")
		metrics.WeatherFetchTotal.WithLabelValues("skipped").Inc()
		return Result{Status: StatusError, Message: "Invalid coordinates in profile. Cannot fetch weather."}
	}
	if latitude == 0.0 && longitude == 0.0 {
		logger.Info("Weather forecast skipped: location not set (0,0)")
		metrics.WeatherFetchTotal.WithLabelValues("skipped").Inc()
		return Result{Status: StatusError, Message: "Location not set in profile. Cannot fetch weather."}
	}
	if apiKey == "" {
		logger.Warn("Weather forecast skipped: missing API key")
		metrics.WeatherFetchTotal.WithLabelValues("skipped").Inc()
		return Result{Status: StatusError, Message: "Weather API Key is missing in the configuration."}
	}

	cacheKey := fmt.Sprintf("%x", md5.Sum([]byte(fmt.Sprintf("%.4f,%.4f", latitude, longitude))))
	var cached Result
	if hit, err := c.cache.GetForecast(ctx, cacheKey, &cached); err != nil {
		logger.Warn("Forecast cache lookup failed", zap.Error(err))
	} else if hit && cached.Status == StatusSuccess {
		metrics.WeatherFetchTotal.WithLabelValues("cache_hit").Inc()
		return cached
	}

	result := c.fetchAndSummarize(ctx, latitude, longitude, apiKey)
	if result.Status == StatusSuccess {
		metrics.WeatherFetchTotal.WithLabelValues("success").Inc()
		if err := c.cache.SetForecast(ctx, cacheKey, result, c.cacheTTL); err != nil {
			logger.Warn("Forecast cache store failed", zap.Error(err))
		}
	} else {
		metrics.WeatherFetchTotal.WithLabelValues("error").Inc()
	}
	return result
}

type forecastResponse struct {
	List []forecastSample `json:"list"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
}

type forecastSample struct {
	Dt   int64 `json:"dt"`
	Main *struct {
		Temp    *float64 `json:"temp"`
		TempMin *float64 `json:"temp_min"`
		TempMax *float64 `json:"temp_max"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Rain struct {
		ThreeHour float64 `json:"3h"`
	} `json:"rain"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (c *Client) fetchAndSummarize(ctx context.Context, latitude, longitude float64, apiKey string) Result {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%v", latitude))
	params.Set("lon", fmt.Sprintf("%v", longitude))
	params.Set("appid", apiKey)
	params.Set("units", "metric")
	params.Set("cnt", fmt.Sprintf("%d", forecastSamples))

	var body []byte
	var statusCode int

	err := c.cb.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		statusCode = resp.StatusCode
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if statusCode >= 400 {
			return fmt.Errorf("weather service returned status %d", statusCode)
		}
		return nil
	})

	if err != nil {
		if statusCode >= 400 {
			logger.Error("HTTP error fetching weather",
				zap.Int("status", statusCode), zap.ByteString("body", body))
			return Result{Status: StatusError, Message: httpErrorMessage(statusCode, latitude, longitude)}
		}
		logger.Error("Network error fetching weather", zap.Error(err))
		return Result{Status: StatusError, Message: "Network error connecting to weather service."}
	}

	var data forecastResponse
	if err := json.Unmarshal(body, &data); err != nil {
		logger.Error("Failed to decode weather response", zap.Error(err))
		return Result{Status: StatusError, Message: "An unexpected error occurred while processing weather data."}
	}
	if data.List == nil {
		logger.Error("Unexpected weather API response format: list missing")
		return Result{Status: StatusError, Message: "Unexpected weather API response format."}
	}

	logger.Info("Weather data fetched",
		zap.Float64("lat", latitude), zap.Float64("lon", longitude), zap.Int("samples", len(data.List)))

	location := data.City.Name
	if location == "" {
		location = fmt.Sprintf("Lat:%.2f,Lon:%.2f", latitude, longitude)
	}

	summary := c.summarizeSamples(data.List)
	if len(summary) == 0 {
		return Result{Status: StatusError, Message: "Could not generate daily forecast summary."}
	}
	return Result{Status: StatusSuccess, Location: location, DailySummary: summary}
}

func httpErrorMessage(statusCode int, latitude, longitude float64) string {
	switch statusCode {
	case http.StatusUnauthorized:
		return "Weather API Key invalid or unauthorized. Please check the configured key."
	case http.StatusNotFound:
		return fmt.Sprintf("Weather data not found for location (%v,%v).", latitude, longitude)
	case http.StatusTooManyRequests:
		return "Weather API rate limit exceeded. Please try again later."
	default:
		return fmt.Sprintf("Weather service error (Code: %d). Check API key or service status.", statusCode)
	}
}

type dayBucket struct {
	minTemp    float64
	maxTemp    float64
	conditions map[string]struct{}
	totalRain  float64
	alerts     map[string]struct{}
}

func newDayBucket() *dayBucket {
	return &dayBucket{
		minTemp:    math.Inf(1),
		maxTemp:    math.Inf(-1),
		conditions: map[string]struct{}{},
		alerts:     map[string]struct{}{},
	}
}

// summarizeSamples buckets raw 3-hour samples by local calendar date and
// renders one line per day. Malformed samples are skipped, never fatal.
func (c *Client) summarizeSamples(samples []forecastSample) []string {
	buckets := map[string]*dayBucket{}

	for _, sample := range samples {
		if sample.Dt == 0 || sample.Main == nil ||
			sample.Main.Temp == nil || sample.Main.TempMin == nil || sample.Main.TempMax == nil ||
			len(sample.Weather) == 0 || sample.Weather[0].Description == "" {
			logger.Warn("Skipping malformed forecast sample")
			continue
		}

		date := time.Unix(sample.Dt, 0).Format("2006-01-02")
		bucket, ok := buckets[date]
		if !ok {
			bucket = newDayBucket()
			buckets[date] = bucket
		}

		temp := *sample.Main.Temp
		bucket.minTemp = math.Min(bucket.minTemp, *sample.Main.TempMin)
		bucket.maxTemp = math.Max(bucket.maxTemp, *sample.Main.TempMax)
		bucket.conditions[capitalize(sample.Weather[0].Description)] = struct{}{}
		bucket.totalRain += sample.Rain.ThreeHour

		if sample.Rain.ThreeHour > heavyRainMM {
			bucket.alerts[fmt.Sprintf("Heavy rain (%.1fmm/3hr)", sample.Rain.ThreeHour)] = struct{}{}
		}
		if temp > highTempC {
			bucket.alerts[fmt.Sprintf("High temp (%.0f°C)", temp)] = struct{}{}
		}
		if temp < lowTempC {
			bucket.alerts[fmt.Sprintf("Low temp (%.0f°C)", temp)] = struct{}{}
		}
		if sample.Wind.Speed > strongWindMPS {
			bucket.alerts[fmt.Sprintf("Strong wind (%.1f m/s)", sample.Wind.Speed)] = struct{}{}
		}
	}

	dates := make([]string, 0, len(buckets))
	for date := range buckets {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	if len(dates) > maxSummaryDays {
		dates = dates[:maxSummaryDays]
	}

	today := c.now().Format("2006-01-02")
	tomorrow := c.now().AddDate(0, 0, 1).Format("2006-01-02")

	lines := make([]string, 0, len(dates))
	for _, date := range dates {
		bucket := buckets[date]

		parsed, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			continue
		}
		dayName := parsed.Format("Mon")
		label := dayName
		if date == today {
			label = "Today"
		} else if date == tomorrow {
			label = "Tomorrow"
		}

		conditions := sortedKeys(bucket.conditions)
		conditionsStr := "Conditions unclear"
		if len(conditions) > 0 {
			conditionsStr = strings.Join(conditions, ", ")
		}

		rainStr := ""
		if bucket.totalRain > 0.1 {
			rainStr = fmt.Sprintf(", Rain: %.1fmm", bucket.totalRain)
		}

		alertsStr := ""
		if len(bucket.alerts) > 0 {
			alertsStr = ". Alerts: " + strings.Join(sortedKeys(bucket.alerts), ", ")
		}

		// Extremes stay unset only if no valid sample landed in the bucket,
		// which bucket creation rules out, but render N/A rather than +Inf.
		minStr, maxStr := "N/A", "N/A"
		if !math.IsInf(bucket.minTemp, 1) {
			minStr = fmt.Sprintf("%.0f", bucket.minTemp)
		}
		if !math.IsInf(bucket.maxTemp, -1) {
			maxStr = fmt.Sprintf("%.0f", bucket.maxTemp)
		}

		lines = append(lines, fmt.Sprintf("%s (%s): Temp %s°C / %s°C, %s%s%s",
			label, dayName, minStr, maxStr, conditionsStr, rainStr, alertsStr))
	}

	return lines
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// capitalize uppercases the first rune and lowercases the rest, matching the
// condition labels in existing log files.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
