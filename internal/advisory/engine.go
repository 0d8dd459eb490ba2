package advisory

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krishi-sahayak/backend/internal/crops"
	"github.com/krishi-sahayak/backend/internal/i18n"
	"github.com/krishi-sahayak/backend/internal/llm"
	"github.com/krishi-sahayak/backend/internal/market"
	"github.com/krishi-sahayak/backend/internal/metrics"
	"github.com/krishi-sahayak/backend/internal/planthealth"
	"github.com/krishi-sahayak/backend/internal/storage/models"
	"github.com/krishi-sahayak/backend/internal/weather"
	"github.com/krishi-sahayak/backend/pkg/logger"
)

// History entries are trimmed to these lengths before entering the context.
const (
	historyQueryMax    = 150
	historyResponseMax = 250
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Request carries everything one advice turn needs. There is no ambient
// session state; per-session API keys ride on the request and override the
// configured defaults for that call only.
type Request struct {
	Profile       models.FarmerProfile
	Query         string
	Language      string
	WeatherAPIKey string
	LLMAPIKey     string
}

type Response struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	FarmerName     string `json:"farmer_name"`
	ResponseText   string `json:"response_text"`
	InternalPrompt string `json:"internal_prompt"`
	Intent         Intent `json:"intent"`
	LatencyMS      int    `json:"latency_ms"`
}

// InteractionStore is the slice of the interaction log the engine needs.
type InteractionStore interface {
	Append(models.InteractionLogEntry) error
	Recent(farmerName string, limit int) ([]models.InteractionLogEntry, bool)
}

// Forecaster produces the weather summary block.
type Forecaster interface {
	Summarize(ctx context.Context, latitude, longitude float64, apiKey string) weather.Result
}

// AdviceGenerator returns advice text or a prefix-marked error string.
type AdviceGenerator interface {
	Generate(ctx context.Context, internalPrompt, outputLanguage, apiKeyOverride string) string
}

// Engine orchestrates one advice turn: classify the query, assemble the
// context transcript, generate advice, and record the interaction.
type Engine struct {
	log               InteractionStore
	forecaster        Forecaster
	generator         AdviceGenerator
	cropPredictor     crops.Predictor
	priceForecaster   market.Forecaster
	diseaseDetector   planthealth.Detector
	defaultWeatherKey string
	now               func() time.Time
	rng               *rand.Rand
}

func NewEngine(
	log InteractionStore,
	forecaster Forecaster,
	generator AdviceGenerator,
	cropPredictor crops.Predictor,
	priceForecaster market.Forecaster,
	diseaseDetector planthealth.Detector,
	defaultWeatherKey string,
) *Engine {
	return &Engine{
		log:               log,
		forecaster:        forecaster,
		generator:         generator,
		cropPredictor:     cropPredictor,
		priceForecaster:   priceForecaster,
		diseaseDetector:   diseaseDetector,
		defaultWeatherKey: defaultWeatherKey,
		now:               time.Now,
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (e *Engine) ProcessRequest(ctx context.Context, req Request) Response {
	start := e.now()
	requestID := uuid.New().String()

	farmerName := strings.TrimSpace(req.Profile.Name)
	query := strings.TrimSpace(req.Query)
	lang := req.Language
	if lang == "" {
		lang = models.DefaultLanguage
	}

	if farmerName == "" {
		logger.Error("Advice requested without a valid farmer profile")
		return Response{
			ID:           requestID,
			Status:       StatusError,
			ResponseText: "Internal error: Farmer profile data is missing or invalid.",
		}
	}

	logger.Info("Processing advice request",
		zap.String("request_id", requestID),
		zap.String("farmer", farmerName),
		zap.String("query", query),
		zap.String("language", lang))

	intent, labelKey := ClassifyIntent(query)
	internalPrompt := e.buildContext(ctx, req, intent, labelKey, lang, farmerName, query)

	responseText := e.generator.Generate(ctx, internalPrompt, lang, req.LLMAPIKey)

	status := StatusSuccess
	switch {
	case strings.TrimSpace(responseText) == "":
		logger.Warn("Generator returned empty response", zap.String("farmer", farmerName))
		responseText = i18n.T(lang, "processing_error", i18n.Args{"e": "AI assistant did not provide a response."})
		status = StatusError
	case llm.IsErrorResponse(responseText):
		logger.Warn("Generator returned error response",
			zap.String("farmer", farmerName), zap.String("response", responseText))
		status = StatusError
	default:
		entry := models.InteractionLogEntry{
			Timestamp:      e.now().Format(models.TimestampLayout),
			FarmerName:     farmerName,
			Language:       lang,
			Query:          query,
			Response:       responseText,
			InternalPrompt: internalPrompt,
		}
		// A log failure never fails advice that already succeeded.
		if err := e.log.Append(entry); err != nil {
			logger.Error("Failed to append interaction log", zap.Error(err))
		}
	}

	latency := int(e.now().Sub(start).Milliseconds())
	metrics.AdviceTotal.WithLabelValues(string(intent), status).Inc()
	metrics.AdviceDuration.WithLabelValues(string(intent)).Observe(e.now().Sub(start).Seconds())

	logger.Info("Advice request processed",
		zap.String("request_id", requestID),
		zap.String("intent", string(intent)),
		zap.String("status", status),
		zap.Int("latency_ms", latency))

	return Response{
		ID:             requestID,
		Status:         status,
		FarmerName:     farmerName,
		ResponseText:   responseText,
		InternalPrompt: internalPrompt,
		Intent:         intent,
		LatencyMS:      latency,
	}
}

// buildContext assembles the transcript fed to the generator: farmer context,
// recent history, the current query, then one intent-specific data block.
func (e *Engine) buildContext(ctx context.Context, req Request, intent Intent, labelKey, lang, farmerName, query string) string {
	profile := req.Profile
	var lines []string

	locationDesc := i18n.T(lang, "location_not_set_description", nil)
	if profile.LocationSet() {
		locationDesc = i18n.T(lang, "location_set_description",
			i18n.Args{"lat": profile.Latitude, "lon": profile.Longitude})
	}
	lines = append(lines, i18n.T(lang, "farmer_context_data", i18n.Args{
		"name":                 farmerName,
		"location_description": locationDesc,
		"soil":                 profile.SoilType,
	}))

	if block := e.historyBlock(farmerName, lang); block != "" {
		lines = append(lines, "\n"+block+"\n")
	}

	lines = append(lines, "--- Current Interaction ---")
	lines = append(lines, "Current Farmer Query ("+lang+"): "+query+"\n")

	lines = append(lines, i18n.T(lang, labelKey, nil))

	switch intent {
	case IntentCrop:
		lines = append(lines, e.cropBlock(profile, locationDesc, lang))
	case IntentMarket:
		lines = append(lines, e.marketBlock(query, lang))
	case IntentWeather:
		lines = append(lines, e.weatherBlock(ctx, req, lang)...)
	case IntentPlantHealth:
		lines = append(lines, e.plantHealthBlock(lang))
	default:
		lines = append(lines, i18n.T(lang, "general_query_data", i18n.Args{"query": query}))
	}

	return strings.Join(lines, "\n")
}

func (e *Engine) historyBlock(farmerName, lang string) string {
	entries, found := e.log.Recent(farmerName, 0)
	if !found {
		return ""
	}

	lines := []string{i18n.T(lang, "history_header", nil)}
	for _, entry := range entries {
		lines = append(lines, i18n.T(lang, "history_entry", i18n.Args{
			"lang":     entry.Language,
			"query":    condense(entry.Query, historyQueryMax),
			"response": condense(entry.Response, historyResponseMax),
		}))
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) cropBlock(profile models.FarmerProfile, locationDesc, lang string) string {
	season := crops.SeasonForMonth(e.now().Month())
	cond := crops.Conditions{
		Region:      locationDesc,
		AvgTempC:    20 + 15*e.rng.Float64(),
		AvgRainfall: 400 + 400*e.rng.Float64(),
		Season:      season,
	}
	suggestions := e.cropPredictor.Predict(profile.SoilType, cond)

	cropsStr := "None specific"
	if len(suggestions) > 0 {
		cropsStr = strings.Join(suggestions, ", ")
	}
	return i18n.T(lang, "crop_suggestion_data", i18n.Args{
		"soil":   profile.SoilType,
		"season": season,
		"crops":  cropsStr,
	})
}

func (e *Engine) marketBlock(query, lang string) string {
	crop := market.ExtractCrop(query)
	forecast := e.priceForecaster.Forecast(crop, market.DefaultMarket)

	var priceStart, priceEnd float64
	if len(forecast.Prices) > 0 {
		priceStart = forecast.Prices[0]
		priceEnd = forecast.Prices[len(forecast.Prices)-1]
	}
	return i18n.T(lang, "market_price_data", i18n.Args{
		"crop":        forecast.Crop,
		"market":      forecast.Market,
		"days":        forecast.ForecastDays,
		"price_start": priceStart,
		"price_end":   priceEnd,
		"trend":       forecast.Trend,
	})
}

func (e *Engine) weatherBlock(ctx context.Context, req Request, lang string) []string {
	apiKey := req.WeatherAPIKey
	if apiKey == "" {
		apiKey = e.defaultWeatherKey
	}

	result := e.forecaster.Summarize(ctx, req.Profile.Latitude, req.Profile.Longitude, apiKey)
	if result.Status != weather.StatusSuccess {
		return []string{i18n.T(lang, "weather_data_error", i18n.Args{"message": result.Message})}
	}

	lines := []string{i18n.T(lang, "weather_data_header", i18n.Args{"location": result.Location})}
	lines = append(lines, result.DailySummary...)
	return lines
}

func (e *Engine) plantHealthBlock(lang string) string {
	finding := e.diseaseDetector.Detect()
	return i18n.T(lang, "plant_health_data", i18n.Args{
		"disease":    finding.Disease,
		"confidence": finding.Confidence,
		"treatment":  finding.Treatment,
	})
}

// condense truncates to max runes with an ellipsis marker and collapses
// embedded newlines so each history entry stays on its template lines.
func condense(text string, max int) string {
	runes := []rune(text)
	if len(runes) > max {
		text = string(runes[:max]) + "..."
	}
	text = strings.ReplaceAll(text, "\r\n", " ")
	return strings.ReplaceAll(text, "\n", " ")
}
