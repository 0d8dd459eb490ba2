// Package market produces a synthetic short-term price outlook per crop. The
// Forecaster interface keeps the simulation swappable for a real market data
// feed.
package market

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/krishi-sahayak/backend/pkg/logger"
)

const (
	DefaultCrop   = "Wheat"
	DefaultMarket = "Local Market"
	forecastDays  = 7
)

// Forecast is a simulated price walk over the coming days.
type Forecast struct {
	Crop         string
	Market       string
	ForecastDays int
	Prices       []float64
	Trend        string
}

type Forecaster interface {
	Forecast(crop, marketName string) Forecast
}

// basePrices are per-quintal anchors for the random walk.
var basePrices = map[string]float64{
	"Wheat":  2000,
	"Rice":   2500,
	"Maize":  1800,
	"Cotton": 6000,
	"Tomato": 1500,
}

const defaultBasePrice = 2200

type cropTerms struct {
	crop  string
	terms []string
}

// cropVocabulary maps query tokens (across the supported languages) to the
// crop whose price is being asked about. Evaluated top to bottom; when a query
// names several crops the first listed entry wins.
var cropVocabulary = []cropTerms{
	{crop: "Rice", terms: []string{"rice", "chawal", "चावल", "அரிசி", "চাল", "బియ్యం", "तांदूळ"}},
	{crop: "Maize", terms: []string{"maize", "makka", "मक्का", "சோளம்", "ভুট্টা", "మొక్కజొన్న", "मका"}},
	{crop: "Cotton", terms: []string{"cotton", "kapas", "कपास", "பருத்தி", "তুলা", "పత్తి", "कापूस"}},
	{crop: "Tomato", terms: []string{"tomato", "tamatar", "टमाटर", "தக்காளி", "টমেটো", "టమోటా", "टोमॅटो"}},
}

// ExtractCrop matches whole tokens of the lower-cased query against the crop
// vocabulary, first listed crop winning. Unmatched queries default to Wheat.
func ExtractCrop(query string) string {
	words := strings.Fields(strings.ToLower(query))
	tokens := map[string]struct{}{}
	for _, w := range words {
		tokens[w] = struct{}{}
	}

	for _, entry := range cropVocabulary {
		for _, term := range entry.terms {
			if _, ok := tokens[term]; ok {
				return entry.crop
			}
		}
	}
	return DefaultCrop
}

// WalkForecaster simulates a bounded-volatility random walk from the crop's
// base price, floored at half the base.
type WalkForecaster struct {
	rng *rand.Rand
}

func NewWalkForecaster(seed int64) *WalkForecaster {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &WalkForecaster{rng: rand.New(rand.NewSource(seed))}
}

func (f *WalkForecaster) Forecast(crop, marketName string) Forecast {
	logger.Debug("Forecasting market price", zap.String("crop", crop), zap.String("market", marketName))

	base, ok := basePrices[crop]
	if !ok {
		base = defaultBasePrice
	}

	price := base * (0.8 + 0.4*f.rng.Float64())
	drift := []float64{-0.02, 0, 0.02}[f.rng.Intn(3)]
	volatility := 0.01 + 0.04*f.rng.Float64()

	prices := make([]float64, 0, forecastDays)
	for i := 0; i < forecastDays; i++ {
		price *= 1 + drift + (2*f.rng.Float64()-1)*volatility
		price = math.Max(base*0.5, price)
		prices = append(prices, math.Round(price*100)/100)
	}

	return Forecast{
		Crop:         crop,
		Market:       marketName,
		ForecastDays: forecastDays,
		Prices:       prices,
		Trend:        trendLabel(prices),
	}
}

// trendLabel compares first and last simulated prices with a 5% threshold.
func trendLabel(prices []float64) string {
	if len(prices) == 0 {
		return "Could not determine trend."
	}
	first, last := prices[0], prices[len(prices)-1]
	switch {
	case last > first*1.05:
		return "Prices show a slight upward trend."
	case last < first*0.95:
		return "Prices show a slight downward trend."
	default:
		return "Prices look relatively stable."
	}
}
