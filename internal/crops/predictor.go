// Package crops suggests candidate crops for a soil type and season. The
// default implementation is a synthetic rule table; the Predictor interface
// exists so a trained model can replace it without touching the advisory
// orchestration.
package crops

import (
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/krishi-sahayak/backend/pkg/logger"
)

const (
	SeasonKharif = "Kharif"
	SeasonRabi   = "Rabi"
)

// SeasonForMonth maps the calendar month to the cropping season: June through
// October is Kharif, the rest Rabi.
func SeasonForMonth(month time.Month) string {
	if month >= time.June && month <= time.October {
		return SeasonKharif
	}
	return SeasonRabi
}

// Conditions is the synthetic climate input fed to a predictor.
type Conditions struct {
	Region      string
	AvgTempC    float64
	AvgRainfall float64
	Season      string
}

type Predictor interface {
	Predict(soilType string, cond Conditions) []string
}

// RulePredictor is the default keyword-rule implementation. Soil types are
// matched by substring against a fixed table and the candidate list shuffled
// down to at most three distinct suggestions.
type RulePredictor struct {
	rng *rand.Rand
}

func NewRulePredictor(seed int64) *RulePredictor {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RulePredictor{rng: rand.New(rand.NewSource(seed))}
}

const maxSuggestions = 3

func (p *RulePredictor) Predict(soilType string, cond Conditions) []string {
	logger.Debug("Predicting crops",
		zap.String("soil", soilType), zap.String("season", cond.Season),
		zap.Float64("avg_temp", cond.AvgTempC), zap.Float64("avg_rainfall", cond.AvgRainfall))

	soil := strings.ToLower(soilType)
	var candidates []string

	switch {
	case strings.Contains(soil, "loamy") || strings.Contains(soil, "alluvial"):
		if cond.AvgRainfall > 600 && cond.Season == SeasonKharif {
			candidates = []string{"Rice", "Cotton", "Sugarcane", "Maize"}
		} else if cond.Season == SeasonRabi {
			candidates = []string{"Wheat", "Mustard", "Barley", "Gram"}
		} else {
			candidates = []string{"Vegetables", "Pulses"}
		}
	case strings.Contains(soil, "clay") || strings.Contains(soil, "black"):
		if cond.AvgRainfall > 500 && cond.Season == SeasonKharif {
			candidates = []string{"Cotton", "Soybean", "Sorghum", "Pigeon Pea"}
		} else if cond.Season == SeasonRabi {
			candidates = []string{"Wheat", "Gram", "Linseed"}
		} else {
			candidates = []string{"Pulses", "Sunflower"}
		}
	case strings.Contains(soil, "sandy") || strings.Contains(soil, "desert") || strings.Contains(soil, "arid"):
		if cond.AvgTempC > 25 {
			candidates = []string{"Bajra", "Groundnut", "Millet", "Guar"}
		} else {
			candidates = []string{"Mustard", "Barley", "Chickpea"}
		}
	case strings.Contains(soil, "red") || strings.Contains(soil, "laterite"):
		candidates = []string{"Groundnut", "Pulses", "Potato", "Ragi", "Millets"}
	default:
		candidates = []string{"Sorghum", "Local Pulses", "Regional Vegetables", "Fodder Crops"}
	}

	p.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	seen := map[string]struct{}{}
	suggestions := make([]string, 0, maxSuggestions)
	for _, crop := range candidates {
		if len(suggestions) == maxSuggestions {
			break
		}
		if _, dup := seen[crop]; dup {
			continue
		}
		seen[crop] = struct{}{}
		suggestions = append(suggestions, crop)
	}
	return suggestions
}
