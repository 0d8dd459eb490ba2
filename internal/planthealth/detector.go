// Package planthealth is an explicit stand-in for image-based disease
// diagnosis. The Detector interface is the seam where a real vision model
// will plug in; the default picks a canned finding at random.
package planthealth

import (
	"math/rand"
	"time"

	"github.com/krishi-sahayak/backend/pkg/logger"
)

type Finding struct {
	Disease    string
	Confidence float64
	Treatment  string
}

type Detector interface {
	Detect() Finding
}

var placeholderFindings = []Finding{
	{Disease: "Healthy", Confidence: 0.95, Treatment: "No action needed."},
	{Disease: "Maize Common Rust", Confidence: 0.88, Treatment: "Apply appropriate fungicide if severe."},
	{Disease: "Tomato Bacterial Spot", Confidence: 0.92, Treatment: "Use copper-based bactericides. Remove infected leaves."},
}

type PlaceholderDetector struct {
	rng *rand.Rand
}

func NewPlaceholderDetector(seed int64) *PlaceholderDetector {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &PlaceholderDetector{rng: rand.New(rand.NewSource(seed))}
}

func (d *PlaceholderDetector) Detect() Finding {
	logger.Debug("Detecting plant disease (placeholder)")
	return placeholderFindings[d.rng.Intn(len(placeholderFindings))]
}
