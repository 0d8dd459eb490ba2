package models

import "strings"

// Coordinate pair (0,0) is the reserved "location not set" sentinel carried
// over from the original data files. It collides with a real point in the
// Gulf of Guinea; that ambiguity is accepted and documented rather than
// silently reinterpreted.
const (
	DefaultLatitude  = 0.0
	DefaultLongitude = 0.0
	DefaultFarmSize  = 1.0
	DefaultLanguage  = "English"
	DefaultSoilType  = "Unknown"
)

// FarmerProfile is one row of the profile table. Name is the case-insensitive
// unique key.
type FarmerProfile struct {
	Name       string  `json:"name"`
	Language   string  `json:"language"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	SoilType   string  `json:"soil_type"`
	FarmSizeHa float64 `json:"farm_size_ha"`
}

// LocationSet reports whether the profile carries real coordinates.
func (p FarmerProfile) LocationSet() bool {
	return p.Latitude != DefaultLatitude || p.Longitude != DefaultLongitude
}

// KeyMatches does the trimmed case-insensitive name comparison used
// everywhere a profile is looked up.
func (p FarmerProfile) KeyMatches(name string) bool {
	return strings.EqualFold(strings.TrimSpace(p.Name), strings.TrimSpace(name))
}

// InteractionLogEntry is one append-only row of the Q&A log.
type InteractionLogEntry struct {
	Timestamp      string `json:"timestamp"`
	FarmerName     string `json:"farmer_name"`
	Language       string `json:"language"`
	Query          string `json:"query"`
	Response       string `json:"response"`
	InternalPrompt string `json:"internal_prompt"`
}

// TimestampLayout is the on-disk second-precision timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// SoilTypes is the fixed catalogue offered by the profile form.
var SoilTypes = []string{
	"Unknown", "Alluvial Soil", "Black Soil (Regur)", "Red Soil", "Laterite Soil",
	"Desert Soil (Arid Soil)", "Mountain Soil (Forest Soil)", "Saline Soil (Alkaline Soil)",
	"Peaty Soil (Marshy Soil)", "Loamy Soil", "Sandy Loam", "Silt Loam", "Clay Loam",
	"Sandy Clay", "Silty Clay", "Sandy Soil", "Silty Soil", "Clay Soil", "Chalky Soil", "Other",
}

// Languages is the fixed set of supported response languages.
var Languages = []string{"English", "Hindi", "Tamil", "Bengali", "Telugu", "Marathi"}
