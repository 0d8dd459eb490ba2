package csvstore

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/krishi-sahayak/backend/internal/storage/models"
	"github.com/krishi-sahayak/backend/pkg/logger"
)

// ProfileColumns is the fixed on-disk schema of the profile table.
var ProfileColumns = []string{"name", "language", "latitude", "longitude", "soil_type", "farm_size_ha"}

// ProfileStore owns the farmer profile CSV. The whole table is read, mutated
// in memory and rewritten on every save; the mutex serializes that cycle
// within this process. Cross-process writers remain last-writer-wins.
type ProfileStore struct {
	path string
	mu   sync.Mutex
}

func NewProfileStore(path string) *ProfileStore {
	return &ProfileStore{path: path}
}

// Load reads the backing table. A missing file yields an empty collection and
// no error. A malformed file yields an empty collection plus an error the
// caller surfaces as a non-fatal warning.
func (s *ProfileStore) Load() ([]models.FarmerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("Profile table not found, starting empty", zap.String("path", s.path))
			return []models.FarmerProfile{}, nil
		}
		logger.Error("Failed to open profile table", zap.String("path", s.path), zap.Error(err))
		return []models.FarmerProfile{}, fmt.Errorf("could not read profile table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		logger.Error("Failed to parse profile table", zap.String("path", s.path), zap.Error(err))
		return []models.FarmerProfile{}, fmt.Errorf("could not parse profile table: %w", err)
	}
	if len(records) == 0 {
		return []models.FarmerProfile{}, nil
	}

	// Header row maps column name to index; missing columns are backfilled
	// with defaults instead of failing the load.
	index := map[string]int{}
	for i, col := range records[0] {
		index[strings.TrimSpace(col)] = i
	}
	for _, col := range ProfileColumns {
		if _, ok := index[col]; !ok {
			logger.Warn("Profile table missing column, using defaults", zap.String("column", col))
		}
	}

	profiles := make([]models.FarmerProfile, 0, len(records)-1)
	for _, row := range records[1:] {
		p := profileFromRow(row, index)
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		profiles = append(profiles, sanitizeProfile(p))
	}

	logger.Info("Loaded farmer profiles", zap.Int("count", len(profiles)), zap.String("path", s.path))
	return profiles, nil
}

// FindProfile does a trimmed case-insensitive exact match on name and returns
// the first hit with numeric and string fields sanitized.
func FindProfile(profiles []models.FarmerProfile, name string) (models.FarmerProfile, bool) {
	if strings.TrimSpace(name) == "" {
		return models.FarmerProfile{}, false
	}
	for _, p := range profiles {
		if p.KeyMatches(name) {
			return sanitizeProfile(p), true
		}
	}
	return models.FarmerProfile{}, false
}

// UpsertProfile replaces the row matching the profile's name (case
// insensitive) or appends a new one. An empty name makes the call a no-op
// returning the input unchanged.
func UpsertProfile(profiles []models.FarmerProfile, p models.FarmerProfile) []models.FarmerProfile {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		logger.Warn("Upsert ignored: empty farmer name")
		return profiles
	}

	p = sanitizeProfile(p)
	for i := range profiles {
		if profiles[i].KeyMatches(p.Name) {
			profiles[i] = p
			return profiles
		}
	}
	return append(profiles, p)
}

// Save rewrites the whole table: rows with empty names are dropped, fields
// coerced, the collection sorted by case-insensitive name, and the file
// replaced atomically via a temp-file rename.
func (s *ProfileStore) Save(profiles []models.FarmerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]models.FarmerProfile, 0, len(profiles))
	for _, p := range profiles {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		rows = append(rows, sanitizeProfile(p))
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name)
	})

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("Failed to create data directory", zap.String("dir", dir), zap.Error(err))
			return fmt.Errorf("could not create data directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".farmer_profiles-*.csv")
	if err != nil {
		logger.Error("Failed to create temp profile table", zap.Error(err))
		return fmt.Errorf("could not save profile table: %w", err)
	}
	tmpPath := tmp.Name()

	writer := csv.NewWriter(tmp)
	writeErr := writer.Write(ProfileColumns)
	for _, p := range rows {
		if writeErr != nil {
			break
		}
		writeErr = writer.Write(profileToRow(p))
	}
	writer.Flush()
	if writeErr == nil {
		writeErr = writer.Error()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmpPath)
		logger.Error("Failed to write profile table", zap.String("path", s.path), zap.Error(writeErr))
		return fmt.Errorf("could not save profile table: %w", writeErr)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		logger.Error("Failed to replace profile table", zap.String("path", s.path), zap.Error(err))
		return fmt.Errorf("could not save profile table: %w", err)
	}

	logger.Info("Saved farmer profiles", zap.Int("count", len(rows)), zap.String("path", s.path))
	return nil
}

func profileFromRow(row []string, index map[string]int) models.FarmerProfile {
	field := func(col string) (string, bool) {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}

	p := models.FarmerProfile{}
	p.Name, _ = field("name")
	p.Language, _ = field("language")
	p.SoilType, _ = field("soil_type")
	p.Latitude = coerceFloat(field("latitude"))(models.DefaultLatitude)
	p.Longitude = coerceFloat(field("longitude"))(models.DefaultLongitude)
	p.FarmSizeHa = coerceFloat(field("farm_size_ha"))(models.DefaultFarmSize)
	return p
}

func profileToRow(p models.FarmerProfile) []string {
	return []string{
		p.Name,
		p.Language,
		strconv.FormatFloat(p.Latitude, 'f', -1, 64),
		strconv.FormatFloat(p.Longitude, 'f', -1, 64),
		p.SoilType,
		strconv.FormatFloat(p.FarmSizeHa, 'f', -1, 64),
	}
}

// coerceFloat parses the raw field, deferring the default so callers can name
// it per column. Invalid input downgrades to the default with a warning.
func coerceFloat(raw string, present bool) func(def float64) float64 {
	return func(def float64) float64 {
		if !present || raw == "" {
			return def
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			logger.Warn("Invalid numeric field in profile table, using default",
				zap.String("value", raw), zap.Float64("default", def))
			return def
		}
		return v
	}
}

// sanitizeProfile applies the defensive defaults required on every read and
// write boundary so a partially corrupt table self-heals.
func sanitizeProfile(p models.FarmerProfile) models.FarmerProfile {
	p.Name = strings.TrimSpace(p.Name)
	if strings.TrimSpace(p.Language) == "" {
		p.Language = models.DefaultLanguage
	}
	if strings.TrimSpace(p.SoilType) == "" {
		p.SoilType = models.DefaultSoilType
	}
	if math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) {
		p.Latitude = models.DefaultLatitude
	}
	if math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) {
		p.Longitude = models.DefaultLongitude
	}
	if math.IsNaN(p.FarmSizeHa) || math.IsInf(p.FarmSizeHa, 0) || p.FarmSizeHa <= 0 {
		p.FarmSizeHa = models.DefaultFarmSize
	}
	return p
}
