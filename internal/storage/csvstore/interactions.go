package csvstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/krishi-sahayak/backend/internal/storage/models"
	"github.com/krishi-sahayak/backend/pkg/logger"
)

// QALogColumns is the fixed on-disk schema of the interaction log.
var QALogColumns = []string{"timestamp", "farmer_name", "language", "query", "response", "internal_prompt"}

// DefaultHistoryLimit is how many past interactions feed back into context.
const DefaultHistoryLimit = 3

// InteractionLog owns the append-only Q&A CSV.
type InteractionLog struct {
	path string
	mu   sync.Mutex
}

func NewInteractionLog(path string) *InteractionLog {
	return &InteractionLog{path: path}
}

// Append writes one row, creating the file with a header when absent. A write
// failure is reported to the caller, who logs it without failing the advice
// that already succeeded.
func (l *InteractionLog) Append(e models.InteractionLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("could not create log directory: %w", err)
		}
	}

	_, statErr := os.Stat(l.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open interaction log: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if writeHeader {
		if err := writer.Write(QALogColumns); err != nil {
			return fmt.Errorf("could not write log header: %w", err)
		}
	}
	row := []string{
		e.Timestamp,
		strings.TrimSpace(e.FarmerName),
		e.Language,
		e.Query,
		e.Response,
		e.InternalPrompt,
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("could not append log row: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("could not flush log row: %w", err)
	}

	logger.Info("Logged Q&A interaction", zap.String("farmer", e.FarmerName), zap.String("path", l.path))
	return nil
}

// Recent returns up to limit entries for the named farmer, newest first. The
// second return value distinguishes "no history" (absent, empty, malformed or
// unmatched log) from real entries.
func (l *InteractionLog) Recent(farmerName string, limit int) ([]models.InteractionLogEntry, bool) {
	name := strings.ToLower(strings.TrimSpace(farmerName))
	if name == "" {
		return nil, false
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("Failed to open interaction log", zap.String("path", l.path), zap.Error(err))
		}
		return nil, false
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		logger.Error("Failed to parse interaction log", zap.String("path", l.path), zap.Error(err))
		return nil, false
	}
	if len(records) < 2 {
		return nil, false
	}

	index := map[string]int{}
	for i, col := range records[0] {
		index[strings.TrimSpace(col)] = i
	}
	for _, col := range QALogColumns {
		if _, ok := index[col]; !ok {
			logger.Warn("Interaction log missing column, skipping history", zap.String("column", col))
			return nil, false
		}
	}

	field := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	var entries []models.InteractionLogEntry
	for _, row := range records[1:] {
		if strings.ToLower(strings.TrimSpace(field(row, "farmer_name"))) != name {
			continue
		}
		entries = append(entries, models.InteractionLogEntry{
			Timestamp:      field(row, "timestamp"),
			FarmerName:     field(row, "farmer_name"),
			Language:       field(row, "language"),
			Query:          field(row, "query"),
			Response:       field(row, "response"),
			InternalPrompt: field(row, "internal_prompt"),
		})
	}
	if len(entries) == 0 {
		return nil, false
	}

	// Newest first; rows with unparseable timestamps sort last.
	sort.SliceStable(entries, func(i, j int) bool {
		return parseLogTime(entries[i].Timestamp).After(parseLogTime(entries[j].Timestamp))
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	logger.Info("Retrieved interaction history",
		zap.String("farmer", farmerName), zap.Int("entries", len(entries)))
	return entries, true
}

func parseLogTime(raw string) time.Time {
	t, err := time.ParseInLocation(models.TimestampLayout, strings.TrimSpace(raw), time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
