package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/krishi-sahayak/backend/internal/i18n"
	"github.com/krishi-sahayak/backend/internal/storage/csvstore"
)

type HistoryHandler struct {
	log *csvstore.InteractionLog
}

func NewHistoryHandler(log *csvstore.InteractionLog) *HistoryHandler {
	return &HistoryHandler{log: log}
}

// HandleHistory returns the most recent interactions for a farmer, newest
// first. Absent or unreadable logs answer the same way as no match.
func (h *HistoryHandler) HandleHistory(c *fiber.Ctx) error {
	lang := requestLanguage(c, "")

	name := strings.TrimSpace(c.Query("farmer_name"))
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": i18n.T(lang, "name_missing_error", nil),
		})
	}

	limit := csvstore.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, found := h.log.Recent(name, limit)
	if !found {
		return c.JSON(fiber.Map{
			"farmer_name": name,
			"entries":     []interface{}{},
			"notice":      i18n.T(lang, "history_not_found", nil),
		})
	}

	return c.JSON(fiber.Map{
		"farmer_name": name,
		"entries":     entries,
	})
}
