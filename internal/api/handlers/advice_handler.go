package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/krishi-sahayak/backend/internal/advisory"
	"github.com/krishi-sahayak/backend/internal/i18n"
	"github.com/krishi-sahayak/backend/internal/storage/csvstore"
	"github.com/krishi-sahayak/backend/internal/storage/models"
	"github.com/krishi-sahayak/backend/pkg/logger"
)

type AdviceHandler struct {
	profiles *csvstore.ProfileStore
	engine   *advisory.Engine
}

func NewAdviceHandler(profiles *csvstore.ProfileStore, engine *advisory.Engine) *AdviceHandler {
	return &AdviceHandler{profiles: profiles, engine: engine}
}

type adviceRequest struct {
	FarmerName    string `json:"farmer_name"`
	Query         string `json:"query"`
	Language      string `json:"language"`
	WeatherAPIKey string `json:"weather_api_key"`
	LLMAPIKey     string `json:"llm_api_key"`
}

// HandleAdvice runs one advice turn for a stored profile. Engine-level
// failures (upstream errors, generation errors) come back as a 200 with
// status "error" and a user-facing message; only caller mistakes map to 4xx.
func (h *AdviceHandler) HandleAdvice(c *fiber.Ctx) error {
	var req adviceRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse advice request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	lang := req.Language
	if lang == "" {
		lang = models.DefaultLanguage
	}

	if strings.TrimSpace(req.FarmerName) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": i18n.T(lang, "name_missing_error", nil),
		})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": i18n.T(lang, "query_warning", nil),
		})
	}

	profiles, loadErr := h.profiles.Load()
	if loadErr != nil {
		logger.Warn("Profile table degraded, proceeding with empty collection", zap.Error(loadErr))
	}

	profile, found := csvstore.FindProfile(profiles, req.FarmerName)
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": i18n.T(lang, "profile_not_found_warning", i18n.Args{"name": strings.TrimSpace(req.FarmerName)}),
		})
	}

	response := h.engine.ProcessRequest(c.Context(), advisory.Request{
		Profile:       profile,
		Query:         req.Query,
		Language:      lang,
		WeatherAPIKey: req.WeatherAPIKey,
		LLMAPIKey:     req.LLMAPIKey,
	})

	return c.JSON(response)
}
