package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/krishi-sahayak/backend/internal/i18n"
	"github.com/krishi-sahayak/backend/internal/storage/csvstore"
	"github.com/krishi-sahayak/backend/internal/weather"
	"github.com/krishi-sahayak/backend/pkg/logger"
)

type WeatherHandler struct {
	profiles      *csvstore.ProfileStore
	client        *weather.Client
	defaultAPIKey string
}

func NewWeatherHandler(profiles *csvstore.ProfileStore, client *weather.Client, defaultAPIKey string) *WeatherHandler {
	return &WeatherHandler{profiles: profiles, client: client, defaultAPIKey: defaultAPIKey}
}

// HandleWeather summarizes the forecast for a farmer's stored coordinates.
// A per-request key overrides the configured one.
func (h *WeatherHandler) HandleWeather(c *fiber.Ctx) error {
	lang := requestLanguage(c, "")

	name := strings.TrimSpace(c.Query("farmer_name"))
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": i18n.T(lang, "name_missing_error", nil),
		})
	}

	profiles, loadErr := h.profiles.Load()
	if loadErr != nil {
		logger.Warn("Profile table degraded during weather lookup", zap.Error(loadErr))
	}

	profile, found := csvstore.FindProfile(profiles, name)
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": i18n.T(lang, "profile_not_found_warning", i18n.Args{"name": name}),
		})
	}

	apiKey := strings.TrimSpace(c.Query("weather_api_key"))
	if apiKey == "" {
		apiKey = h.defaultAPIKey
	}

	result := h.client.Summarize(c.UserContext(), profile.Latitude, profile.Longitude, apiKey)
	if result.Status != weather.StatusSuccess {
		return c.JSON(fiber.Map{
			"farmer_name": name,
			"status":      result.Status,
			"message":     i18n.T(lang, "weather_data_error", i18n.Args{"message": result.Message}),
		})
	}

	return c.JSON(fiber.Map{
		"farmer_name":   name,
		"status":        result.Status,
		"location":      result.Location,
		"daily_summary": result.DailySummary,
	})
}
