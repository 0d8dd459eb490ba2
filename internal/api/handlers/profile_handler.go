package handlers

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/krishi-sahayak/backend/internal/i18n"
	"github.com/krishi-sahayak/backend/internal/metrics"
	"github.com/krishi-sahayak/backend/internal/storage/csvstore"
	"github.com/krishi-sahayak/backend/internal/storage/models"
	"github.com/krishi-sahayak/backend/pkg/logger"
)

type ProfileHandler struct {
	store *csvstore.ProfileStore
}

func NewProfileHandler(store *csvstore.ProfileStore) *ProfileHandler {
	return &ProfileHandler{store: store}
}

type profileRequest struct {
	Name       string  `json:"name"`
	Language   string  `json:"language"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	SoilType   string  `json:"soil_type"`
	FarmSizeHa float64 `json:"farm_size_ha"`
}

func (r profileRequest) toModel() models.FarmerProfile {
	return models.FarmerProfile{
		Name:       r.Name,
		Language:   r.Language,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		SoilType:   r.SoilType,
		FarmSizeHa: r.FarmSizeHa,
	}
}

func (h *ProfileHandler) ListProfiles(c *fiber.Ctx) error {
	profiles, err := h.store.Load()
	resp := fiber.Map{"profiles": profiles}
	if err != nil {
		// Degraded load: empty collection plus a non-fatal warning.
		resp["warning"] = err.Error()
	}
	return c.JSON(resp)
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	name, lang := profileParams(c)

	profiles, loadErr := h.store.Load()
	if loadErr != nil {
		logger.Warn("Profile table degraded during lookup", zap.Error(loadErr))
	}

	profile, found := csvstore.FindProfile(profiles, name)
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": i18n.T(lang, "profile_not_found_warning", i18n.Args{"name": name}),
		})
	}

	return c.JSON(fiber.Map{
		"profile": profile,
		"notice":  i18n.T(lang, "profile_loaded_success", i18n.Args{"name": profile.Name}),
	})
}

// CreateProfile never silently overwrites: an existing name routes to the
// load-existing path with a transient notice.
func (h *ProfileHandler) CreateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	lang := requestLanguage(c, req.Language)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": i18n.T(lang, "name_missing_error", nil),
		})
	}

	profiles, loadErr := h.store.Load()
	if loadErr != nil {
		logger.Warn("Profile table degraded during create", zap.Error(loadErr))
	}

	if existing, found := csvstore.FindProfile(profiles, name); found {
		return c.JSON(fiber.Map{
			"profile": existing,
			"notice":  i18n.T(lang, "profile_exists_warning", i18n.Args{"name": name}),
		})
	}

	profiles = csvstore.UpsertProfile(profiles, req.toModel())
	if err := h.store.Save(profiles); err != nil {
		metrics.ProfileSaveTotal.WithLabelValues("error").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": i18n.T(lang, "processing_error", i18n.Args{"e": "could not save profile"}),
		})
	}
	metrics.ProfileSaveTotal.WithLabelValues("success").Inc()

	saved, _ := csvstore.FindProfile(profiles, name)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"profile": saved,
		"notice":  i18n.T(lang, "profile_saved_success", i18n.Args{"name": saved.Name}),
	})
}

// UpdateProfile is a full-row replace keyed by the path name.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	name, lang := profileParams(c)
	if req.Language != "" {
		lang = requestLanguage(c, req.Language)
	}
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": i18n.T(lang, "name_missing_error", nil),
		})
	}
	req.Name = name

	profiles, loadErr := h.store.Load()
	if loadErr != nil {
		logger.Warn("Profile table degraded during update", zap.Error(loadErr))
	}

	profiles = csvstore.UpsertProfile(profiles, req.toModel())
	if err := h.store.Save(profiles); err != nil {
		metrics.ProfileSaveTotal.WithLabelValues("error").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": i18n.T(lang, "processing_error", i18n.Args{"e": "could not save profile"}),
		})
	}
	metrics.ProfileSaveTotal.WithLabelValues("success").Inc()

	saved, _ := csvstore.FindProfile(profiles, name)
	return c.JSON(fiber.Map{
		"profile": saved,
		"notice":  i18n.T(lang, "profile_saved_success", i18n.Args{"name": saved.Name}),
	})
}

// Meta exposes the fixed catalogues the profile form is built from.
func (h *ProfileHandler) Meta(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"soil_types": models.SoilTypes,
		"languages":  models.Languages,
		"locales":    i18n.Locales(),
	})
}

func profileParams(c *fiber.Ctx) (name, lang string) {
	name = strings.TrimSpace(c.Params("name"))
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	return name, requestLanguage(c, "")
}

func requestLanguage(c *fiber.Ctx, bodyLang string) string {
	if bodyLang != "" {
		return bodyLang
	}
	if q := c.Query("language"); q != "" {
		return q
	}
	return models.DefaultLanguage
}
