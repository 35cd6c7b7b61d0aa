package server

import (
	"commentguard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetSettings returns the current moderation settings
func (s *Server) GetSettings(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"settings": s.settingsService.Get(),
		"version":  s.settingsService.Version(),
	})
}

// ReplaceSettings replaces the moderation settings as a whole (protected)
func (s *Server) ReplaceSettings(c *fiber.Ctx) error {
	var next models.ModerationSettings
	if err := bindBody(c, &next); err != nil {
		return nil
	}

	saved, err := s.settingsService.Replace(c.UserContext(), next)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"settings": saved,
		"version":  s.settingsService.Version(),
	})
}
