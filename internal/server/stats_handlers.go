package server

import "github.com/gofiber/fiber/v2"

// GetUserStats handles GET /userstats
func (s *Server) GetUserStats(c *fiber.Ctx) error {
	stats, err := s.statsService.UserStats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// GetRequestStats handles GET /requeststats
func (s *Server) GetRequestStats(c *fiber.Ctx) error {
	stats, err := s.statsService.RequestStats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
