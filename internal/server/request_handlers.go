package server

import (
	"gatepass/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ResolveRequest handles PATCH /requests/:username/:action
func (s *Server) ResolveRequest(c *fiber.Ctx) error {
	res, err := s.resolutionService.ResolveByUsername(c.UserContext(), c.Params("username"), c.Params("action"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// ResolveOutOfHostelRequest handles PATCH /warden/requests/:id/:action
func (s *Server) ResolveOutOfHostelRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.resolutionService.ResolveByID(c.UserContext(), id, c.Params("action"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// SubmitRequest handles POST /requests
func (s *Server) SubmitRequest(c *fiber.Ctx) error {
	var in service.SubmitRequestInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	res, err := s.requestService.Submit(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// GetPendingGateRequests handles GET /requests/pending
func (s *Server) GetPendingGateRequests(c *fiber.Ctx) error {
	requests, err := s.requestService.ListPendingGate(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(requests)
}

// GetPendingOutOfHostelRequests handles GET /warden/requests/pending
func (s *Server) GetPendingOutOfHostelRequests(c *fiber.Ctx) error {
	requests, err := s.requestService.ListPendingOutOfHostel(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(requests)
}

// GetPendingRequestsForUser handles GET /requests/:username
func (s *Server) GetPendingRequestsForUser(c *fiber.Ctx) error {
	requests, err := s.requestService.ListPendingForUser(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(requests)
}

// RunAlert handles POST /alert
func (s *Server) RunAlert(c *fiber.Ctx) error {
	report, err := s.alertService.Sweep(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(report)
}
