package server

import (
	"commentguard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListRules returns every workflow rule in evaluation order
func (s *Server) ListRules(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"rules": s.workflowService.ListRules()})
}

// GetRule returns one workflow rule
func (s *Server) GetRule(c *fiber.Ctx) error {
	rule, err := s.workflowService.GetRule(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rule)
}

// CreateRule adds a workflow rule (protected)
func (s *Server) CreateRule(c *fiber.Ctx) error {
	var in models.RuleInput
	if err := bindBody(c, &in); err != nil {
		return nil
	}
	rule, err := s.workflowService.CreateRule(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rule)
}

// UpdateRule replaces the caller-owned fields of a rule (protected)
func (s *Server) UpdateRule(c *fiber.Ctx) error {
	var in models.RuleInput
	if err := bindBody(c, &in); err != nil {
		return nil
	}
	rule, err := s.workflowService.UpdateRule(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rule)
}

// ActivateRule turns a rule on (protected)
func (s *Server) ActivateRule(c *fiber.Ctx) error {
	return s.setRuleActive(c, true)
}

// DeactivateRule turns a rule off (protected)
func (s *Server) DeactivateRule(c *fiber.Ctx) error {
	return s.setRuleActive(c, false)
}

func (s *Server) setRuleActive(c *fiber.Ctx, active bool) error {
	rule, err := s.workflowService.SetActive(c.UserContext(), c.Params("id"), active)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rule)
}

// DeleteRule removes a rule; its executions stay in the log (protected)
func (s *Server) DeleteRule(c *fiber.Ctx) error {
	if err := s.workflowService.DeleteRule(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RunWorkflows runs every active rule over every stored comment (protected)
func (s *Server) RunWorkflows(c *fiber.Ctx) error {
	report, err := s.workflowService.RunAll(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// ListExecutions returns the most recent workflow executions, newest first
func (s *Server) ListExecutions(c *fiber.Ctx) error {
	limit := parseLimit(c, defaultExecutionLimit, maxExecutionLimit)
	execs := s.workflowService.Executions(limit)
	return c.JSON(fiber.Map{
		"executions": execs,
		"limit":      limit,
	})
}
