package server

import (
	"commentguard/internal/models"
	"commentguard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ingestRequest accepts a batch as {"comments": [...]}.
type ingestRequest struct {
	Comments []models.CommentInput `json:"comments"`
}

// IngestComments classifies and stores a batch of comments (protected)
func (s *Server) IngestComments(c *fiber.Ctx) error {
	var req ingestRequest
	if err := bindBody(c, &req); err != nil {
		return nil
	}
	if len(req.Comments) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("comments must not be empty"))
	}

	result, err := s.commentService.Ingest(c.UserContext(), req.Comments)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// ListComments returns stored comments, optionally narrowed to one post
func (s *Server) ListComments(c *fiber.Ctx) error {
	comments := s.commentService.List(service.ListFilter{
		PostID:        c.Query("post_id"),
		IncludeHidden: c.QueryBool("include_hidden", true),
		FlaggedOnly:   c.QueryBool("flagged", false),
	})
	return c.JSON(fiber.Map{
		"comments": comments,
		"total":    len(comments),
	})
}

// GetComment returns one comment
func (s *Server) GetComment(c *fiber.Ctx) error {
	comment, err := s.commentService.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// ExplainComment returns the keyword matches behind a comment's flags
func (s *Server) ExplainComment(c *fiber.Ctx) error {
	matches, err := s.commentService.Explain(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"comment_id": c.Params("id"),
		"matches":    matches,
	})
}

// HideComment hides a comment through the action sink (protected)
func (s *Server) HideComment(c *fiber.Ctx) error {
	return s.setHidden(c, true)
}

// UnhideComment makes a hidden comment visible again (protected)
func (s *Server) UnhideComment(c *fiber.Ctx) error {
	return s.setHidden(c, false)
}

func (s *Server) setHidden(c *fiber.Ctx, hidden bool) error {
	comment, err := s.commentService.SetHidden(c.UserContext(), c.Params("id"), hidden)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment deletes a comment through the action sink (protected)
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	if _, err := s.commentService.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RemoderateComment re-runs classification and auto-hide on one comment (protected)
func (s *Server) RemoderateComment(c *fiber.Ctx) error {
	comment, err := s.commentService.Remoderate(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// RemoderateAll re-runs classification and auto-hide on every comment (protected)
func (s *Server) RemoderateAll(c *fiber.Ctx) error {
	n, err := s.commentService.RemoderateAll(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"remoderated": n})
}
