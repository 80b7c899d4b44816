package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/redline/internal/diff"
	"github.com/redline/internal/resource"
	"github.com/redline/internal/review"
	"github.com/redline/internal/session"
	"github.com/redline/pkg/models"
)

type createEditRequest struct {
	ResourceID      string `json:"resourceId"`
	ProposedContent string `json:"proposedContent"`
	Summary         string `json:"summary"`
}

type proposeEditRequest struct {
	ResourceID  string `json:"resourceId"`
	Instruction string `json:"instruction"`
}

type decisionRequest struct {
	Status      models.DecisionStatus `json:"status"`
	RevisedText *string               `json:"revisedText"`
}

// sessionResponse is the wire shape of an edit session. Hunks are
// display-truncated copies; the session itself keeps full text.
type sessionResponse struct {
	ID           string              `json:"id"`
	ResourceID   string              `json:"resourceId"`
	BaseVersion  int64               `json:"baseVersion"`
	Summary      string              `json:"summary"`
	CreatedBy    string              `json:"createdBy"`
	CreatedAt    time.Time           `json:"createdAt"`
	Resolved     bool                `json:"resolved"`
	Hunks        []models.HunkState  `json:"hunks"`
	StatusCounts models.StatusCounts `json:"statusCounts"`
}

func (s *Server) sessionResponse(sess session.EditSession) sessionResponse {
	return sessionResponse{
		ID:           sess.ID,
		ResourceID:   sess.ResourceID,
		BaseVersion:  sess.BaseVersion,
		Summary:      sess.Summary,
		CreatedBy:    sess.CreatedBy,
		CreatedAt:    sess.CreatedAt,
		Resolved:     sess.Resolved(),
		Hunks:        diff.TruncateForDisplay(sess.Hunks, s.maxUnchangedLines),
		StatusCounts: sess.StatusCounts(),
	}
}

func (s *Server) createEdit(c echo.Context) error {
	var req createEditRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.ResourceID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "resourceId is required"})
	}

	sess, err := s.service.Create(c.Request().Context(), req.ResourceID, req.ProposedContent, req.Summary, creatorIdentity(c))
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, s.sessionResponse(sess))
}

func (s *Server) proposeEdit(c echo.Context) error {
	var req proposeEditRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.ResourceID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "resourceId is required"})
	}
	if req.Instruction == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "instruction is required"})
	}

	sess, err := s.service.Propose(c.Request().Context(), req.ResourceID, req.Instruction, creatorIdentity(c))
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, s.sessionResponse(sess))
}

func (s *Server) getEdit(c echo.Context) error {
	sess, err := s.service.Get(c.Param("id"))
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, s.sessionResponse(sess))
}

func (s *Server) getPendingHunks(c echo.Context) error {
	pending, err := s.service.PendingHunks(c.Param("id"))
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"hunks": pending,
		"count": len(pending),
	})
}

func (s *Server) setHunkDecision(c echo.Context) error {
	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	sess, err := s.service.SetHunkDecision(c.Param("id"), c.Param("hunkID"), req.Status, req.RevisedText)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"hunks":        diff.TruncateForDisplay(sess.Hunks, s.maxUnchangedLines),
		"statusCounts": sess.StatusCounts(),
		"resolved":     sess.Resolved(),
	})
}

func (s *Server) applyEdit(c echo.Context) error {
	updated, err := s.service.Apply(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, updated)
}

func (s *Server) discardEdit(c echo.Context) error {
	sess, err := s.service.Discard(c.Param("id"))
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, s.sessionResponse(sess))
}

// writeError maps domain errors onto HTTP statuses. Structured errors keep
// their fields in the payload next to the message.
func (s *Server) writeError(c echo.Context, err error) error {
	var (
		sessionNotFound  *session.NotFoundError
		hunkNotFound     *session.HunkNotFoundError
		resourceNotFound *resource.NotFoundError
		conflict         *resource.VersionConflictError
		unresolved       *review.UnresolvedHunksError
		invalidStatus    *session.InvalidStatusError
		proposal         *review.ProposalError
	)

	switch {
	case errors.As(err, &sessionNotFound),
		errors.As(err, &hunkNotFound),
		errors.As(err, &resourceNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})

	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":    err.Error(),
			"expected": conflict.Expected,
			"found":    conflict.Found,
		})

	case errors.As(err, &unresolved):
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": err.Error(),
			"count": unresolved.Count,
			"ids":   unresolved.IDs,
		})

	case errors.As(err, &invalidStatus),
		errors.Is(err, session.ErrRevertToPending),
		errors.Is(err, session.ErrRevisedTextMissing),
		errors.Is(err, session.ErrUnchangedHunk):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})

	case errors.As(err, &proposal):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
