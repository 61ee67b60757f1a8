package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"cardscout.app/showpipe/internal/db"
	"cardscout.app/showpipe/internal/moderation"
)

type moderationRequest struct {
	Corrections *moderation.Corrections `json:"corrections,omitempty"`
	Notes       *string                 `json:"notes,omitempty"`
}

func (s *Server) handlePendingList(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	offset, err := parsePositiveInt(c.QueryParam("offset"), 0, 0, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"offset": err.Error()})
	}
	status, err := pendingStatusParam(c.QueryParam("status"))
	if err != nil {
		return failValidation(c, map[string]string{"status": err.Error()})
	}

	total, items, err := s.moderator.List(c.Request().Context(), status, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Msg("query pending queue failed")
		return internalError(c, "Failed to load pending shows")
	}

	return success(c, map[string]any{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handlePendingDetail(c echo.Context) error {
	id, ok := pendingIDParam(c)
	if !ok {
		return failValidation(c, map[string]string{"id": "must be a positive integer"})
	}

	row, err := s.moderator.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, moderation.ErrNotFound) {
			return failNotFound(c, "Pending show not found")
		}
		s.logger.Error().Err(err).Int64("pending_show_id", id).Msg("query pending show failed")
		return internalError(c, "Failed to load pending show")
	}

	return success(c, row)
}

func (s *Server) handleApprove(c echo.Context) error {
	id, ok := pendingIDParam(c)
	if !ok {
		return failValidation(c, map[string]string{"id": "must be a positive integer"})
	}

	var req moderationRequest
	if c.Request().ContentLength > 0 {
		if err := decodeJSONBody(c, &req); err != nil {
			return failValidation(c, map[string]string{"body": err.Error()})
		}
	}

	principal, _ := principalFromContext(c)
	show, err := s.moderator.Approve(c.Request().Context(), actorFromPrincipal(principal), id, req.Corrections, req.Notes)
	if err != nil {
		return s.moderationError(c, id, err, "approve")
	}

	return successWithStatus(c, http.StatusCreated, map[string]any{"show": show})
}

func (s *Server) handleReject(c echo.Context) error {
	id, ok := pendingIDParam(c)
	if !ok {
		return failValidation(c, map[string]string{"id": "must be a positive integer"})
	}

	var req moderationRequest
	if c.Request().ContentLength > 0 {
		if err := decodeJSONBody(c, &req); err != nil {
			return failValidation(c, map[string]string{"body": err.Error()})
		}
	}

	principal, _ := principalFromContext(c)
	if err := s.moderator.Reject(c.Request().Context(), actorFromPrincipal(principal), id, req.Notes); err != nil {
		return s.moderationError(c, id, err, "reject")
	}

	return success(c, map[string]any{"rejected": true})
}

func (s *Server) handleEdit(c echo.Context) error {
	id, ok := pendingIDParam(c)
	if !ok {
		return failValidation(c, map[string]string{"id": "must be a positive integer"})
	}

	var req moderationRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if req.Corrections == nil {
		return failValidation(c, map[string]string{"corrections": "replacement payload is required"})
	}

	principal, _ := principalFromContext(c)
	updated, err := s.moderator.Edit(c.Request().Context(), actorFromPrincipal(principal), id, *req.Corrections, req.Notes)
	if err != nil {
		return s.moderationError(c, id, err, "edit")
	}

	return success(c, updated)
}

func (s *Server) moderationError(c echo.Context, id int64, err error, action string) error {
	switch {
	case errors.Is(err, moderation.ErrNotFound):
		return failNotFound(c, "Pending show not found")
	case errors.Is(err, moderation.ErrForbidden):
		return fail(c, http.StatusForbidden, "Admin access required", nil)
	default:
		s.logger.Error().Err(err).Int64("pending_show_id", id).Str("action", action).Msg("moderation action failed")
		return internalError(c, "Moderation action failed")
	}
}

func actorFromPrincipal(principal authPrincipal) moderation.Actor {
	return moderation.Actor{
		UserID:   principal.UserID,
		Username: principal.Username,
		IsAdmin:  principal.IsAdmin,
	}
}

func pendingStatusParam(raw string) (string, error) {
	status := strings.ToUpper(strings.TrimSpace(raw))
	switch status {
	case "", db.StatusPending, db.StatusActive, db.StatusRejected:
		return status, nil
	default:
		return "", errors.New("must be one of PENDING, ACTIVE, REJECTED")
	}
}

func pendingIDParam(c echo.Context) (int64, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
