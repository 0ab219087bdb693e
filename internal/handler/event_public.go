// This file defines handlers for the public catalogue API. These routes
// allow unauthenticated users to browse approved events and their reviews.
// Unapproved events are invisible here regardless of who asks.

package handler

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/attendly/ticketing/internal/repository"
)

// PublicHandler aggregates repositories needed for unauthenticated
// browsing.
type PublicHandler struct {
	Events  *repository.EventRepo
	Reviews *repository.ReviewRepo
}

// ListEvents returns approved events.  Optional query parameters:
// ?category= narrows to one category, ?search= matches title, venue or
// location substrings.
func (h *PublicHandler) ListEvents(c echo.Context) error {
	ctx := c.Request().Context()
	events, err := h.Events.ListApproved(ctx, c.QueryParam("category"), c.QueryParam("search"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// ListFeatured returns the admin-curated landing page highlights.
func (h *PublicHandler) ListFeatured(c echo.Context) error {
	ctx := c.Request().Context()
	events, err := h.Events.ListFeatured(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// GetEvent returns one approved event with its tiers and live
// availability counts.
func (h *PublicHandler) GetEvent(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ev.Approved {
		// Pending events are indistinguishable from absent ones.
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	return c.JSON(http.StatusOK, ev)
}

// ListEventReviews returns the reviews of an approved event, newest
// first.
func (h *PublicHandler) ListEventReviews(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ev.Approved {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	reviews, err := h.Reviews.ListByEvent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": reviews})
}
