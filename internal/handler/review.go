// This file defines the authenticated review endpoints: posting a review
// on an approved event and reporting one for moderation.

package handler

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/attendly/ticketing/internal/model"
	"github.com/attendly/ticketing/internal/repository"
)

// ReviewHandler bundles dependencies for review endpoints.
type ReviewHandler struct {
	Reviews *repository.ReviewRepo
	Events  *repository.EventRepo
}

type reviewReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Create posts a review on an approved event.
func (h *ReviewHandler) Create(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)
	name, _ := c.Get("name").(string)
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be 1-5"})
	}
	ctx := c.Request().Context()

	ev, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ev.Approved {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}

	rv := &model.Review{
		EventID: eventID,
		UserID:  uid,
		UserName: name,
		Rating:  req.Rating,
		Comment: strings.TrimSpace(req.Comment),
	}
	if err := h.Reviews.Create(ctx, rv); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create review failed"})
	}
	return c.JSON(http.StatusCreated, rv)
}

// Flag reports a review for admin moderation.
func (h *ReviewHandler) Flag(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Reviews.Flag(c.Request().Context(), id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "flag failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"flagged": true})
}
