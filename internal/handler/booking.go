// This file defines the booking read endpoints: an attendee's booking
// history, a single booking, and the ticket QR code rendered as a PNG.

package handler

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/attendly/ticketing/internal/repository"
	"github.com/attendly/ticketing/internal/utils"
)

// BookingHandler bundles dependencies for booking endpoints.
type BookingHandler struct {
	Bookings *repository.BookingRepo
}

// ListMine returns the authenticated user's bookings in the order they
// were made.
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)
	bookings, err := h.Bookings.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": bookings})
}

// Get returns one booking owned by the authenticated user.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)
	id := strings.TrimSpace(c.Param("id"))
	b, err := h.Bookings.GetByID(c.Request().Context(), id, uid)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, b)
}

// QRCode renders the booking's ticket token as a PNG.  Query parameter
// ?size= controls the image edge in pixels (default 256).
func (h *BookingHandler) QRCode(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)
	id := strings.TrimSpace(c.Param("id"))
	b, err := h.Bookings.GetByID(c.Request().Context(), id, uid)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	size := 256
	if s := c.QueryParam("size"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1024 {
			size = n
		}
	}
	png, err := utils.TicketQRPNG(b.QRCode, size)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render qr failed"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
