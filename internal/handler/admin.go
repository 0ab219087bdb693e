// This file defines the admin endpoints: event moderation (approve,
// reject, feature), review moderation, user management, booking
// cancellation and the platform commission split.

package handler

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/attendly/ticketing/internal/inventory"
	"github.com/attendly/ticketing/internal/model"
	"github.com/attendly/ticketing/internal/repository"
)

// AdminHandler bundles dependencies for admin endpoints.  The ledger is
// needed because moderation changes what is on sale: approving an event
// registers its tiers for reservation, rejecting or cancelling releases
// them.
type AdminHandler struct {
	Events     *repository.EventRepo
	Bookings   *repository.BookingRepo
	Reviews    *repository.ReviewRepo
	Users      *repository.UserRepo
	Commission *repository.CommissionRepo
	Stats      *repository.StatsRepo
	Ledger     *inventory.Ledger
}

// ListPendingEvents returns the moderation queue in submission order.
func (h *AdminHandler) ListPendingEvents(c echo.Context) error {
	events, err := h.Events.ListPending(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// ApproveEvent makes an event public and opens its tiers for sale by
// registering them with the inventory ledger.
func (h *AdminHandler) ApproveEvent(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()

	if err := h.Events.SetApproved(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "approve failed"})
	}
	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	for _, t := range ev.Tiers {
		h.Ledger.Register(t.ID, t.AvailableCount, t.TotalCapacity)
	}
	return c.JSON(http.StatusOK, echo.Map{"approved": true})
}

// RejectEvent deletes a pending event outright.  Rejection of an
// already-approved event is refused once bookings exist.
func (h *AdminHandler) RejectEvent(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	switch err := h.Events.Delete(ctx, id, 0); err {
	case nil:
	case repository.ErrConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": "event has confirmed bookings"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reject failed"})
	}
	for _, t := range ev.Tiers {
		h.Ledger.Drop(t.ID)
	}
	return c.NoContent(http.StatusNoContent)
}

// FeatureEvent toggles the landing-page highlight flag on an approved
// event.  Body: {"featured": true|false}.
func (h *AdminHandler) FeatureEvent(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Featured bool `json:"featured"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Events.SetFeatured(c.Request().Context(), id, req.Featured); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found or not approved"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "feature failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"featured": req.Featured})
}

// ListUsers returns every account for the user-management screen.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]userPart, 0, len(users))
	for _, u := range users {
		out = append(out, userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// SetUserActive activates or deactivates an account.
// Body: {"active": true|false}.
func (h *AdminHandler) SetUserActive(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Users.SetActive(c.Request().Context(), id, req.Active); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"active": req.Active})
}

// ListFlaggedReviews returns the review moderation queue.
func (h *AdminHandler) ListFlaggedReviews(c echo.Context) error {
	reviews, err := h.Reviews.ListFlagged(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": reviews})
}

// DismissReviewFlag clears the report and keeps the review.
func (h *AdminHandler) DismissReviewFlag(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Reviews.Unflag(c.Request().Context(), id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"flagged": false})
}

// DeleteReview removes a reported review.
func (h *AdminHandler) DeleteReview(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Reviews.Delete(c.Request().Context(), id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// CancelBooking voids a confirmed booking and returns its tickets to the
// tier, both in the database and in the live ledger.
func (h *AdminHandler) CancelBooking(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()

	b, err := h.Bookings.GetByID(ctx, id, 0)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	switch err := h.Bookings.Cancel(ctx, id); err {
	case nil:
	case sql.ErrNoRows:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case repository.ErrConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking not cancellable"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	h.Ledger.Restock(b.TierID, b.Quantity)
	return c.JSON(http.StatusOK, echo.Map{"status": model.BookingCancelled})
}

// GetStats returns the platform aggregates together with the commission
// breakdown of gross revenue under the current split.
func (h *AdminHandler) GetStats(c echo.Context) error {
	ctx := c.Request().Context()
	stats, err := h.Stats.System(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	cs, err := h.Commission.Get(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	adminCents, organizerCents := cs.Split(stats.GrossRevenueCents)
	return c.JSON(http.StatusOK, echo.Map{
		"stats": stats,
		"revenue": echo.Map{
			"gross_cents":           stats.GrossRevenueCents,
			"admin_share_cents":     adminCents,
			"organizer_share_cents": organizerCents,
			"admin_percentage":      cs.AdminPct,
			"organizer_percentage":  cs.OrganizerPct,
		},
	})
}

// GetCommission returns the platform revenue split.
func (h *AdminHandler) GetCommission(c echo.Context) error {
	cs, err := h.Commission.Get(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, cs)
}

// UpdateCommission replaces the split.  The two percentages must sum to
// 100.
func (h *AdminHandler) UpdateCommission(c echo.Context) error {
	var req model.CommissionSettings
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.AdminPct < 0 || req.OrganizerPct < 0 || req.AdminPct+req.OrganizerPct != 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "percentages must sum to 100"})
	}
	if err := h.Commission.Update(c.Request().Context(), req); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, req)
}
