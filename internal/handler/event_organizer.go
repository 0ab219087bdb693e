// This file defines handlers for organizer event management.  An
// organizer creates events (which start unapproved), edits their
// descriptive fields, and views the bookings made against their own
// events.  Tier capacity is fixed once the event is created.

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

// OrganizerHandler bundles dependencies for organizer endpoints.
type OrganizerHandler struct {
	Events   *repository.EventRepo
	Bookings *repository.BookingRepo
}

type tierReq struct {
	Name          string   `json:"name"`
	PriceCents    int64    `json:"price_cents"`
	TotalCapacity int      `json:"total_capacity"`
	Features      []string `json:"features"`
}

type eventReq struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Venue       string    `json:"venue"`
	Location    string    `json:"location"`
	Tiers       []tierReq `json:"ticket_tiers"`
}

func (r *eventReq) validate(requireTiers bool) string {
	switch {
	case strings.TrimSpace(r.Title) == "":
		return "title required"
	case strings.TrimSpace(r.Date) == "":
		return "date required"
	case strings.TrimSpace(r.Venue) == "":
		return "venue required"
	}
	if requireTiers && len(r.Tiers) == 0 {
		return "at least one ticket tier required"
	}
	for _, t := range r.Tiers {
		if strings.TrimSpace(t.Name) == "" {
			return "tier name required"
		}
		if t.PriceCents < 0 {
			return "tier price must not be negative"
		}
		if t.TotalCapacity < 1 {
			return "tier capacity must be positive"
		}
	}
	return ""
}

// CreateEvent inserts a new unapproved event with its tiers.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)
	name, _ := c.Get("name").(string)

	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(true); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ev := &model.Event{
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Category:      req.Category,
		Date:          req.Date,
		Time:          req.Time,
		Venue:         req.Venue,
		Location:      req.Location,
		OrganizerID:   uid,
		OrganizerName: name,
	}
	for _, t := range req.Tiers {
		ev.Tiers = append(ev.Tiers, model.TicketTier{
			Name:          strings.TrimSpace(t.Name),
			PriceCents:    t.PriceCents,
			TotalCapacity: t.TotalCapacity,
			Features:      t.Features,
		})
	}

	if err := h.Events.Create(c.Request().Context(), ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, ev)
}

// ListMyEvents returns every event the organizer created, approved or
// not.
func (h *OrganizerHandler) ListMyEvents(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)
	events, err := h.Events.ListByOrganizer(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// UpdateEvent rewrites the descriptive fields of an event the organizer
// owns.  Tiers cannot be edited once created.
func (h *OrganizerHandler) UpdateEvent(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(false); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ev := &model.Event{
		ID:          id,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    req.Category,
		Date:        req.Date,
		Time:        req.Time,
		Venue:       req.Venue,
		Location:    req.Location,
	}
	switch err := h.Events.Update(c.Request().Context(), ev, uid); err {
	case nil:
		return c.JSON(http.StatusOK, echo.Map{"updated": true})
	case sql.ErrNoRows:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update event failed"})
	}
}

// DeleteEvent removes an event the organizer owns, unless bookings exist.
func (h *OrganizerHandler) DeleteEvent(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	switch err := h.Events.Delete(c.Request().Context(), id, uid); err {
	case nil:
		return c.NoContent(http.StatusNoContent)
	case sql.ErrNoRows:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case repository.ErrConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": "event has confirmed bookings"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete event failed"})
	}
}

// ListEventBookings returns the bookings for one of the organizer's own
// events, in the order they were made.
func (h *OrganizerHandler) ListEventBookings(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)
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
	if ev.OrganizerID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	bookings, err := h.Bookings.ListByEvent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": bookings})
}
