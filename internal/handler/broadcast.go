// This file implements the organizer broadcast: one message to every
// attendee of an event, fanned out through the email.broadcast queue so
// delivery happens off the request path.

package handler

import (
	"database/sql"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/attendly/ticketing/internal/model"
	"github.com/attendly/ticketing/internal/queue"
	queue_publisher "github.com/attendly/ticketing/internal/service"
)

type broadcastReq struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// BroadcastEmail queues one email per distinct attendee address across
// the event's bookings.  Cancelled bookings are skipped.  The response
// reports how many recipients were queued; individual publish failures
// reduce the count but do not fail the request.
func (h *OrganizerHandler) BroadcastEmail(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	var req broadcastReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	if req.Subject == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "subject and message required"})
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

	recipients := broadcastRecipients(bookings)
	sentAt := time.Now().UTC().Format(time.RFC3339)
	queued := 0
	for _, to := range recipients {
		pubErr := queue_publisher.PublishEmailBroadcast(ctx, queue.EmailBroadcastEvent{
			EventID:     ev.ID,
			EventTitle:  ev.Title,
			OrganizerID: uid,
			Recipient:   to,
			Subject:     req.Subject,
			Message:     req.Message,
			SentAt:      sentAt,
		})
		if pubErr == nil {
			queued++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"recipients": len(recipients), "queued": queued})
}

// broadcastRecipients collects the distinct email addresses reachable
// through an event's non-cancelled bookings: the booking account email
// plus every attendee email entered at checkout.  Output is sorted so
// fan-out order is deterministic.
func broadcastRecipients(bookings []model.Booking) []string {
	seen := map[string]bool{}
	for _, b := range bookings {
		if b.Status == model.BookingCancelled {
			continue
		}
		if e := strings.ToLower(strings.TrimSpace(b.UserEmail)); e != "" {
			seen[e] = true
		}
		for _, a := range b.Attendees {
			if e := strings.ToLower(strings.TrimSpace(a.Email)); e != "" {
				seen[e] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
