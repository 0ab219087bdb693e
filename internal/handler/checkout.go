// This file defines the checkout endpoints: opening a hold-backed
// session, adjusting quantity, submitting attendee details with payment,
// and cancelling.  The session id returned by Start is the handle for
// every subsequent call; the countdown shown to clients comes from the
// hold attached to the session.

package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/attendly/ticketing/internal/checkout"
	"github.com/attendly/ticketing/internal/model"
	"github.com/attendly/ticketing/internal/payment"
)

// CheckoutHandler bundles dependencies for checkout endpoints.
type CheckoutHandler struct {
	Checkout *checkout.Service
}

type startCheckoutReq struct {
	EventID  uint64 `json:"event_id"`
	TierID   uint64 `json:"tier_id"`
	Quantity int    `json:"quantity"`
}

type submitPaymentReq struct {
	Method    string                 `json:"method"` // card | upi | wallet
	Attendees []model.AttendeeDetail `json:"attendees"`
}

type quantityReq struct {
	Quantity int `json:"quantity"`
}

// sessionResp is the wire shape of a checkout session.  remaining_seconds
// is computed from the current hold so quantity changes restart the
// visible countdown.
type sessionResp struct {
	SessionID        string                 `json:"session_id"`
	State            string                 `json:"state"`
	EventID          uint64                 `json:"event_id"`
	TierID           uint64                 `json:"tier_id"`
	Quantity         int                    `json:"quantity"`
	UnitPriceCents   int64                  `json:"unit_price_cents"`
	TotalPriceCents  int64                  `json:"total_price_cents"`
	RemainingSeconds int                    `json:"remaining_seconds"`
	Attendees        []model.AttendeeDetail `json:"attendees"`
	Booking          *model.Booking         `json:"booking,omitempty"`
}

func sessionToResp(s *checkout.Session) sessionResp {
	h := s.Hold()
	qty := h.Quantity()
	return sessionResp{
		SessionID:        s.ID(),
		State:            string(s.State()),
		EventID:          h.EventID(),
		TierID:           h.TierID(),
		Quantity:         qty,
		UnitPriceCents:   h.UnitPriceCents(),
		TotalPriceCents:  h.UnitPriceCents() * int64(qty),
		RemainingSeconds: int(h.Remaining().Seconds()),
		Attendees:        s.Attendees(),
		Booking:          s.Booking(),
	}
}

// Start reserves tickets and opens a checkout session.
func (h *CheckoutHandler) Start(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)
	email := c.Request().Header.Get("X-User-Email") // optional; booking falls back to account email
	var req startCheckoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	s, err := h.Checkout.Start(c.Request().Context(), uid, email, req.EventID, req.TierID, req.Quantity)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(http.StatusCreated, sessionToResp(s))
}

// Get returns the live state of a session, including the countdown.
func (h *CheckoutHandler) Get(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)
	s, err := h.Checkout.Get(c.Param("id"), uid)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	return c.JSON(http.StatusOK, sessionToResp(s))
}

// SetQuantity changes the ticket count before payment.  The old hold is
// released and a new one created, restarting the countdown.
func (h *CheckoutHandler) SetQuantity(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)
	s, err := h.Checkout.Get(c.Param("id"), uid)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	var req quantityReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := s.SetQuantity(req.Quantity); err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(http.StatusOK, sessionToResp(s))
}

// SubmitPayment validates attendees, charges the processor and converts
// the hold into a booking.  On success the booking is returned inline.
func (h *CheckoutHandler) SubmitPayment(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)
	s, err := h.Checkout.Get(c.Param("id"), uid)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	var req submitPaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	b, err := s.SubmitPayment(c.Request().Context(), req.Method, req.Attendees)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Cancel abandons the session, releasing its hold immediately.
func (h *CheckoutHandler) Cancel(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)
	s, err := h.Checkout.Get(c.Param("id"), uid)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	s.Cancel()
	return c.NoContent(http.StatusNoContent)
}

// checkoutError maps the checkout and inventory error taxonomy onto HTTP
// statuses.  Validation failures carry the offending attendee index and
// field so the client can highlight the form entry.
func checkoutError(c echo.Context, err error) error {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		if ve.Field == "" {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": ve.Error()})
		}
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error": ve.Error(), "attendee_index": ve.Index, "field": ve.Field,
		})
	case errors.Is(err, model.ErrOutOfStock):
		return c.JSON(http.StatusConflict, echo.Map{"error": "not enough tickets available"})
	case errors.Is(err, model.ErrInvalidQuantity):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid quantity"})
	case errors.Is(err, model.ErrHoldAlreadyActive):
		return c.JSON(http.StatusConflict, echo.Map{"error": "an active hold already exists for this tier"})
	case errors.Is(err, model.ErrHoldExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "hold expired, tickets returned to sale"})
	case errors.Is(err, model.ErrHoldNotActive):
		return c.JSON(http.StatusConflict, echo.Map{"error": "hold no longer active"})
	case errors.Is(err, payment.ErrDeclined):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment declined, you may try again while the hold lasts"})
	case errors.Is(err, payment.ErrUnsupportedMethod):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported payment method"})
	case errors.Is(err, model.ErrDuplicateID), errors.Is(err, model.ErrPersistence):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not record booking, payment will be reversed"})
	case errors.Is(err, checkout.ErrSessionClosed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "checkout session closed"})
	case errors.Is(err, checkout.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	case errors.Is(err, checkout.ErrEventUnavailable):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not available"})
	case errors.Is(err, checkout.ErrTierNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket tier not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "checkout failed"})
	}
}
