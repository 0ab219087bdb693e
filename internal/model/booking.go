package model

import "time"

// Booking status values.  A booking is created CONFIRMED by checkout;
// PENDING and CANCELLED only ever result from moderation actions
// performed outside the checkout flow.
const (
	BookingConfirmed = "CONFIRMED"
	BookingPending   = "PENDING"
	BookingCancelled = "CANCELLED"
)

// AttendeeDetail holds the per-ticket contact information collected
// during checkout.  One entry exists for every ticket in a booking.
type AttendeeDetail struct {
	Name  string `json:"name"`  // booking_attendees.name
	Email string `json:"email"` // booking_attendees.email
	Phone string `json:"phone"` // booking_attendees.phone
}

// Booking is the durable record of a completed purchase.  It is
// append-only from the checkout flow's perspective; only the Status
// field may change afterwards, and only through admin moderation.
//
// Fields:
//  ID             – collision-resistant identifier (UUID).
//  UserID         – attendee who made the purchase.
//  UserEmail      – attendee's account email, used for notifications.
//  EventID        – event the tickets are for.
//  EventTitle     – denormalized title for listings and notifications.
//  TierID         – ticket tier purchased.
//  TierName       – denormalized tier name.
//  Quantity       – number of tickets; equals len(Attendees).
//  UnitPriceCents – tier price at purchase time, in minor units.
//  TotalPriceCents– UnitPriceCents * Quantity.
//  Attendees      – contact details, one per ticket.
//  BookingDate    – when the purchase was committed.
//  QRCode         – opaque token encoded into the entry QR image.
//  TransactionID  – reference returned by the payment processor.
//  Status         – CONFIRMED, PENDING or CANCELLED.
type Booking struct {
	ID              string           `json:"id"`
	UserID          uint64           `json:"user_id"`
	UserEmail       string           `json:"user_email"`
	EventID         uint64           `json:"event_id"`
	EventTitle      string           `json:"event_title"`
	TierID          uint64           `json:"tier_id"`
	TierName        string           `json:"tier_name"`
	Quantity        int              `json:"quantity"`
	UnitPriceCents  int64            `json:"unit_price_cents"`
	TotalPriceCents int64            `json:"total_price_cents"`
	Attendees       []AttendeeDetail `json:"attendee_details"`
	BookingDate     time.Time        `json:"booking_date"`
	QRCode          string           `json:"qr_code"`
	TransactionID   string           `json:"transaction_id"`
	Status          string           `json:"status"`
}
