// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a checkout completes and a booking
// is durably recorded.  It contains enough information for downstream
// consumers to log, send confirmation email, or trigger analytics without
// querying the primary database.
// EmailBroadcastEvent is one outbound email of an organizer broadcast.
// The handler fans a broadcast out to one message per recipient so a
// single bad address never blocks the rest of the batch.
type EmailBroadcastEvent struct {
	EventID     uint64 `json:"event_id"`
	EventTitle  string `json:"event_title"`
	OrganizerID uint64 `json:"organizer_id"`
	Recipient   string `json:"recipient"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	SentAt      string `json:"sent_at"`
}

type BookingConfirmedEvent struct {
	BookingID       string `json:"booking_id"`
	UserID          uint64 `json:"user_id"`
	UserEmail       string `json:"user_email"`
	EventID         uint64 `json:"event_id"`
	EventTitle      string `json:"event_title"`
	TierName        string `json:"tier_name"`
	Quantity        int    `json:"quantity"`
	TotalPriceCents int64  `json:"total_price_cents"`
	TransactionID   string `json:"transaction_id"`
	ConfirmedAt     string `json:"confirmed_at"`
}
