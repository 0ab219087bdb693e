package queue_publisher

import (
	"context"
	"log"
	"time"

	"github.com/attendly/ticketing/internal/model"
	q "github.com/attendly/ticketing/internal/queue"
)

// BookingNotifier adapts the queue publisher to the checkout flow's
// fire-and-forget notification hook.  Publishing happens on its own
// goroutine so a slow or unreachable broker never delays the checkout
// response; failures are logged and dropped.
type BookingNotifier struct {
	// Timeout bounds one publish attempt.  Zero selects 5 seconds.
	Timeout time.Duration
}

// BookingConfirmed publishes the booking asynchronously.
func (n *BookingNotifier) BookingConfirmed(b *model.Booking) {
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ev := q.BookingConfirmedEvent{
		BookingID:       b.ID,
		UserID:          b.UserID,
		UserEmail:       b.UserEmail,
		EventID:         b.EventID,
		EventTitle:      b.EventTitle,
		TierName:        b.TierName,
		Quantity:        b.Quantity,
		TotalPriceCents: b.TotalPriceCents,
		TransactionID:   b.TransactionID,
		ConfirmedAt:     b.BookingDate.UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := PublishBookingConfirmed(ctx, ev); err != nil {
			log.Printf("booking-notifier: publish for booking %s failed: %v", b.ID, err)
		}
	}()
}
