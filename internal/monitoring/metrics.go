// Package monitoring exposes Prometheus metrics for the reservation and
// checkout flow.  Collectors are registered via promauto at package init
// and served from the /metrics endpoint.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	holdsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_holds_created_total",
			Help: "Total reservation holds created",
		},
	)

	holdsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_holds_resolved_total",
			Help: "Total holds that reached a terminal state",
		},
		[]string{"outcome"}, // expired, cancelled, committed, failed
	)

	bookingsConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_bookings_confirmed_total",
			Help: "Total bookings committed by checkout",
		},
	)

	ticketsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_tickets_sold_total",
			Help: "Total tickets sold across all bookings",
		},
	)

	checkoutFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_checkout_failures_total",
			Help: "Checkout attempts that failed, by reason",
		},
		[]string{"reason"},
	)
)

// HoldCreated records a newly created reservation hold.
func HoldCreated() { holdsCreated.Inc() }

// HoldResolved records a hold reaching a terminal state.
func HoldResolved(outcome string) { holdsResolved.WithLabelValues(outcome).Inc() }

// BookingConfirmed records a committed booking and its ticket count.
func BookingConfirmed(quantity int) {
	bookingsConfirmed.Inc()
	ticketsSold.Add(float64(quantity))
}

// CheckoutFailed records a failed checkout attempt with a coarse reason
// label (out_of_stock, validation, hold_expired, persistence, payment).
func CheckoutFailed(reason string) { checkoutFailures.WithLabelValues(reason).Inc() }
