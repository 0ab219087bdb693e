package model

// SystemStats is the platform-wide aggregate snapshot served to admins:
// account, event, and booking totals plus gross revenue over confirmed
// bookings.  Revenue is in minor units like every price in the system.
type SystemStats struct {
	TotalUsers        int   `json:"total_users"`
	TotalEvents       int   `json:"total_events"`
	ApprovedEvents    int   `json:"approved_events"`
	PendingEvents     int   `json:"pending_events"`
	TotalBookings     int   `json:"total_bookings"`
	CancelledBookings int   `json:"cancelled_bookings"`
	TicketsSold       int   `json:"tickets_sold"`
	GrossRevenueCents int64 `json:"gross_revenue_cents"`
}
