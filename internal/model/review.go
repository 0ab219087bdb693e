package model

import "time"

// Review is an attendee's rating and comment for an event.  Reviews can
// be flagged by any authenticated user and are then surfaced to admins
// for moderation.
//
// Fields:
//  ID        – primary key identifier.
//  EventID   – event being reviewed.
//  UserID    – author of the review.
//  UserName  – denormalized author display name.
//  Rating    – 1..5 stars.
//  Comment   – free-form text.
//  Flagged   – set when a user reports the review.
//  CreatedAt – timestamp of creation.
type Review struct {
	ID        uint64    `json:"id"`         // reviews.id
	EventID   uint64    `json:"event_id"`   // reviews.event_id
	UserID    uint64    `json:"user_id"`    // reviews.user_id
	UserName  string    `json:"user_name"`  // reviews.user_name
	Rating    int       `json:"rating"`     // reviews.rating
	Comment   string    `json:"comment"`    // reviews.comment
	Flagged   bool      `json:"flagged"`    // reviews.flagged
	CreatedAt time.Time `json:"created_at"` // reviews.created_at
}

// CommissionSettings is the platform-wide revenue split between the
// platform and organizers.  The two percentages always sum to 100.
type CommissionSettings struct {
	AdminPct     int       `json:"admin_percentage"`     // commission_settings.admin_pct
	OrganizerPct int       `json:"organizer_percentage"` // commission_settings.organizer_pct
	UpdatedAt    time.Time `json:"updated_at"`           // commission_settings.updated_at
}

// Split divides gross revenue (minor units) between the platform and
// organizers.  The platform share rounds down and the organizer share
// takes the remainder, so the two always sum to the gross amount.
func (cs CommissionSettings) Split(grossCents int64) (adminCents, organizerCents int64) {
	adminCents = grossCents * int64(cs.AdminPct) / 100
	return adminCents, grossCents - adminCents
}
