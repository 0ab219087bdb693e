package model

import "time"

// TicketTier is a priced category of tickets for an event with a fixed
// capacity.  AvailableCount is mutated only through the inventory ledger
// and the booking repository; handlers must never write it directly.
//
// Fields:
//  ID             – primary key identifier.
//  EventID        – event this tier belongs to.
//  Name           – display name (e.g. "Early Bird", "VIP").
//  PriceCents     – price per ticket in currency minor units.
//  TotalCapacity  – fixed number of tickets that exist for this tier.
//  AvailableCount – tickets still purchasable; 0 <= available <= total.
//  Features       – perks included with the tier, shown on the event page.
type TicketTier struct {
	ID             uint64   `json:"id"`              // ticket_tiers.id
	EventID        uint64   `json:"event_id"`        // ticket_tiers.event_id
	Name           string   `json:"name"`            // ticket_tiers.name
	PriceCents     int64    `json:"price_cents"`     // ticket_tiers.price_cents
	TotalCapacity  int      `json:"total_capacity"`  // ticket_tiers.total_capacity
	AvailableCount int      `json:"available_count"` // ticket_tiers.available_count
	Features       []string `json:"features"`        // ticket_tiers.features (JSON column)
}

// Event represents a listed event as stored in the `events` table.  An
// event is created by an organizer in an unapproved state and becomes
// visible to attendees only after an admin approves it.  Rejection
// deletes the event outright.
//
// Fields:
//  ID            – primary key identifier.
//  Title         – event title.
//  Description   – long-form description.
//  Category      – coarse category used for browsing filters.
//  Date, Time    – scheduled date (YYYY-MM-DD) and start time (HH:MM),
//                  kept as strings to match the catalog format.
//  Venue         – venue name.
//  Location      – city / region string.
//  OrganizerID   – user who created the event.
//  OrganizerName – denormalized organizer display name.
//  Approved      – admin moderation flag; only approved events are public.
//  Featured      – admin-curated highlight flag.
//  Tiers         – ticket tiers sold for this event.
type Event struct {
	ID            uint64       `json:"id"`             // events.id
	Title         string       `json:"title"`          // events.title
	Description   string       `json:"description"`    // events.description
	Category      string       `json:"category"`       // events.category
	Date          string       `json:"date"`           // events.event_date
	Time          string       `json:"time"`           // events.event_time
	Venue         string       `json:"venue"`          // events.venue
	Location      string       `json:"location"`       // events.location
	OrganizerID   uint64       `json:"organizer_id"`   // events.organizer_id
	OrganizerName string       `json:"organizer_name"` // events.organizer_name
	Approved      bool         `json:"approved"`       // events.approved
	Featured      bool         `json:"featured"`       // events.featured
	Tiers         []TicketTier `json:"ticket_tiers"`   // joined from ticket_tiers
	CreatedAt     time.Time    `json:"created_at"`     // events.created_at
	UpdatedAt     time.Time    `json:"updated_at"`     // events.updated_at
}

// TierByID returns the tier with the given ID, or nil when the event has
// no such tier.
func (e *Event) TierByID(tierID uint64) *TicketTier {
	for i := range e.Tiers {
		if e.Tiers[i].ID == tierID {
			return &e.Tiers[i]
		}
	}
	return nil
}
