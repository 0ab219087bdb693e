package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/attendly/ticketing/internal/model"
)

func TestBroadcastRecipientsDeduplicates(t *testing.T) {
	bookings := []model.Booking{
		{
			Status:    model.BookingConfirmed,
			UserEmail: "buyer@example.com",
			Attendees: []model.AttendeeDetail{
				{Name: "Ada", Email: "ada@example.com"},
				{Name: "Ben", Email: "Buyer@Example.com"}, // same as account email
			},
		},
		{
			Status:    model.BookingConfirmed,
			UserEmail: "buyer@example.com", // second booking, same buyer
			Attendees: []model.AttendeeDetail{
				{Name: "Cy", Email: " ada@example.com "}, // whitespace variant
			},
		},
	}

	got := broadcastRecipients(bookings)
	assert.Equal(t, []string{"ada@example.com", "buyer@example.com"}, got)
}

func TestBroadcastRecipientsSkipsCancelledAndBlank(t *testing.T) {
	bookings := []model.Booking{
		{
			Status:    model.BookingCancelled,
			UserEmail: "gone@example.com",
			Attendees: []model.AttendeeDetail{{Name: "Gone", Email: "gone2@example.com"}},
		},
		{
			Status:    model.BookingConfirmed,
			UserEmail: "",
			Attendees: []model.AttendeeDetail{{Name: "NoMail", Email: ""}, {Name: "Zoe", Email: "zoe@example.com"}},
		},
	}

	got := broadcastRecipients(bookings)
	assert.Equal(t, []string{"zoe@example.com"}, got)
}

func TestBroadcastRecipientsEmpty(t *testing.T) {
	assert.Empty(t, broadcastRecipients(nil))
}
