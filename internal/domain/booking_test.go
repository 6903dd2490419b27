package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validBooking() BookingRequest {
	return BookingRequest{
		Email:          "  Tourist@Example.COM ",
		City:           " Lisbon ",
		Dates:          DateRange{Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		PreferredTime:  "Morning",
		NumberOfGuests: 2,
		GroupType:      "couple",
		ServiceType:    "GUIDED_EXPERIENCE",
		Interests:      []string{" food ", "", "history"},
	}
}

func TestBookingRequestNormalize(t *testing.T) {
	b := validBooking()
	b.Normalize()

	if b.Email != "tourist@example.com" {
		t.Errorf("email = %q", b.Email)
	}
	if b.City != "Lisbon" {
		t.Errorf("city = %q", b.City)
	}
	if b.PreferredTime != "morning" || b.ServiceType != "guided_experience" {
		t.Errorf("enums not lowered: %q %q", b.PreferredTime, b.ServiceType)
	}
	if strings.Join(b.Interests, ",") != "food,history" {
		t.Errorf("interests = %v", b.Interests)
	}
	if err := b.Validate(); err != nil {
		t.Errorf("expected valid booking, got %v", err)
	}
}

func TestBookingRequestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *BookingRequest)
	}{
		{"missing email", func(b *BookingRequest) { b.Email = "" }},
		{"bad email", func(b *BookingRequest) { b.Email = "not-an-email" }},
		{"missing city", func(b *BookingRequest) { b.City = "" }},
		{"missing start", func(b *BookingRequest) { b.Dates = DateRange{} }},
		{"zero guests", func(b *BookingRequest) { b.NumberOfGuests = 0 }},
		{"too many guests", func(b *BookingRequest) { b.NumberOfGuests = MaxGuests + 1 }},
		{"bad time", func(b *BookingRequest) { b.PreferredTime = "midnight" }},
		{"bad group", func(b *BookingRequest) { b.GroupType = "crowd" }},
		{"bad service", func(b *BookingRequest) { b.ServiceType = "taxi" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBooking()
			b.Normalize()
			tt.mutate(&b)
			if err := b.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	t.Run("end before start", func(t *testing.T) {
		b := validBooking()
		b.Normalize()
		end := b.Dates.Start.Add(-24 * time.Hour)
		b.Dates.End = &end
		if err := b.Validate(); !errors.Is(err, ErrEndBeforeStart) {
			t.Errorf("expected ErrEndBeforeStart, got %v", err)
		}
	})
}
