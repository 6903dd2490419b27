package domain

import (
	"fmt"
	"strings"

	"github.com/diagnosis/wandernest/internal/utils"
)

var (
	PreferredTimes = []string{"morning", "afternoon", "evening", "flexible"}
	GroupTypes     = []string{"solo", "couple", "family", "friends", "business"}
	ServiceTypes   = []string{"itinerary_help", "guided_experience"}
)

const MaxGuests = 20

// BookingRequest is the booking form payload sent to the request API.
type BookingRequest struct {
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	City           string    `json:"city"`
	Dates          DateRange `json:"dates"`
	PreferredTime  string    `json:"preferredTime"`
	NumberOfGuests int       `json:"numberOfGuests"`
	GroupType      string    `json:"groupType"`
	ServiceType    string    `json:"serviceType"`
	Interests      []string  `json:"interests,omitempty"`
	Notes          string    `json:"notes,omitempty"`
}

type BookingCreated struct {
	ID string `json:"id"`
}

func (b *BookingRequest) Normalize() {
	b.Email = utils.NormalizeEmail(b.Email)
	b.Phone = utils.NormalizePhone(b.Phone)
	b.City = utils.NormalizeString(b.City)
	b.PreferredTime = strings.ToLower(utils.NormalizeString(b.PreferredTime))
	b.GroupType = strings.ToLower(utils.NormalizeString(b.GroupType))
	b.ServiceType = strings.ToLower(utils.NormalizeString(b.ServiceType))
	b.Notes = utils.NormalizeString(b.Notes)

	interests := b.Interests[:0]
	for _, in := range b.Interests {
		if in = utils.NormalizeString(in); in != "" {
			interests = append(interests, in)
		}
	}
	b.Interests = interests
}

func (b *BookingRequest) Validate() error {
	if b.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !utils.IsValidEmail(b.Email) {
		return fmt.Errorf("invalid email format")
	}
	if b.Phone != "" && !utils.IsValidPhone(b.Phone) {
		return fmt.Errorf("invalid phone number")
	}
	if b.City == "" {
		return fmt.Errorf("city is required")
	}
	if b.Dates.Start.IsZero() {
		return ErrMissingStartDate
	}
	if b.Dates.End != nil && b.Dates.End.Before(b.Dates.Start) {
		return ErrEndBeforeStart
	}
	if b.NumberOfGuests < 1 || b.NumberOfGuests > MaxGuests {
		return fmt.Errorf("number of guests must be between 1 and %d", MaxGuests)
	}
	if !oneOf(b.PreferredTime, PreferredTimes) {
		return fmt.Errorf("invalid preferred time %q", b.PreferredTime)
	}
	if !oneOf(b.GroupType, GroupTypes) {
		return fmt.Errorf("invalid group type %q", b.GroupType)
	}
	if !oneOf(b.ServiceType, ServiceTypes) {
		return fmt.Errorf("invalid service type %q", b.ServiceType)
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
