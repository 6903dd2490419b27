package dashboard

import (
	"io"

	"github.com/diagnosis/wandernest/internal/domain"
	"github.com/diagnosis/wandernest/internal/utils"
)

// BookingForm holds the raw form values so a rejected submission can be
// shown again as typed.
type BookingForm struct {
	Email          string
	Phone          string
	City           string
	StartDate      string
	EndDate        string
	PreferredTime  string
	NumberOfGuests string
	GroupType      string
	ServiceType    string
	Interests      string
	Notes          string
	Error          string
}

type Option struct {
	Value    string
	Label    string
	Selected bool
}

type bookingPage struct {
	Title          string
	Form           BookingForm
	MaxGuests      int
	PreferredTimes []Option
	GroupTypes     []Option
	ServiceTypes   []Option
}

func (r *Renderer) RenderBookingForm(w io.Writer, form BookingForm) error {
	return r.execute(w, PageBooking, bookingPage{
		Title:          "Book Your Local Guide",
		Form:           form,
		MaxGuests:      domain.MaxGuests,
		PreferredTimes: options(domain.PreferredTimes, form.PreferredTime),
		GroupTypes:     options(domain.GroupTypes, form.GroupType),
		ServiceTypes:   options(domain.ServiceTypes, form.ServiceType),
	})
}

type bookingDonePage struct {
	Title string
	ID    string
	Email string
	City  string
}

func (r *Renderer) RenderBookingConfirmation(w io.Writer, created domain.BookingCreated, req domain.BookingRequest) error {
	return r.execute(w, PageBookingDone, bookingDonePage{
		Title: "Request Submitted",
		ID:    created.ID,
		Email: req.Email,
		City:  req.City,
	})
}

func options(values []string, selected string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: v, Label: utils.Humanize(v), Selected: v == selected})
	}
	return out
}
