package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/diagnosis/wandernest/internal/domain"
	"github.com/diagnosis/wandernest/internal/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// View is everything the renderer needs for one page.
type View struct {
	Session  domain.Session
	Requests []domain.TouristRequest
}

// Page template names, one file each under templates/.
const (
	PageEmail       = "email"
	PageVerify      = "verify"
	PageDashboard   = "dashboard"
	PageBooking     = "booking"
	PageBookingDone = "booking_done"
)

type Renderer struct {
	pages map[string]*template.Template
	loc   *time.Location
}

// NewRenderer parses the page templates. Dates are shown in loc (UTC if nil).
func NewRenderer(loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	names := []string{PageEmail, PageVerify, PageDashboard, PageBooking, PageBookingDone}

	r := &Renderer{pages: make(map[string]*template.Template, len(names)), loc: loc}
	for _, name := range names {
		file := "templates/" + name + ".html"
		t, err := template.ParseFS(templateFS, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes the page for the session's current step.
func (r *Renderer) Render(w io.Writer, v View) error {
	switch v.Session.Step {
	case domain.StepEmailEntry:
		return r.emailView(w, v)
	case domain.StepCodeVerification:
		return r.verifyView(w, v)
	case domain.StepAuthenticated:
		return r.dashboardView(w, v)
	default:
		return fmt.Errorf("no view for step %v", v.Session.Step)
	}
}

type formPage struct {
	Title   string
	Email   string
	Code    string
	Error   string
	Loading bool
}

func (r *Renderer) emailView(w io.Writer, v View) error {
	return r.execute(w, PageEmail, formPage{
		Title:   "Tourist Dashboard",
		Email:   v.Session.Email,
		Error:   v.Session.Error,
		Loading: v.Session.Loading,
	})
}

func (r *Renderer) verifyView(w io.Writer, v View) error {
	return r.execute(w, PageVerify, formPage{
		Title:   "Enter Verification Code",
		Email:   v.Session.Email,
		Code:    v.Session.Code,
		Error:   v.Session.Error,
		Loading: v.Session.Loading,
	})
}

type dashboardPage struct {
	Title   string
	Email   string
	Error   string
	Loading bool
	Stats   domain.DashboardStats
	Cards   []RequestCard
}

// RequestCard is the presentation state of one request.
type RequestCard struct {
	ID            string
	City          string
	Status        string
	BadgeClass    string
	BorderClass   string
	ServiceLabel  string
	DatesLabel    string
	PreferredTime string
	GuestsLabel   string
	RequestedOn   string
	IsAccepted    bool
	IsPending     bool
	GuideHeading  string
	Guides        []GuideCard
	Review        *ReviewCard
	ShowNextSteps bool
}

type GuideCard struct {
	Name        string
	HasRating   bool
	Stars       []bool
	RatingLabel string
	Confirmed   bool
	BoxClass    string
}

type ReviewCard struct {
	Rating  int
	Stars   []bool
	Comment string
}

func (r *Renderer) dashboardView(w io.Writer, v View) error {
	cards := make([]RequestCard, 0, len(v.Requests))
	for _, req := range v.Requests {
		cards = append(cards, BuildCard(req, r.loc))
	}
	return r.execute(w, PageDashboard, dashboardPage{
		Title:   "Tourist Dashboard",
		Email:   v.Session.Email,
		Error:   v.Session.Error,
		Loading: v.Session.Loading,
		Stats:   ComputeStats(v.Requests),
		Cards:   cards,
	})
}

// BuildCard derives the card for one request.
func BuildCard(req domain.TouristRequest, loc *time.Location) RequestCard {
	card := RequestCard{
		ID:            req.ID,
		City:          req.City,
		Status:        string(req.Status),
		BadgeClass:    BadgeClass(req.Status),
		BorderClass:   BorderClass(req),
		ServiceLabel:  utils.Humanize(req.ServiceType),
		DatesLabel:    FormatDates(req.Dates, loc),
		PreferredTime: req.PreferredTime,
		GuestsLabel:   GuestsLabel(req.NumberOfGuests, req.GroupType),
		RequestedOn:   FormatDate(req.CreatedAt, loc),
		IsAccepted:    req.IsAccepted(),
		IsPending:     req.IsPending(),
		GuideHeading:  "Matched Guides:",
	}
	if card.IsAccepted {
		card.GuideHeading = "Your Guide:"
	}

	for _, sel := range req.Selections {
		g := GuideCard{
			Name:      sel.Student.Name,
			Confirmed: card.IsAccepted,
			BoxClass:  "bg-gray-50 border border-gray-200",
		}
		if card.IsAccepted {
			g.BoxClass = "bg-green-50 border-2 border-green-200"
		}
		if avg := sel.Student.AverageRating; avg != nil && *avg > 0 {
			g.HasRating = true
			g.Stars = Stars(StarCount(*avg))
			g.RatingLabel = RatingLabel(*avg)
		}
		card.Guides = append(card.Guides, g)
	}

	if req.Review != nil {
		card.Review = &ReviewCard{
			Rating:  req.Review.Rating,
			Stars:   Stars(req.Review.Rating),
			Comment: req.Review.Comment,
		}
	}
	card.ShowNextSteps = card.IsAccepted && req.Review == nil
	return card
}

func (r *Renderer) execute(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("no template %q", page)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
