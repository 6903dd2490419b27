package dashboard

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/diagnosis/wandernest/internal/domain"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(time.UTC)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func render(t *testing.T, r *Renderer, v View) string {
	t.Helper()
	var buf bytes.Buffer
	if err := r.Render(&buf, v); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func statValue(t *testing.T, body, name string) int {
	t.Helper()
	re := regexp.MustCompile(`data-stat="` + name + `">\s*<p[^>]*>[^<]*</p>\s*<p[^>]*>(\d+)</p>`)
	m := re.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("stat %q not found", name)
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func authenticated(requests ...domain.TouristRequest) View {
	return View{
		Session:  domain.Session{Step: domain.StepAuthenticated, Email: "tourist@example.com", Token: "tok"},
		Requests: requests,
	}
}

func acceptedRequest() domain.TouristRequest {
	rating := 4.6
	end := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)
	return domain.TouristRequest{
		ID:             "req-1",
		City:           "Lisbon",
		Dates:          domain.DateRange{Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), End: &end},
		PreferredTime:  "morning",
		NumberOfGuests: 3,
		GroupType:      "family",
		ServiceType:    "guided_experience",
		Status:         domain.RequestAccepted,
		CreatedAt:      time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC),
		Selections:     []domain.Selection{{Student: domain.GuideSummary{ID: "g1", Name: "Ana", AverageRating: &rating}}},
	}
}

func TestRenderDispatchesOnStep(t *testing.T) {
	r := newTestRenderer(t)

	email := render(t, r, View{Session: domain.Session{Step: domain.StepEmailEntry, Error: "Email is required"}})
	if !strings.Contains(email, `action="/tourist/dashboard/access"`) || !strings.Contains(email, "Email is required") {
		t.Errorf("email view missing form or error:\n%s", email)
	}
	if strings.Contains(email, `action="/tourist/dashboard/verify"`) {
		t.Error("email view rendered the verify form")
	}

	verify := render(t, r, View{Session: domain.Session{Step: domain.StepCodeVerification, Email: "tourist@example.com", Code: "123"}})
	if !strings.Contains(verify, `action="/tourist/dashboard/verify"`) || !strings.Contains(verify, "tourist@example.com") {
		t.Errorf("verify view missing form or email:\n%s", verify)
	}
	if !strings.Contains(verify, `value="123"`) {
		t.Error("verify view lost the typed code")
	}
	if strings.Contains(verify, "Total Requests") {
		t.Error("verify view rendered dashboard content")
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, View{Session: domain.Session{Step: domain.Step(9)}}); err == nil {
		t.Error("expected error for unknown step")
	}
}

func TestRenderZeroState(t *testing.T) {
	r := newTestRenderer(t)
	body := render(t, r, authenticated())

	if !strings.Contains(body, `id="zero-state"`) || !strings.Contains(body, "Book Your First Trip") {
		t.Error("expected zero-state call to action")
	}
	for _, stat := range []string{"total", "pending", "accepted", "completed"} {
		if got := statValue(t, body, stat); got != 0 {
			t.Errorf("stat %s = %d, want 0", stat, got)
		}
	}
}

func TestRenderAcceptedWithoutReview(t *testing.T) {
	r := newTestRenderer(t)
	body := render(t, r, authenticated(acceptedRequest()))

	for _, want := range []string{
		"Your Guide:",
		"border-green-500",
		"Confirmed",
		`id="next-steps"`,
		"Jun 1, 2025 - Jun 4, 2025",
		"3 guests (family)",
		"Guided experience",
		"4.6 / 5.0",
		"Requested",
		"May 20, 2025",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, `id="zero-state"`) {
		t.Error("zero state rendered with requests present")
	}
	if got := strings.Count(body, "guide-star filled"); got != 5 {
		t.Errorf("guide stars filled = %d, want 5", got)
	}
	if got := statValue(t, body, "accepted"); got != 1 {
		t.Errorf("accepted stat = %d, want 1", got)
	}
}

func TestRenderAcceptedWithReview(t *testing.T) {
	r := newTestRenderer(t)
	req := acceptedRequest()
	req.Review = &domain.Review{Rating: 4, Comment: "Loved it"}
	body := render(t, r, authenticated(req))

	if got := strings.Count(body, "review-star filled"); got != 4 {
		t.Errorf("review stars filled = %d, want 4", got)
	}
	if got := strings.Count(body, "review-star empty"); got != 1 {
		t.Errorf("review stars empty = %d, want 1", got)
	}
	if !strings.Contains(body, "4/5") || !strings.Contains(body, "Loved it") {
		t.Error("review rating or comment missing")
	}
	if strings.Contains(body, `id="next-steps"`) {
		t.Error("next steps shown for a reviewed request")
	}
	if got := statValue(t, body, "completed"); got != 1 {
		t.Errorf("completed stat = %d, want 1", got)
	}
}

func TestRenderUnknownStatus(t *testing.T) {
	r := newTestRenderer(t)
	req := domain.TouristRequest{ID: "req-9", City: "Porto", Status: "FOO", NumberOfGuests: 1, GroupType: "solo"}
	body := render(t, r, authenticated(req))

	if !strings.Contains(body, "bg-gray-100 text-gray-800") || !strings.Contains(body, "FOO") {
		t.Error("unknown status should render with the gray badge")
	}
	if !strings.Contains(body, "1 guest (solo)") {
		t.Error("singular guest label missing")
	}
}

func TestBuildCard(t *testing.T) {
	zero := 0.0
	req := domain.TouristRequest{
		Status: domain.RequestMatched,
		Selections: []domain.Selection{
			{Student: domain.GuideSummary{Name: "Ana", AverageRating: &zero}},
			{Student: domain.GuideSummary{Name: "Rui"}},
		},
	}
	card := BuildCard(req, time.UTC)

	if card.GuideHeading != "Matched Guides:" {
		t.Errorf("heading = %q", card.GuideHeading)
	}
	if card.ShowNextSteps {
		t.Error("next steps only apply to accepted requests")
	}
	for _, g := range card.Guides {
		if g.HasRating {
			t.Errorf("guide %s should have no rating", g.Name)
		}
		if g.Confirmed {
			t.Errorf("guide %s should not be confirmed", g.Name)
		}
	}
}

func TestRenderBookingPages(t *testing.T) {
	r := newTestRenderer(t)

	var form bytes.Buffer
	err := r.RenderBookingForm(&form, BookingForm{City: "Lisbon", GroupType: "family", Error: "city is required"})
	if err != nil {
		t.Fatalf("RenderBookingForm: %v", err)
	}
	body := form.String()
	if !strings.Contains(body, `<option value="family" selected>Family</option>`) {
		t.Error("selected group type not marked")
	}
	if !strings.Contains(body, "city is required") || !strings.Contains(body, "Marketplace Notice") {
		t.Error("booking form missing error or notice")
	}

	var done bytes.Buffer
	err = r.RenderBookingConfirmation(&done, domain.BookingCreated{ID: "req-42"}, domain.BookingRequest{Email: "t@example.com", City: "Lisbon"})
	if err != nil {
		t.Fatalf("RenderBookingConfirmation: %v", err)
	}
	if !strings.Contains(done.String(), "req-42") || !strings.Contains(done.String(), `href="/tourist/dashboard"`) {
		t.Error("confirmation missing reference or dashboard link")
	}
}
