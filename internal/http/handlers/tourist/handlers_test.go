package tourist_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/wandernest/internal/accessclient"
	"github.com/diagnosis/wandernest/internal/dashboard"
	"github.com/diagnosis/wandernest/internal/domain"
	"github.com/diagnosis/wandernest/internal/http/handlers/tourist"
	"github.com/diagnosis/wandernest/internal/http/middleware"
	"github.com/diagnosis/wandernest/internal/repo/memory"
	"github.com/diagnosis/wandernest/internal/session"
)

// ---------- Mocks ----------

type mockAPI struct {
	mu       sync.Mutex
	emails   []string
	created  []domain.BookingRequest
	requests []domain.TouristRequest
	fetchErr error
}

func (m *mockAPI) RequestCode(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, email)
	return nil
}

func (m *mockAPI) VerifyCode(_ context.Context, email, code string) (string, error) {
	if code != "123456" {
		return "", &accessclient.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid or expired code"}
	}
	return "tok-" + email, nil
}

func (m *mockAPI) FetchRequests(_ context.Context, token string) ([]domain.TouristRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.requests, nil
}

func (m *mockAPI) CreateRequest(_ context.Context, req *domain.BookingRequest) (*domain.BookingCreated, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, *req)
	return &domain.BookingCreated{ID: "req-42"}, nil
}

type mockPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *mockPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *mockPublisher) Close() error { return nil }

// ---------- Helpers ----------

type portal struct {
	srv    *httptest.Server
	client *http.Client
	api    *mockAPI
	tokens *memory.TokenRepo
	events *mockPublisher
}

func newPortal(t *testing.T) *portal {
	t.Helper()

	api := &mockAPI{}
	tokens := memory.NewTokenRepo(time.Hour)
	pub := &mockPublisher{}

	renderer, err := dashboard.NewRenderer(time.UTC)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	registry := session.NewRegistry(api, tokens, pub, time.Hour)
	dash := tourist.NewDashboardHandler(registry, renderer)
	booking := tourist.NewBookingHandler(api, renderer, pub)

	r := chi.NewRouter()
	r.Use(middleware.BrowserSession(middleware.SessionCookieConfig{Name: "wn_session", Secret: "test", TTL: time.Hour}))
	r.Mount("/tourist/dashboard", dash.Routes())
	r.Mount("/booking", booking.Routes())
	r.Get("/api/tourist/dashboard/state", dash.State)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, _ := cookiejar.New(nil)
	return &portal{srv: srv, client: &http.Client{Jar: jar}, api: api, tokens: tokens, events: pub}
}

func (p *portal) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := p.client.Get(p.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return readBody(t, resp)
}

func (p *portal) post(t *testing.T, path string, form url.Values) (int, string) {
	t.Helper()
	resp, err := p.client.PostForm(p.srv.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return readBody(t, resp)
}

func (p *portal) state(t *testing.T) map[string]any {
	t.Helper()
	_, body := p.get(t, "/api/tourist/dashboard/state")
	var out map[string]any
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode state: %v\n%s", err, body)
	}
	return out
}

func readBody(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(b)
}

func (p *portal) login(t *testing.T) {
	t.Helper()
	p.post(t, "/tourist/dashboard/access", url.Values{"email": {"Tourist@Example.com"}})
	p.post(t, "/tourist/dashboard/verify", url.Values{"code": {"123456"}})
}

// ---------- Dashboard ----------

func TestDashboardFlow(t *testing.T) {
	p := newPortal(t)

	status, body := p.get(t, "/tourist/dashboard")
	if status != http.StatusOK || !strings.Contains(body, `action="/tourist/dashboard/access"`) {
		t.Fatalf("first visit should show the email form (status %d)", status)
	}

	status, body = p.post(t, "/tourist/dashboard/access", url.Values{"email": {"Tourist@Example.com"}})
	if status != http.StatusOK || !strings.Contains(body, "Enter Verification Code") {
		t.Fatalf("after access POST expected verify page, got %d", status)
	}
	if len(p.api.emails) != 1 || p.api.emails[0] != "tourist@example.com" {
		t.Errorf("emails sent = %v", p.api.emails)
	}

	_, body = p.post(t, "/tourist/dashboard/verify", url.Values{"code": {"000000"}})
	if !strings.Contains(body, "Invalid or expired code") {
		t.Error("wrong code should show the server message")
	}

	_, body = p.post(t, "/tourist/dashboard/verify", url.Values{"code": {"123-456"}})
	if !strings.Contains(body, "Tourist Dashboard") || !strings.Contains(body, `id="zero-state"`) {
		t.Fatalf("expected dashboard zero state:\n%s", body)
	}

	st := p.state(t)
	if st["step"] != "dashboard" || st["email"] != "tourist@example.com" {
		t.Errorf("state = %v", st)
	}
	if reqs, ok := st["requests"].([]any); !ok || len(reqs) != 0 {
		t.Errorf("requests = %#v, want empty list", st["requests"])
	}

	_, body = p.post(t, "/tourist/dashboard/logout", nil)
	if !strings.Contains(body, `action="/tourist/dashboard/access"`) {
		t.Error("logout should land on the email form")
	}
	if st := p.state(t); st["step"] != "email" {
		t.Errorf("state after logout = %v", st)
	}
}

func TestDashboardPOSTRedirects(t *testing.T) {
	p := newPortal(t)
	p.client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	for _, path := range []string{"/access", "/verify", "/cancel", "/refresh", "/logout"} {
		resp, err := p.client.PostForm(p.srv.URL+"/tourist/dashboard"+path, url.Values{"email": {"a@b.com"}})
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/tourist/dashboard" {
			t.Errorf("POST %s: %d -> %q, want 303 to the dashboard", path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}
}

func TestDashboardSharedAcrossTabs(t *testing.T) {
	p := newPortal(t)
	p.api.requests = []domain.TouristRequest{{ID: "r1", City: "Lisbon", Status: domain.RequestPending, NumberOfGuests: 2}}
	p.login(t)

	// another tab carries the same cookie and sees the same machine
	other := &http.Client{Jar: p.client.Jar}
	resp, err := other.Get(p.srv.URL + "/tourist/dashboard")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	_, body := readBody(t, resp)
	if !strings.Contains(body, "Lisbon") || !strings.Contains(body, "2 guests") {
		t.Error("shared cookie did not show the same dashboard")
	}
}

func TestDashboardFetchFailureBanner(t *testing.T) {
	p := newPortal(t)
	p.api.fetchErr = &accessclient.APIError{StatusCode: http.StatusInternalServerError}
	p.login(t)

	_, body := p.get(t, "/tourist/dashboard")
	if !strings.Contains(body, session.MsgFetchFailed) {
		t.Error("expected fetch failure banner")
	}
	if !strings.Contains(body, "Logout") {
		t.Error("fetch failure should keep the tourist logged in")
	}
}

// ---------- Booking ----------

func bookingForm() url.Values {
	return url.Values{
		"email":            {"tourist@example.com"},
		"city":             {"Lisbon"},
		"start_date":       {"2025-06-01"},
		"end_date":         {"2025-06-03"},
		"preferred_time":   {"morning"},
		"number_of_guests": {"2"},
		"group_type":       {"couple"},
		"service_type":     {"itinerary_help"},
		"interests":        {"food, history"},
	}
}

func TestBookingForm(t *testing.T) {
	p := newPortal(t)
	status, body := p.get(t, "/booking")
	if status != http.StatusOK || !strings.Contains(body, "Book Your Local Guide") {
		t.Fatalf("booking form: status %d", status)
	}
}

func TestBookingCreate(t *testing.T) {
	p := newPortal(t)

	status, body := p.post(t, "/booking", bookingForm())
	if status != http.StatusCreated || !strings.Contains(body, "req-42") {
		t.Fatalf("booking create: status %d\n%s", status, body)
	}
	if len(p.api.created) != 1 {
		t.Fatalf("created = %d", len(p.api.created))
	}
	got := p.api.created[0]
	if got.City != "Lisbon" || got.NumberOfGuests != 2 || len(got.Interests) != 2 || got.Dates.End == nil {
		t.Errorf("unexpected booking %+v", got)
	}

	found := false
	for _, s := range p.events.subjects {
		if s == "tourist.booking.submitted" {
			found = true
		}
	}
	if !found {
		t.Errorf("booking event not published: %v", p.events.subjects)
	}
}

func TestBookingValidation(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		want  string
	}{
		{"missing city", "city", "", "city is required"},
		{"bad guests", "number_of_guests", "two", "number of guests must be a whole number"},
		{"end before start", "end_date", "2025-05-01", "dates.end is before dates.start"},
		{"bad service", "service_type", "taxi", "invalid service type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPortal(t)
			form := bookingForm()
			form.Set(tt.field, tt.value)

			status, body := p.post(t, "/booking", form)
			if status != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", status)
			}
			if !strings.Contains(body, tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
			if len(p.api.created) != 0 {
				t.Error("invalid booking was submitted")
			}
		})
	}
}

func TestStateWithoutBrowserSession(t *testing.T) {
	renderer, err := dashboard.NewRenderer(time.UTC)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	registry := session.NewRegistry(&mockAPI{}, memory.NewTokenRepo(time.Hour), nil, time.Hour)
	h := tourist.NewDashboardHandler(registry, renderer)

	rec := httptest.NewRecorder()
	h.State(rec, httptest.NewRequest(http.MethodGet, "/api/tourist/dashboard/state", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != "INTERNAL_ERROR" {
		t.Errorf("body = %v", body)
	}
	if registry.Len() != 0 {
		t.Error("a machine was created without a session id")
	}
}
