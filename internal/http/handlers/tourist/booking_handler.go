package tourist

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diagnosis/wandernest/internal/accessclient"
	"github.com/diagnosis/wandernest/internal/dashboard"
	"github.com/diagnosis/wandernest/internal/domain"
	"github.com/diagnosis/wandernest/internal/http/response"
	"github.com/diagnosis/wandernest/pkg/events"
	"github.com/diagnosis/wandernest/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const msgBookingFailed = "Failed to submit your request. Please try again."

var errInvalidGuests = errors.New("number of guests must be a whole number")

// RequestCreator submits a booking to the request API.
type RequestCreator interface {
	CreateRequest(ctx context.Context, req *domain.BookingRequest) (*domain.BookingCreated, error)
}

type BookingHandler struct {
	API      RequestCreator
	Renderer *dashboard.Renderer
	Events   events.Publisher
}

func NewBookingHandler(api RequestCreator, renderer *dashboard.Renderer, pub events.Publisher) *BookingHandler {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &BookingHandler{API: api, Renderer: renderer, Events: pub}
}

// Routes is mounted at /booking.
func (h *BookingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.form)
	r.Post("/", h.create)
	return r
}

func (h *BookingHandler) form(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, dashboard.BookingForm{
		NumberOfGuests: "1",
		PreferredTime:  "flexible",
		GroupType:      "solo",
		ServiceType:    "guided_experience",
	})
}

func (h *BookingHandler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		response.BadRequest(w, "Invalid form")
		return
	}
	form := formFromRequest(r)

	req, err := bookingFromForm(form)
	if err == nil {
		req.Normalize()
		err = req.Validate()
	}
	if err != nil {
		form.Error = err.Error()
		h.renderForm(w, r, http.StatusUnprocessableEntity, form)
		return
	}

	created, err := h.API.CreateRequest(r.Context(), req)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to create tourist request", "error", err)
		form.Error = msgBookingFailed
		if msg := accessclient.ServerMessage(err); msg != "" {
			form.Error = msg
		}
		h.renderForm(w, r, http.StatusBadGateway, form)
		return
	}

	logger.InfoContext(r.Context(), "Tourist request submitted", "request_id", created.ID, "city", req.City)
	evt := events.BookingSubmittedEvent{
		RequestID:   created.ID,
		Email:       req.Email,
		City:        req.City,
		ServiceType: req.ServiceType,
		Guests:      req.NumberOfGuests,
		At:          time.Now(),
	}
	if err := h.Events.Publish(r.Context(), events.BookingSubmitted, evt); err != nil {
		logger.WarnContext(r.Context(), "Failed to publish booking event", "error", err)
	}

	var buf bytes.Buffer
	if err := h.Renderer.RenderBookingConfirmation(&buf, *created, *req); err != nil {
		logger.ErrorContext(r.Context(), "Failed to render booking confirmation", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusCreated, &buf)
}

func (h *BookingHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, form dashboard.BookingForm) {
	var buf bytes.Buffer
	if err := h.Renderer.RenderBookingForm(&buf, form); err != nil {
		logger.ErrorContext(r.Context(), "Failed to render booking form", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, status, &buf)
}

func formFromRequest(r *http.Request) dashboard.BookingForm {
	return dashboard.BookingForm{
		Email:          r.PostForm.Get("email"),
		Phone:          r.PostForm.Get("phone"),
		City:           r.PostForm.Get("city"),
		StartDate:      r.PostForm.Get("start_date"),
		EndDate:        r.PostForm.Get("end_date"),
		PreferredTime:  r.PostForm.Get("preferred_time"),
		NumberOfGuests: r.PostForm.Get("number_of_guests"),
		GroupType:      r.PostForm.Get("group_type"),
		ServiceType:    r.PostForm.Get("service_type"),
		Interests:      r.PostForm.Get("interests"),
		Notes:          r.PostForm.Get("notes"),
	}
}

func bookingFromForm(f dashboard.BookingForm) (*domain.BookingRequest, error) {
	dates, err := domain.NewDateRange(f.StartDate, f.EndDate)
	if err != nil {
		return nil, err
	}
	guests, err := strconv.Atoi(strings.TrimSpace(f.NumberOfGuests))
	if err != nil {
		return nil, errInvalidGuests
	}
	return &domain.BookingRequest{
		Email:          f.Email,
		Phone:          f.Phone,
		City:           f.City,
		Dates:          dates,
		PreferredTime:  f.PreferredTime,
		NumberOfGuests: guests,
		GroupType:      f.GroupType,
		ServiceType:    f.ServiceType,
		Interests:      strings.Split(f.Interests, ","),
		Notes:          f.Notes,
	}, nil
}

func writeHTML(w http.ResponseWriter, status int, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
