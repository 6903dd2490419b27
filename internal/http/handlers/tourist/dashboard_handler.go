package tourist

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/diagnosis/wandernest/internal/dashboard"
	"github.com/diagnosis/wandernest/internal/domain"
	"github.com/diagnosis/wandernest/internal/http/middleware"
	"github.com/diagnosis/wandernest/internal/http/response"
	"github.com/diagnosis/wandernest/internal/session"
	"github.com/diagnosis/wandernest/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const dashboardPath = "/tourist/dashboard"

type DashboardHandler struct {
	Sessions *session.Registry
	Renderer *dashboard.Renderer
}

func NewDashboardHandler(sessions *session.Registry, renderer *dashboard.Renderer) *DashboardHandler {
	return &DashboardHandler{Sessions: sessions, Renderer: renderer}
}

// Routes is mounted at /tourist/dashboard. accessLimits wrap only the
// code request, the one action that makes the backend send email.
func (h *DashboardHandler) Routes(accessLimits ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.show)
	r.With(accessLimits...).Post("/access", h.access) // form: email
	r.Post("/verify", h.verify)
	r.Post("/cancel", h.cancel)
	r.Post("/refresh", h.refresh)
	r.Post("/logout", h.logout)
	return r
}

func (h *DashboardHandler) machine(w http.ResponseWriter, r *http.Request) *session.Machine {
	sid := middleware.SessionID(r)
	if sid == "" {
		logger.ErrorContext(r.Context(), "Dashboard request without browser session")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil
	}
	return h.Sessions.Get(sid)
}

func (h *DashboardHandler) show(w http.ResponseWriter, r *http.Request) {
	m := h.machine(w, r)
	if m == nil {
		return
	}
	// Restore failures are already reflected in the machine state.
	_ = m.Restore(r.Context())

	snap := m.Snapshot()
	var buf bytes.Buffer
	if err := h.Renderer.Render(&buf, dashboard.View{Session: snap.Session, Requests: snap.Requests}); err != nil {
		logger.ErrorContext(r.Context(), "Failed to render dashboard", "step", snap.Session.Step.String(), "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (h *DashboardHandler) access(w http.ResponseWriter, r *http.Request) {
	m := h.machine(w, r)
	if m == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		response.BadRequest(w, "Invalid form")
		return
	}
	h.logIgnored(r, "request code", m.RequestCode(r.Context(), r.PostForm.Get("email")))
	h.backToDashboard(w, r)
}

func (h *DashboardHandler) verify(w http.ResponseWriter, r *http.Request) {
	m := h.machine(w, r)
	if m == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		response.BadRequest(w, "Invalid form")
		return
	}
	h.logIgnored(r, "verify code", m.VerifyCode(r.Context(), r.PostForm.Get("code")))
	h.backToDashboard(w, r)
}

func (h *DashboardHandler) cancel(w http.ResponseWriter, r *http.Request) {
	m := h.machine(w, r)
	if m == nil {
		return
	}
	h.logIgnored(r, "cancel", m.Cancel())
	h.backToDashboard(w, r)
}

func (h *DashboardHandler) refresh(w http.ResponseWriter, r *http.Request) {
	m := h.machine(w, r)
	if m == nil {
		return
	}
	h.logIgnored(r, "refresh", m.FetchRequests(r.Context()))
	h.backToDashboard(w, r)
}

func (h *DashboardHandler) logout(w http.ResponseWriter, r *http.Request) {
	m := h.machine(w, r)
	if m == nil {
		return
	}
	if err := m.Logout(r.Context()); err != nil {
		// In-memory state is already reset; the machine logged the store error.
		logger.WarnContext(r.Context(), "Logout left a persisted token behind")
	}
	h.backToDashboard(w, r)
}

// backToDashboard finishes every POST with a 303 so a reload never resubmits.
func (h *DashboardHandler) backToDashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

// logIgnored records actions the machine refused. Every other failure is
// already on the machine as Error and shows on the next render.
func (h *DashboardHandler) logIgnored(r *http.Request, op string, err error) {
	if errors.Is(err, session.ErrInFlight) || errors.Is(err, session.ErrWrongStep) || errors.Is(err, session.ErrStale) {
		logger.DebugContext(r.Context(), "Dashboard action ignored", "op", op, "reason", err.Error())
	}
}

type stateResponse struct {
	Step     domain.Step             `json:"step"`
	Email    string                  `json:"email,omitempty"`
	Error    string                  `json:"error,omitempty"`
	Loading  bool                    `json:"loading"`
	Stats    domain.DashboardStats   `json:"stats"`
	Requests []domain.TouristRequest `json:"requests"`
}

// State serves GET /api/tourist/dashboard/state.
func (h *DashboardHandler) State(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionID(r)
	if sid == "" {
		logger.ErrorContext(r.Context(), "State request without browser session")
		response.InternalError(w, "Browser session missing")
		return
	}
	m := h.Sessions.Get(sid)
	_ = m.Restore(r.Context())

	snap := m.Snapshot()
	response.WriteJSON(w, http.StatusOK, stateResponse{
		Step:     snap.Session.Step,
		Email:    snap.Session.Email,
		Error:    snap.Session.Error,
		Loading:  snap.Session.Loading,
		Stats:    dashboard.ComputeStats(snap.Requests),
		Requests: snap.Requests,
	})
}
