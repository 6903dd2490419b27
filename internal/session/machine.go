package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/diagnosis/wandernest/internal/accessclient"
	"github.com/diagnosis/wandernest/internal/domain"
	"github.com/diagnosis/wandernest/internal/utils"
	"github.com/diagnosis/wandernest/pkg/events"
	"github.com/diagnosis/wandernest/pkg/logger"
)

// Fallback messages used when the API gives no message of its own.
const (
	MsgRequestCodeFailed = "Failed to send verification code"
	MsgVerifyFailed      = "Invalid verification code"
	MsgFetchFailed       = "Failed to fetch requests"
	MsgEmailRequired     = "Email is required"
	MsgCodeFormat        = "Enter the 6-digit code from your email"
)

var (
	ErrInFlight      = errors.New("another request is already in progress")
	ErrWrongStep     = errors.New("operation not allowed in the current step")
	ErrEmailRequired = errors.New("email is required")
	ErrCodeFormat    = errors.New("code must be 6 digits")
	ErrStale         = errors.New("session changed while the request was in flight")
)

// API is the subset of the access API the state machine drives.
type API interface {
	RequestCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (string, error)
	FetchRequests(ctx context.Context, token string) ([]domain.TouristRequest, error)
}

// Machine is the email -> verify -> dashboard flow for one browser.
//
// Network calls run without holding mu. The loading flag rejects a second
// submission while one is outstanding, and gen discards results that land
// after a cancel or logout.
type Machine struct {
	id     string
	api    API
	store  TokenStore
	events events.Publisher

	mu       sync.Mutex
	state    domain.Session
	requests []domain.TouristRequest
	restored bool
	gen      uint64
}

func New(id string, api API, store TokenStore, pub events.Publisher) *Machine {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Machine{id: id, api: api, store: store, events: pub}
}

func (m *Machine) ID() string { return m.id }

// Snapshot is a copy of the machine state safe to hand to a renderer.
type Snapshot struct {
	Session  domain.Session
	Requests []domain.TouristRequest
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	reqs := make([]domain.TouristRequest, len(m.requests))
	copy(reqs, m.requests)
	return Snapshot{Session: m.state, Requests: reqs}
}

// Restore runs once per machine: a persisted token jumps straight to the
// dashboard and loads requests. Token freshness is not checked here; a dead
// token shows up as a fetch failure.
func (m *Machine) Restore(ctx context.Context) error {
	m.mu.Lock()
	if m.restored {
		m.mu.Unlock()
		return nil
	}
	m.restored = true
	m.mu.Unlock()

	token, err := m.store.Load(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load persisted token", "error", err)
		return nil
	}
	if token == "" {
		return nil
	}

	m.mu.Lock()
	if m.state.Step != domain.StepEmailEntry || m.state.Loading {
		m.mu.Unlock()
		return nil
	}
	m.state.Step = domain.StepAuthenticated
	m.state.Token = token
	m.state.Error = ""
	m.state.Loading = true
	gen := m.gen
	m.mu.Unlock()

	m.publish(ctx, events.SessionRestored, "", "")
	return m.fetch(ctx, token, gen)
}

// RequestCode asks the API to email a code. On success the machine moves
// to code verification; on failure it stays put with Error set.
func (m *Machine) RequestCode(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)

	m.mu.Lock()
	if m.state.Loading {
		m.mu.Unlock()
		return ErrInFlight
	}
	if m.state.Step != domain.StepEmailEntry {
		m.mu.Unlock()
		return ErrWrongStep
	}
	m.state.Error = ""
	m.state.Email = email
	if email == "" {
		m.state.Error = MsgEmailRequired
		m.mu.Unlock()
		return ErrEmailRequired
	}
	m.state.Loading = true
	gen := m.gen
	m.mu.Unlock()

	err := m.api.RequestCode(ctx, email)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return ErrStale
	}
	m.state.Loading = false
	if err != nil {
		m.state.Error = messageOr(err, MsgRequestCodeFailed)
		m.mu.Unlock()
		logger.WarnContext(ctx, "Verification code request failed", "error", err)
		return err
	}
	m.state.Step = domain.StepCodeVerification
	m.state.Code = ""
	m.mu.Unlock()

	m.publish(ctx, events.AccessRequested, email, "")
	return nil
}

// VerifyCode exchanges the typed code for a token. rawCode is sanitized
// the same way the input control does it: digits only, at most 6.
func (m *Machine) VerifyCode(ctx context.Context, rawCode string) error {
	code := domain.SanitizeCode(rawCode)

	m.mu.Lock()
	if m.state.Loading {
		m.mu.Unlock()
		return ErrInFlight
	}
	if m.state.Step != domain.StepCodeVerification {
		m.mu.Unlock()
		return ErrWrongStep
	}
	m.state.Error = ""
	m.state.Code = code
	if !domain.IsCompleteCode(code) {
		m.state.Error = MsgCodeFormat
		m.mu.Unlock()
		return ErrCodeFormat
	}
	m.state.Loading = true
	email := m.state.Email
	gen := m.gen
	m.mu.Unlock()

	token, err := m.api.VerifyCode(ctx, email, code)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return ErrStale
	}
	if err != nil {
		m.state.Loading = false
		m.state.Error = messageOr(err, MsgVerifyFailed)
		m.mu.Unlock()
		logger.WarnContext(ctx, "Verification code rejected", "error", err)
		return err
	}
	m.mu.Unlock()

	if err := m.store.Save(ctx, token); err != nil {
		// The dashboard still works for this browser; it just won't survive a restart.
		logger.ErrorContext(ctx, "Failed to persist tourist token", "error", err)
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		_ = m.store.Clear(ctx)
		return ErrStale
	}
	m.state.Step = domain.StepAuthenticated
	m.state.Token = token
	m.mu.Unlock()

	m.publish(ctx, events.AccessVerified, email, "")

	return m.fetch(ctx, token, gen)
}

// FetchRequests reloads the request list. Failures leave the machine
// authenticated with an empty list and Error set.
func (m *Machine) FetchRequests(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Loading {
		m.mu.Unlock()
		return ErrInFlight
	}
	if m.state.Step != domain.StepAuthenticated {
		m.mu.Unlock()
		return ErrWrongStep
	}
	m.state.Error = ""
	m.state.Loading = true
	token := m.state.Token
	gen := m.gen
	m.mu.Unlock()

	return m.fetch(ctx, token, gen)
}

// fetch expects Loading to be set by the caller and clears it.
func (m *Machine) fetch(ctx context.Context, token string, gen uint64) error {
	reqs, err := m.api.FetchRequests(ctx, token)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return ErrStale
	}
	m.state.Loading = false
	if err != nil {
		m.state.Error = MsgFetchFailed
		m.requests = nil
		m.mu.Unlock()
		logger.WarnContext(ctx, "Failed to fetch tourist requests", "error", err)
		m.publish(ctx, events.RequestsFetchFailed, "", err.Error())
		return err
	}
	m.requests = reqs
	m.mu.Unlock()
	return nil
}

// Cancel goes back from code verification to email entry.
func (m *Machine) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Step != domain.StepCodeVerification {
		return ErrWrongStep
	}
	m.gen++
	m.state.Step = domain.StepEmailEntry
	m.state.Code = ""
	m.state.Error = ""
	m.state.Loading = false
	return nil
}

// Logout clears the persisted token and every in-memory field. It is safe
// to call from any step, any number of times.
func (m *Machine) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.gen++
	email := m.state.Email
	m.state = domain.Session{}
	m.requests = nil
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to clear persisted token", "error", err)
		return err
	}
	m.publish(ctx, events.SessionLogout, email, "")
	return nil
}

func (m *Machine) publish(ctx context.Context, subject, email, reason string) {
	evt := events.SessionEvent{SessionID: m.id, Email: email, Reason: reason, At: time.Now()}
	if err := m.events.Publish(ctx, subject, evt); err != nil {
		logger.WarnContext(ctx, "Failed to publish session event", "subject", subject, "error", err)
	}
}

func messageOr(err error, fallback string) string {
	if msg := accessclient.ServerMessage(err); msg != "" {
		return msg
	}
	return fallback
}
