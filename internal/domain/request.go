package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestMatched   RequestStatus = "MATCHED"
	RequestAccepted  RequestStatus = "ACCEPTED"
	RequestExpired   RequestStatus = "EXPIRED"
	RequestCancelled RequestStatus = "CANCELLED"
)

// ParseRequestStatus reports whether s is one of the known statuses.
// Unknown values are still valid RequestStatus values; callers must not reject them.
func ParseRequestStatus(s string) (RequestStatus, bool) {
	switch RequestStatus(s) {
	case RequestPending, RequestMatched, RequestAccepted, RequestExpired, RequestCancelled:
		return RequestStatus(s), true
	default:
		return RequestStatus(s), false
	}
}

// TouristRequest is a booking request as returned by the request API.
// The portal never mutates it.
type TouristRequest struct {
	ID             string        `json:"id"`
	City           string        `json:"city"`
	Dates          DateRange     `json:"dates"`
	PreferredTime  string        `json:"preferredTime"`
	NumberOfGuests int           `json:"numberOfGuests"`
	GroupType      string        `json:"groupType"`
	ServiceType    string        `json:"serviceType"`
	Status         RequestStatus `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	Selections     []Selection   `json:"selections"`
	Review         *Review       `json:"review,omitempty"`
}

// DecodeTouristRequest decodes one request record. A record whose dates
// fail validation is still returned, with zero Dates and an error wrapping
// ErrInvalidDates; any other decode failure returns a zero request.
func DecodeTouristRequest(b []byte) (TouristRequest, error) {
	type plain TouristRequest
	var w struct {
		plain
		Dates json.RawMessage `json:"dates"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return TouristRequest{}, err
	}
	req := TouristRequest(w.plain)
	if err := json.Unmarshal(nullIfEmpty(w.Dates), &req.Dates); err != nil {
		req.Dates = DateRange{}
		return req, fmt.Errorf("%w: %w", ErrInvalidDates, err)
	}
	return req, nil
}

func nullIfEmpty(b json.RawMessage) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	return b
}

func (r TouristRequest) IsAccepted() bool { return r.Status == RequestAccepted }
func (r TouristRequest) IsPending() bool  { return r.Status == RequestPending }

type Selection struct {
	Student GuideSummary `json:"student"`
}

type GuideSummary struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	AverageRating *float64 `json:"averageRating,omitempty"`
}

type Review struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type DashboardStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Accepted  int `json:"accepted"`
	Completed int `json:"completed"`
}

var (
	ErrMissingStartDate = errors.New("dates.start is required")
	ErrEndBeforeStart   = errors.New("dates.end is before dates.start")
	ErrInvalidDates     = errors.New("request has invalid dates")
)

const dayLayout = "2006-01-02"

// DateRange is a trip window. End is nil for single-day trips.
type DateRange struct {
	Start time.Time
	End   *time.Time
}

type dateRangeWire struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

func (d DateRange) MarshalJSON() ([]byte, error) {
	w := dateRangeWire{Start: d.Start.Format(time.RFC3339)}
	if d.End != nil {
		w.End = d.End.Format(time.RFC3339)
	}
	return json.Marshal(w)
}

func (d *DateRange) UnmarshalJSON(b []byte) error {
	var w dateRangeWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("invalid dates: %w", err)
	}
	parsed, err := NewDateRange(w.Start, w.End)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NewDateRange parses start and optional end (RFC3339 or YYYY-MM-DD).
func NewDateRange(start, end string) (DateRange, error) {
	start = strings.TrimSpace(start)
	if start == "" {
		return DateRange{}, ErrMissingStartDate
	}
	s, err := parseDate(start)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid dates.start: %w", err)
	}
	dr := DateRange{Start: s}

	if end = strings.TrimSpace(end); end != "" {
		e, err := parseDate(end)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid dates.end: %w", err)
		}
		if e.Before(s) {
			return DateRange{}, ErrEndBeforeStart
		}
		dr.End = &e
	}
	return dr, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dayLayout, s)
}
