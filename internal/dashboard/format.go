package dashboard

import (
	"fmt"
	"math"
	"time"

	"github.com/diagnosis/wandernest/internal/domain"
	"github.com/diagnosis/wandernest/internal/utils"
)

const (
	MaxStars   = 5
	dateLayout = "Jan 2, 2006"

	fallbackBadge = "bg-gray-100 text-gray-800"
)

var badgeClasses = map[domain.RequestStatus]string{
	domain.RequestPending:   "bg-yellow-100 text-yellow-800",
	domain.RequestMatched:   "bg-blue-100 text-blue-800",
	domain.RequestAccepted:  "bg-green-100 text-green-800",
	domain.RequestExpired:   "bg-gray-100 text-gray-800",
	domain.RequestCancelled: "bg-red-100 text-red-800",
}

// BadgeClass maps a status to its badge style. Unknown statuses get the
// neutral gray style.
func BadgeClass(status domain.RequestStatus) string {
	if c, ok := badgeClasses[status]; ok {
		return c
	}
	return fallbackBadge
}

// BorderClass is the left accent of a request card.
func BorderClass(r domain.TouristRequest) string {
	switch {
	case r.IsAccepted():
		return "border-green-500"
	case r.IsPending():
		return "border-yellow-500"
	default:
		return "border-gray-300"
	}
}

// StarCount rounds an average rating to whole stars, clamped to 0..5.
func StarCount(avg float64) int {
	if math.IsNaN(avg) {
		return 0
	}
	return clampStars(int(math.Round(avg)))
}

func clampStars(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxStars {
		return MaxStars
	}
	return n
}

// Stars returns MaxStars flags, the first filled of them true.
func Stars(filled int) []bool {
	filled = clampStars(filled)
	out := make([]bool, MaxStars)
	for i := 0; i < filled; i++ {
		out[i] = true
	}
	return out
}

func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(dateLayout)
}

func FormatDates(d domain.DateRange, loc *time.Location) string {
	out := FormatDate(d.Start, loc)
	if d.End != nil {
		out += " - " + FormatDate(*d.End, loc)
	}
	return out
}

// GuestsLabel renders "1 guest (solo)" or "3 guests (family)".
func GuestsLabel(n int, groupType string) string {
	label := fmt.Sprintf("%d %s", n, utils.Pluralize(n, "guest", "guests"))
	if groupType != "" {
		label += " (" + groupType + ")"
	}
	return label
}

func RatingLabel(avg float64) string {
	return fmt.Sprintf("%.1f / 5.0", avg)
}
