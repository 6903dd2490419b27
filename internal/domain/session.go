package domain

import (
	"strings"
	"unicode"
)

type Step int

const (
	StepEmailEntry Step = iota
	StepCodeVerification
	StepAuthenticated
)

func (s Step) String() string {
	switch s {
	case StepEmailEntry:
		return "email"
	case StepCodeVerification:
		return "verify"
	case StepAuthenticated:
		return "dashboard"
	default:
		return "unknown"
	}
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const CodeLength = 6

// Session is the transient state of one tourist's dashboard access flow.
// Token is non-empty iff Step == StepAuthenticated.
type Session struct {
	Step    Step   `json:"step"`
	Email   string `json:"email"`
	Code    string `json:"-"`
	Token   string `json:"-"`
	Error   string `json:"error,omitempty"`
	Loading bool   `json:"loading"`
}

// SanitizeCode keeps digits only and truncates to CodeLength.
func SanitizeCode(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if b.Len() == CodeLength {
			break
		}
		if r < 128 && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsCompleteCode reports whether code is exactly CodeLength ASCII digits.
func IsCompleteCode(code string) bool {
	return len(code) == CodeLength && SanitizeCode(code) == code
}
