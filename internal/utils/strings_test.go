package utils

import "testing"

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"city_tour":         "City tour",
		"guided_experience": "Guided experience",
		"itinerary_help":    "Itinerary help",
		"":                  "",
		"_":                 "",
		"x":                 "X",
	}
	for in, want := range tests {
		if got := Humanize(in); got != want {
			t.Errorf("Humanize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPluralize(t *testing.T) {
	if got := Pluralize(1, "guest", "guests"); got != "guest" {
		t.Errorf("got %q", got)
	}
	for _, n := range []int{0, 2, 20} {
		if got := Pluralize(n, "guest", "guests"); got != "guests" {
			t.Errorf("Pluralize(%d) = %q", n, got)
		}
	}
}

func TestEmailAndPhone(t *testing.T) {
	if got := NormalizeEmail("  A@B.Com "); got != "a@b.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
	if !IsValidEmail("tourist@example.com") || IsValidEmail("tourist@x") || IsValidEmail("a@b@c.com") {
		t.Error("IsValidEmail misclassified an address")
	}
	if got := NormalizePhone("+1 (555) 010-9999"); got != "+15550109999" {
		t.Errorf("NormalizePhone = %q", got)
	}
	if IsValidPhone("123") {
		t.Error("short phone should be invalid")
	}
}
