package utils

import "testing"

func TestValidateEmail(t *testing.T) {
	valid := []string{"asha@example.edu", "a.rao+tag@dept.university.ac.in"}
	for _, email := range valid {
		if !ValidateEmail(email) {
			t.Errorf("ValidateEmail(%q) = false, want true", email)
		}
	}
	invalid := []string{"", "not-an-email", "user@", "@dept.edu", "user@dept"}
	for _, email := range invalid {
		if ValidateEmail(email) {
			t.Errorf("ValidateEmail(%q) = true, want false", email)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := SanitizeInput("  CSE\x00 "); got != "CSE" {
		t.Errorf("SanitizeInput = %q, want CSE", got)
	}
}
