package validation

import (
	"strings"
	"testing"
)

func TestValidateAccessCode(t *testing.T) {
	valid := []string{"abc123", "Ronda-Malam-2024", strings.Repeat("x", 64)}
	for _, code := range valid {
		if err := ValidateAccessCode(code); err != nil {
			t.Fatalf("ValidateAccessCode(%q) unexpected error: %v", code, err)
		}
	}

	invalid := []string{"", "abc12", strings.Repeat("x", 65), " abc123", "abc\t123", strings.Repeat("я", 40)}
	for _, code := range invalid {
		if err := ValidateAccessCode(code); err == nil {
			t.Fatalf("ValidateAccessCode(%q) expected error", code)
		}
	}
}

func TestValidatePeriodAndShift(t *testing.T) {
	if err := ValidatePeriod("2024-07"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range []string{"2024-7", "2024-13", "24-07", ""} {
		if err := ValidatePeriod(p); err == nil {
			t.Fatalf("ValidatePeriod(%q) expected error", p)
		}
	}

	if err := ValidateShift("22:00", "04:00"); err != nil {
		t.Fatalf("overnight shift should be valid: %v", err)
	}
	if err := ValidateShift("22:00", "22:00"); err == nil {
		t.Fatal("equal start and end should fail")
	}
	if err := ValidateShift("25:00", "04:00"); err == nil {
		t.Fatal("bad hour should fail")
	}
}
