package validation

import "testing"

func TestIsValidSlug(t *testing.T) {
	valid := []string{"vortex", "team-liquid", "x9-esports", "abc"}
	for _, s := range valid {
		if !IsValidSlug(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	invalid := []string{"ab", "-leading", "trailing-", "UPPER", "has space", ""}
	for _, s := range invalid {
		if IsValidSlug(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	if !IsValidEmail("coach@vortex.gg") {
		t.Error("expected valid email")
	}
	for _, s := range []string{"", "no-at.example", "a@b", "two@@at.example"} {
		if IsValidEmail(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestIsValidHandle(t *testing.T) {
	valid := []string{"Faker", "Doublelift", "xX Shadow Xx", "Hide on bush#KR1"}
	for _, s := range valid {
		if !IsValidHandle(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	invalid := []string{"", "a", " leading", "way-too-long-handle-that-exceeds-the-cap-for-sure"}
	for _, s := range invalid {
		if IsValidHandle(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello\x00world  ", 100); got != "helloworld" {
		t.Errorf("unexpected sanitized value: %q", got)
	}
	if got := SanitizeString("abcdef", 3); got != "abc" {
		t.Errorf("expected truncation, got %q", got)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Coach@Vortex.GG "); got != "coach@vortex.gg" {
		t.Errorf("unexpected normalized email: %q", got)
	}
}
