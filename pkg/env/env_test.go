package env

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("CURA_ENV_TEST", "value")
	if got := Get("CURA_ENV_TEST", "fallback"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}

	t.Setenv("CURA_ENV_TEST", "")
	if got := Get("CURA_ENV_TEST", "fallback"); got != "fallback" {
		t.Fatalf("empty variable should fall back, got %q", got)
	}

	if got := Get("CURA_ENV_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("unset variable should fall back, got %q", got)
	}
}
