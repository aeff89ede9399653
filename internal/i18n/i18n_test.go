package i18n

import "testing"

func load(t *testing.T) *Bundle {
	t.Helper()
	b, err := Load("../../locales", "en", []string{"en", "de"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return b
}

func TestResolveHonorsQValues(t *testing.T) {
	b := load(t)
	if got := b.Resolve("en;q=0.8, de;q=0.9"); got != "de" {
		t.Fatalf("expected de, got %s", got)
	}
	if got := b.Resolve("de-CH, en;q=0.5"); got != "de" {
		t.Fatalf("expected de for regional tag, got %s", got)
	}
}

func TestResolveFallsBack(t *testing.T) {
	b := load(t)
	for _, header := range []string{"", "ja", "!!!"} {
		if got := b.Resolve(header); got != "en" {
			t.Fatalf("Resolve(%q) = %s, want en", header, got)
		}
	}
}

func TestTranslateFallsBackToDefaultThenKey(t *testing.T) {
	b := load(t)
	if got := b.T("de", "nav.contact"); got != "Kontakt" {
		t.Fatalf("unexpected de translation %q", got)
	}
	if got := b.T("fr", "nav.contact"); got != "Contact" {
		t.Fatalf("unexpected fallback translation %q", got)
	}
	if got := b.T("de", "missing.key"); got != "missing.key" {
		t.Fatalf("expected key echo, got %q", got)
	}
}

func TestLoadRequiresFallbackFile(t *testing.T) {
	if _, err := Load(t.TempDir(), "en", nil); err == nil {
		t.Fatalf("expected error for missing fallback file")
	}
}
