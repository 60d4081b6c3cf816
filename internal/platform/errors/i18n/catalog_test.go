package i18n

import (
	"testing"
	"testing/fstest"
)

func TestGetCatalogFallback(t *testing.T) {
	base := GetCatalog(BaseLocale)
	if base == nil {
		t.Fatal("expected base catalog")
	}
	fallback := GetCatalog("tlh")
	if fallback != base {
		t.Fatal("expected fallback to en-US catalog")
	}
}

func TestGetCatalogMatchesRegionalVariant(t *testing.T) {
	if got := GetCatalog("fr-CA").Locale(); got != "fr" {
		t.Fatalf("locale = %q, want fr", got)
	}
	if got := GetCatalog("pt-BR").Locale(); got != "pt-BR" {
		t.Fatalf("locale = %q, want pt-BR", got)
	}
}

func TestMatchAcceptLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", BaseLocale},
		{"es-MX,es;q=0.9,en;q=0.5", "es"},
		{"de-DE", BaseLocale},
		{"not a header;;;", BaseLocale},
		{"en-GB", BaseLocale},
	}
	for _, tt := range tests {
		if got := MatchAcceptLanguage(tt.header); got != tt.want {
			t.Errorf("MatchAcceptLanguage(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestEmbeddedCatalogsCoverBaseCodes(t *testing.T) {
	base := GetCatalog(BaseLocale)
	for _, locale := range []string{"es", "fr", "pt-BR"} {
		cat := GetCatalog(locale)
		for code := range base.messages {
			if _, ok := cat.messages[code]; !ok {
				t.Errorf("locale %s missing %s", locale, code)
			}
		}
	}
}

func TestFormatRendersMetadata(t *testing.T) {
	got := GetCatalog(BaseLocale).Format("SCORE_OUT_OF_RANGE", map[string]string{"Criterion": "impact"})
	if got != "Score for impact must be between 0 and 10." {
		t.Fatalf("message = %q", got)
	}
}

func TestFormatFallbacks(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "hello {{.Name}}",
	})

	if cat.Format("unknown", nil) != "unknown" {
		t.Fatal("expected code fallback when template missing")
	}
	if cat.Format("code", nil) != "hello <no value>" {
		t.Fatal("expected template to render missing metadata")
	}
}

func TestFormatTemplateErrorFallback(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "{{ if .Name }}",
	})
	if cat.Format("code", map[string]string{"Name": "X"}) != "{{ if .Name }}" {
		t.Fatal("expected template fallback on parse error")
	}
}

func TestLoadFromFSRejectsBadLocale(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/bad.yaml": &fstest.MapFile{Data: []byte("locale: \"???\"\nmessages: {}\n")},
	}
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatal("expected invalid locale error")
	}
}

func TestLoadFromFSRequiresFiles(t *testing.T) {
	if _, err := LoadFromFS(fstest.MapFS{}); err == nil {
		t.Fatal("expected missing catalog error")
	}
}
