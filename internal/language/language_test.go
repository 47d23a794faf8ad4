package language

import "testing"

func TestGetLanguage(t *testing.T) {
	lang, ok := GetLanguage("fr")
	if !ok {
		t.Fatal("expected fr to be supported")
	}
	if lang.Name != "French" {
		t.Fatalf("unexpected name: %s", lang.Name)
	}
	if lang.MaxLineLen != 42 {
		t.Fatalf("unexpected line length: %d", lang.MaxLineLen)
	}

	if _, ok := GetLanguage("xx"); ok {
		t.Fatal("expected xx to be unsupported")
	}
}

func TestGetSupportedLanguagesSorted(t *testing.T) {
	entries := GetSupportedLanguages()
	if len(entries) != len(Languages) {
		t.Fatalf("expected %d entries, got %d", len(Languages), len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Name > entries[i].Name {
			t.Fatalf("entries not sorted: %s > %s", entries[i-1].Name, entries[i].Name)
		}
	}
}
