package utils

import "testing"

func TestT_Fallback(t *testing.T) {
	if got := T("fr", "health.ok"); got != "ok" {
		t.Fatalf("fallback to en failed: %s", got)
	}
	if got := T("km", "missing.key"); got != "missing.key" {
		t.Fatalf("unknown key should echo: %s", got)
	}
}

func TestCatalogueComplete(t *testing.T) {
	for key := range translations["en"] {
		if _, ok := translations["km"][key]; !ok {
			t.Fatalf("km missing %s", key)
		}
	}
}
