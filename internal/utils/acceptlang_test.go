package utils

import "testing"

func TestDetermineLocale_QueryParamWins(t *testing.T) {
	got := DetermineLocale("km-KH", "en-US,en;q=0.9,km;q=0.8", Locales, DefaultLocale)
	if got != "km" {
		t.Fatalf("want km, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguageOrder(t *testing.T) {
	got := DetermineLocale("", "en-US,en;q=0.9,km;q=0.8", Locales, DefaultLocale)
	if got != "en" {
		t.Fatalf("want en, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguagePrefersHigherQ(t *testing.T) {
	got := DetermineLocale("", "en;q=0.8,km;q=0.9", Locales, DefaultLocale)
	if got != "km" {
		t.Fatalf("want km, got %s", got)
	}
}

func TestDetermineLocale_DefaultFallback(t *testing.T) {
	got := DetermineLocale("xx-invalid-", "fr-FR,es;q=0.9", Locales, DefaultLocale)
	if got != "km" {
		t.Fatalf("want km fallback, got %s", got)
	}
}
