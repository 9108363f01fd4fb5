package utils

import (
	"strings"

	"golang.org/x/text/language"
)

// DetermineLocale picks a locale from an explicit query value, then the
// Accept-Language header, then def. supported holds base tags like "km", "en".
func DetermineLocale(queryLang, acceptLang string, supported []string, def string) string {
	if len(supported) == 0 {
		return def
	}
	tags := make([]language.Tag, 0, len(supported))
	for _, s := range supported {
		tags = append(tags, language.Make(strings.ToLower(s)))
	}
	matcher := language.NewMatcher(tags)

	if q := strings.TrimSpace(queryLang); q != "" {
		if t, err := language.Parse(q); err == nil {
			if _, idx, conf := matcher.Match(t); conf >= language.High {
				return strings.ToLower(supported[idx])
			}
		}
	}
	if acceptLang != "" {
		if prefs, _, err := language.ParseAcceptLanguage(acceptLang); err == nil && len(prefs) > 0 {
			if _, idx, conf := matcher.Match(prefs...); conf >= language.High {
				return strings.ToLower(supported[idx])
			}
		}
	}
	for _, s := range supported {
		if strings.EqualFold(s, def) {
			return strings.ToLower(s)
		}
	}
	return strings.ToLower(supported[0])
}
