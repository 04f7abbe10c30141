package leads

import (
	"strings"
	"time"
)

// DefaultLocale is used when no locale is configured for date display.
const DefaultLocale = "en-US"

// dateLayouts maps lowercase locale tags to short date layouts.
var dateLayouts = map[string]string{
	"en-us":   "1/2/2006",
	"en":      "1/2/2006",
	"en-gb":   "02/01/2006",
	"en-in":   "2/1/2006",
	"ur-pk":   "2/1/2006",
	"de":      "2.1.2006",
	"fr":      "02/01/2006",
	"es":      "2/1/2006",
	"ja":      "2006/1/2",
	"iso":     time.DateOnly,
	"default": "1/2/2006",
}

// timestampLayouts are tried in order when parsing backend timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	time.DateTime,
	time.DateOnly,
}

// FormatDate renders a backend timestamp as a short date for the locale.
// Values that cannot be parsed are returned unchanged.
func FormatDate(raw, locale string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ts, ok := ParseTimestamp(raw)
	if !ok {
		return raw
	}
	return ts.Format(dateLayoutFor(locale))
}

// ParseTimestamp parses the timestamp formats emitted by the quotations API.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func dateLayoutFor(locale string) string {
	for _, candidate := range localeCandidates(locale) {
		if layout, ok := dateLayouts[candidate]; ok {
			return layout
		}
	}
	return dateLayouts["default"]
}

// localeCandidates lists the lookup order for a locale: exact tag, base language, default.
func localeCandidates(locale string) []string {
	locale = normalizeLocale(locale)
	if locale == "" {
		return []string{"default"}
	}
	candidates := []string{locale}
	if idx := strings.Index(locale, "-"); idx > 0 {
		candidates = append(candidates, locale[:idx])
	}
	return append(candidates, "default")
}

func normalizeLocale(locale string) string {
	locale = strings.TrimSpace(strings.ToLower(locale))
	return strings.ReplaceAll(locale, "_", "-")
}
