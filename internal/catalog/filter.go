package catalog

import (
	"strings"
	"time"

	"rugsync/internal/connectors/rug"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the layouts seen from both APIs. Values without a
// zone are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FilterSince keeps records updated strictly after cutoff. Records with a
// missing or unreadable timestamp are dropped.
func FilterSince(records []rug.Record, cutoff time.Time) []rug.Record {
	out := make([]rug.Record, 0, len(records))
	for _, rec := range records {
		raw, ok := rec.UpdatedText()
		if !ok {
			continue
		}
		ts, ok := ParseTimestamp(raw)
		if !ok {
			continue
		}
		if ts.After(cutoff) {
			out = append(out, rec)
		}
	}
	return out
}
