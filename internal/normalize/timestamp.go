package normalize

import (
	"strconv"
	"strings"
	"time"

	"sentinel/pkg/models"
)

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05-0700",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"01/02/06-15:04:05.999999",
}

func timestampOf(raw models.RawEvent) (time.Time, bool) {
	for _, path := range timestampPaths {
		v, ok := raw.Lookup(path)
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if ts, ok := parseTime(val); ok {
				return ts, true
			}
		case float64:
			return fromEpoch(val, raw), true
		case int:
			return fromEpoch(float64(val), raw), true
		case int64:
			return fromEpoch(float64(val), raw), true
		}
	}
	return time.Time{}, false
}

// parseTime accepts ISO-8601 variants, Suricata's numeric zone offsets,
// Snort's console format, and epoch seconds. Naive layouts are read as UTC.
func parseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, true
		}
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
		return epoch(secs, 0), true
	}
	return time.Time{}, false
}

func fromEpoch(secs float64, raw models.RawEvent) time.Time {
	var micros int64
	if v, ok := raw.Lookup("Event.event_microsecond"); ok {
		if n, ok := toInt(v); ok {
			micros = int64(n)
		}
	}
	return epoch(secs, micros)
}

func epoch(secs float64, micros int64) time.Time {
	whole := int64(secs)
	frac := int64((secs - float64(whole)) * float64(time.Second))
	return time.Unix(whole, frac+micros*int64(time.Microsecond)).UTC()
}
