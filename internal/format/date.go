// Package format holds the display formatters used by the row builder. Every
// function is total: missing or malformed input yields an empty string.
package format

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	weekdays = [...]string{"LUN.", "MAR.", "MIÉ.", "JUE.", "VIE.", "SÁB.", "DOM."}
	months   = [...]string{"ENE.", "FEB.", "MAR.", "ABR.", "MAY.", "JUN.", "JUL.", "AGO.", "SEP.", "OCT.", "NOV.", "DIC."}

	zoneOffset = regexp.MustCompile(`[+-]\d{2}:?\d{2}$`)

	timestampLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// ParseTimestamp parses an ISO-8601 timestamp as wall-clock time. Fractional
// seconds and any zone marker are dropped, no zone conversion happens.
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	s = strings.TrimSuffix(strings.TrimSuffix(s, "Z"), "z")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	if strings.ContainsAny(s, "T ") {
		s = zoneOffset.ReplaceAllString(s, "")
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date renders "MIÉ. 24 SEP." style labels.
func Date(raw string) string {
	t, ok := ParseTimestamp(raw)
	if !ok {
		return ""
	}
	// time.Weekday starts on Sunday, the label table on Monday
	weekday := weekdays[(int(t.Weekday())+6)%7]
	return fmt.Sprintf("%s %02d %s", weekday, t.Day(), months[t.Month()-1])
}

// Clock renders the 24-hour HH:MM of a timestamp.
func Clock(raw string) string {
	t, ok := ParseTimestamp(raw)
	if !ok {
		return ""
	}
	return t.Format("15:04")
}

// TimeRange renders "HH:MM" or "HH:MM HH:MM" when an end is known.
// An unparsable end is left out rather than blanking the whole label.
func TimeRange(start, end string) string {
	s := Clock(start)
	if s == "" {
		return ""
	}
	if e := Clock(end); e != "" {
		return s + " " + e
	}
	return s
}

// ISODate returns the YYYY-MM-DD part of a timestamp.
func ISODate(raw string) string {
	t, ok := ParseTimestamp(raw)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}
