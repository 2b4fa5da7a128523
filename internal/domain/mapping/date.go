package mapping

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// dateLayouts mirror DateFormats, minus epoch_millis which is handled separately.
// Day and month accept one or two digits, matching what inference classifies as a date.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-1-2",
	"2006/1/2",
	"1/2/2006",
	"2/1/2006",
	"2006-1-2 15:04:05",
	"2006/1/2 15:04:05",
	"2/1/2006 15:04:05",
}

// ParseDate interprets v as a date using DateFormats. Numbers and digit-only
// strings are epoch milliseconds. Times without a zone are UTC.
func ParseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return x.UTC(), true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return x.UTC(), true
	case string:
		return parseDateString(x)
	case *string:
		if x == nil {
			return time.Time{}, false
		}
		return parseDateString(*x)
	}

	ms, err := cast.ToInt64E(v)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if isDigits(s) {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// EpochMillis converts a date value into epoch milliseconds.
func EpochMillis(v any) (int64, bool) {
	t, ok := ParseDate(v)
	if !ok {
		return 0, false
	}
	return t.UnixMilli(), true
}

func isDigits(s string) bool {
	start := 0
	if s[0] == '-' {
		start = 1
	}
	if start == len(s) {
		return false
	}
	for i := start; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
