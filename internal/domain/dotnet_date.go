package domain

import (
	"regexp"
	"strconv"
	"time"
)

// NotAvailable подставляется вместо пустой даты.
const NotAvailable = "N/A"

var dotNetDatePattern = regexp.MustCompile(`/Date\((-?\d+)([+-]\d+)?\)/`)

// ParseDotNetDate извлекает момент времени из строки вида /Date(ms)/ или /Date(ms±hhmm)/.
// Смещение часового пояса игнорируется: миллисекунды уже отсчитаны от эпохи в UTC.
func ParseDotNetDate(raw string) (time.Time, bool) {
	m := dotNetDatePattern.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// FormatDotNetDate приводит дату Query API к YYYY-MM-DD.
// Пустая строка превращается в N/A, строка без маркера возвращается как есть.
func FormatDotNetDate(raw string) string {
	if raw == "" {
		return NotAvailable
	}
	ts, ok := ParseDotNetDate(raw)
	if !ok {
		return raw
	}
	return ts.Format(time.DateOnly)
}
