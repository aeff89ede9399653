// Package format renders dates, sizes and counts for templates.
package format

import (
	"fmt"
	"strings"
	"time"
)

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// FmtDate formats t in a locale-friendly long form.
// Example: FmtDate(t, "de") => "15. März 2025"
func FmtDate(t time.Time, lang string) string {
	if t.IsZero() {
		return ""
	}
	switch strings.ToLower(lang) {
	case "de":
		return fmt.Sprintf("%d. %s %d", t.Day(), germanMonths[t.Month()-1], t.Year())
	default:
		return t.Format("January 2, 2006")
	}
}

// ISODate returns t as YYYY-MM-DD for <time datetime> and JSON-LD.
func ISODate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// FileSize formats a byte count with binary units, one decimal above KB.
func FileSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 3; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

// Counter renders "used/limit", e.g. the message character counter.
func Counter(used, limit int) string {
	return fmt.Sprintf("%d/%d", used, limit)
}
