package fieldcodec

import (
	"fmt"
	"strings"
	"time"

	"petcore/pkg/domain"
)

// DateLayout is the wire and editor date format.
const DateLayout = "2006-01-02"

// DecodeDate returns the normalized date, or "" when raw is not a valid date
// (the calendar then opens on today).
func DecodeDate(raw string) string {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return t.Format(DateLayout)
}

// EncodeDate validates an editor date.
func EncodeDate(v string) (string, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(v))
	if err != nil {
		return "", fmt.Errorf("date %q: %w", v, domain.ErrParseFailure)
	}
	return t.Format(DateLayout), nil
}

// FormatAge renders the age shown next to the birthday, "N yrs M mos", or
// "Unknown" for an unparsable birthday. Only year and month are compared.
func FormatAge(birthday string, now time.Time) string {
	b, err := time.Parse(DateLayout, strings.TrimSpace(birthday))
	if err != nil {
		return "Unknown"
	}
	years := now.Year() - b.Year()
	months := int(now.Month()) - int(b.Month())
	if months < 0 {
		years--
		months += 12
	}
	return fmt.Sprintf("%d yrs %d mos", years, months)
}
