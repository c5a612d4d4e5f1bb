package dates

import (
	"fmt"
	"strings"
	"time"
)

// DayFormat is the layout used for announcement-marker days.
const DayFormat = "2006-01-02"

// IsBirthdayToday reports whether birthDate's month and day components match
// the given time. birthDate is the raw YYYY-MM-DD string as stored; the year
// is ignored, so any past or future year matches. The comparison is string
// based with zero-padded month/day, and malformed input is simply a
// non-match, never an error.
func IsBirthdayToday(birthDate string, now time.Time) bool {
	parts := strings.Split(birthDate, "-")
	if len(parts) != 3 {
		return false
	}
	month := fmt.Sprintf("%02d", int(now.Month()))
	day := fmt.Sprintf("%02d", now.Day())
	return parts[1] == month && parts[2] == day
}
