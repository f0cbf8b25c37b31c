package analytics

import "time"

const dateKeyLayout = "2006-01-02"

// windowEpsilonDays keeps a stat dated exactly N days ago inside the window
// until the day fully rolls over. Changing this to a strict elapsed-time test
// would shift reported numbers at day boundaries.
const windowEpsilonDays = 0.0001

// DateKey formats a timestamp as a UTC calendar date key (YYYY-MM-DD).
func DateKey(t time.Time) string {
	return t.UTC().Format(dateKeyLayout)
}

// DateKeyDaysAgo returns the date key daysAgo whole calendar days before now.
func DateKeyDaysAgo(daysAgo int, now time.Time) string {
	return DateKey(now.UTC().AddDate(0, 0, -daysAgo))
}

// WithinLastNDays reports whether the date key falls inside the trailing
// N-calendar-day window ending at now. The comparison runs from the date's
// UTC midnight, so a stat dated exactly N-1 days ago is always included and
// one dated N days ago is included until the current day rolls over.
func WithinLastNDays(dateKey string, days int, now time.Time) bool {
	target, err := time.ParseInLocation(dateKeyLayout, dateKey, time.UTC)
	if err != nil {
		return false
	}
	diffDays := now.Sub(target).Hours() / 24
	return diffDays >= 0 && diffDays < float64(days)+windowEpsilonDays
}
