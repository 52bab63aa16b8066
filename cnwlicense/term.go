package cnwlicense

import "time"

// InTerm reports whether today's calendar date lies within term, both ends
// inclusive. today is converted to UTC before its date is taken. A missing or
// unparseable bound yields false.
func InTerm(term Term, today time.Time) bool {
	start, err := parseDate(term.Start)
	if err != nil {
		return false
	}
	end, err := parseDate(term.End)
	if err != nil {
		return false
	}
	d := utcDate(today)
	return !d.Before(start) && !d.After(end)
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}

// utcDate truncates t to midnight UTC of its UTC calendar date.
func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
