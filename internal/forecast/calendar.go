package forecast

import "time"

// AddMonths moves t forward n calendar months, clamping the day to the end
// of the target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

// MonthStarts returns the first day of each of the n months following t.
func MonthStarts(t time.Time, n int) []time.Time {
	y, m, _ := t.Date()
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(y, m+time.Month(i+1), 1, 0, 0, 0, 0, t.Location())
	}
	return out
}

func daysIn(monthStart time.Time) int {
	return monthStart.AddDate(0, 1, -1).Day()
}

// yearsSince converts t into fractional years after origin.
func yearsSince(origin, t time.Time) float64 {
	return t.Sub(origin).Hours() / 24 / 365.25
}
