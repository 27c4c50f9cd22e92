package climate

import "time"

// dayUTC normalizes t to a UTC midnight, so date arithmetic below is never
// perturbed by time-of-day or location.
func dayUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isFeb29(t time.Time) bool {
	return t.Month() == time.February && t.Day() == 29
}

func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

// daysTo365 returns the number of calendar days from 'from' up to (but
// not including) 'to', excluding Feb-29 from the count: Feb-29 is excluded
// from all backing-store results by construction, so index math inside
// the cache and accessor uses a 365-day year. The result is negative if
// 'to' precedes 'from'.
func daysTo365(from, to time.Time) int {
	from, to = dayUTC(from), dayUTC(to)
	sign := 1
	a, b := from, to
	if to.Before(from) {
		a, b = to, from
		sign = -1
	}
	days := int(b.Sub(a).Hours() / 24)
	leap := countFeb29(a, b)
	return sign * (days - leap)
}

// countFeb29 counts Feb-29 dates in the half-open interval [a, b).
func countFeb29(a, b time.Time) int {
	count := 0
	for y := a.Year(); y <= b.Year(); y++ {
		if !isLeapYear(y) {
			continue
		}
		feb29 := time.Date(y, time.February, 29, 0, 0, 0, 0, time.UTC)
		if !feb29.Before(a) && feb29.Before(b) {
			count++
		}
	}
	return count
}

// addDays365 returns the date 'n' non-Feb-29 calendar days after from,
// skipping over Feb-29 as it walks forward (or backward for negative n).
func addDays365(from time.Time, n int) time.Time {
	d := dayUTC(from)
	if n >= 0 {
		for i := 0; i < n; i++ {
			d = d.AddDate(0, 0, 1)
			if isFeb29(d) {
				d = d.AddDate(0, 0, 1)
			}
		}
	} else {
		for i := 0; i < -n; i++ {
			d = d.AddDate(0, 0, -1)
			if isFeb29(d) {
				d = d.AddDate(0, 0, -1)
			}
		}
	}
	return d
}

// dayBefore returns the calendar day immediately before d, skipping Feb-29.
func dayBefore(d time.Time) time.Time { return addDays365(d, -1) }

// dayAfter returns the calendar day immediately after d, skipping Feb-29.
func dayAfter(d time.Time) time.Time { return addDays365(d, 1) }
