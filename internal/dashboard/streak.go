package dashboard

import "time"

type civilDay struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time) civilDay {
	y, m, d := t.Date()
	return civilDay{y, m, d}
}

func (c civilDay) after(o civilDay) bool {
	if c.year != o.year {
		return c.year > o.year
	}
	if c.month != o.month {
		return c.month > o.month
	}
	return c.day > o.day
}

// Streak counts consecutive calendar days with activity, ending at the most
// recent activity day. Days are taken in loc (UTC when nil). Order of the
// timestamps does not matter; several on one day count once.
func Streak(times []time.Time, loc *time.Location) int {
	if len(times) == 0 {
		return 0
	}
	if loc == nil {
		loc = time.UTC
	}

	days := make(map[civilDay]struct{}, len(times))
	var latest civilDay
	for i, t := range times {
		d := dayOf(t.In(loc))
		days[d] = struct{}{}
		if i == 0 || d.after(latest) {
			latest = d
		}
	}

	// Walk backwards on UTC noon so DST changes in loc cannot skip a day.
	cursor := time.Date(latest.year, latest.month, latest.day, 12, 0, 0, 0, time.UTC)
	streak := 0
	for {
		if _, ok := days[dayOf(cursor)]; !ok {
			return streak
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
}
