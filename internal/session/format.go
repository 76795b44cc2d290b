package session

import "time"

// FormatTime renders a message timestamp (epoch milliseconds) relative to now:
// the time only for today, month and day for this year, the full date otherwise.
func FormatTime(ts int64, now time.Time) string {
	t := time.UnixMilli(ts).In(now.Location())

	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	switch {
	case y1 == y2 && m1 == m2 && d1 == d2:
		return t.Format("15:04:05")
	case y1 == y2:
		return t.Format("Jan 2, 15:04:05")
	default:
		return t.Format("Jan 2, 2006, 15:04:05")
	}
}
