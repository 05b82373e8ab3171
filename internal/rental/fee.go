package rental

import "time"

const day = 24 * time.Hour

// OverdueDays counts the whole calendar days (UTC) between the expected end
// date and the closing date.  Returning on or before the end date is 0.
func OverdueDays(endDate, closedAt time.Time) int {
	end := truncateDay(endDate)
	closed := truncateDay(closedAt)
	if !closed.After(end) {
		return 0
	}
	return int(closed.Sub(end) / day)
}

// ComputeFee returns daysOverdue * ratePerDayCents.  Amounts are integer
// cents and never negative.
func ComputeFee(daysOverdue int, ratePerDayCents int64) int64 {
	if daysOverdue <= 0 || ratePerDayCents <= 0 {
		return 0
	}
	return int64(daysOverdue) * ratePerDayCents
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
