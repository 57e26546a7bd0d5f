package timeutil

import "time"

// NextHour returns the next wall-clock top-of-hour after t.
func NextHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location()).Add(time.Hour)
}

// UntilNextHour returns the delay from t to the next top-of-hour.
func UntilNextHour(t time.Time) time.Duration {
	return NextHour(t).Sub(t)
}

// FundingCountdown splits the time remaining until the next top-of-hour into
// whole minutes and leftover seconds.
func FundingCountdown(t time.Time) (minutes, seconds int) {
	d := UntilNextHour(t)
	minutes = int(d / time.Minute)
	seconds = int((d % time.Minute) / time.Second)
	return minutes, seconds
}
