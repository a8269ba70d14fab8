package snippet

import "time"

// Weeks are 7-day buckets anchored on Monday. All anchors are bare UTC
// dates (midnight); arithmetic between anchors is in multiples of 7 days.

const week = 7 * 24 * time.Hour

// Date strips d to a UTC calendar date.
func Date(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// weekday returns d's weekday with Monday == 0, Sunday == 6.
func weekday(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// WeekAnchor floors d to the Monday of its week.
func WeekAnchor(d time.Time) time.Time {
	d = Date(d)
	return d.AddDate(0, 0, -weekday(d))
}

// IsAnchor reports whether d is a valid week anchor (a Monday).
func IsAnchor(d time.Time) bool {
	return weekday(d) == 0
}

// SubmissionAnchor is the Monday new snippets default to. Up through
// Wednesday a snippet is assumed to be for the previous week; from
// Thursday on it is for the current week:
//
//	weekday <= 2: today - (weekday+7) days
//	otherwise:    today - weekday days
func SubmissionAnchor(today time.Time) time.Time {
	today = Date(today)
	wd := weekday(today)
	if wd <= 2 {
		return today.AddDate(0, 0, -(wd + 7))
	}
	return today.AddDate(0, 0, -wd)
}

// ViewAnchor is the Monday of the most recently completed week, the
// default week for digest views. Unlike SubmissionAnchor it is always
// exactly one week back, regardless of weekday.
func ViewAnchor(today time.Time) time.Time {
	today = Date(today)
	return today.AddDate(0, 0, -(weekday(today) + 7))
}

// NextWeek and PrevWeek step an anchor by one period.
func NextWeek(anchor time.Time) time.Time { return anchor.AddDate(0, 0, 7) }
func PrevWeek(anchor time.Time) time.Time { return anchor.AddDate(0, 0, -7) }
