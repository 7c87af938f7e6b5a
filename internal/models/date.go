package models

import "time"

// DateLayout is the calendar date format used in file paths, CSV cells and reports.
const DateLayout = "2006-01-02"

// Shanghai is the fixed UTC+8 civil timezone the dashboard publishes in.
var Shanghai = time.FixedZone("Asia/Shanghai", 8*60*60)

// DateOf truncates t to midnight of its calendar day in Shanghai.
func DateOf(t time.Time) time.Time {
	y, m, d := t.In(Shanghai).Date()

	return time.Date(y, m, d, 0, 0, 0, 0, Shanghai)
}

// MidnightMs returns the epoch milliseconds of the Shanghai midnight starting t's day.
func MidnightMs(t time.Time) int64 {
	return DateOf(t).UnixMilli()
}

// FormatDate renders t as YYYY-MM-DD in Shanghai.
func FormatDate(t time.Time) string {
	return t.In(Shanghai).Format(DateLayout)
}

// FormatTimestamp renders t as RFC 3339 with the +08:00 offset.
func FormatTimestamp(t time.Time) string {
	return t.In(Shanghai).Format(time.RFC3339)
}
