package domain

import (
	"fmt"
	"strings"
	"time"
)

// Bucket is one ordered container on a board. Kanban buckets are columns and carry no dates;
// planning buckets are ISO weeks starting on Monday.
type Bucket struct {
	Key   string
	Name  string
	Start time.Time
	End   time.Time
}

// Dated reports whether the bucket spans a calendar range.
func (b Bucket) Dated() bool {
	return !b.Start.IsZero()
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekKey returns the ISO week key (YYYY-Www) containing t.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// WeekStart returns the Monday that opens the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	d := DateOnly(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeekBucket returns the planning bucket for the ISO week containing t.
func WeekBucket(t time.Time) Bucket {
	start := WeekStart(t)
	return Bucket{
		Key:   WeekKey(start),
		Name:  "Week of " + start.Format("Jan 2, 2006"),
		Start: start,
		End:   start.AddDate(0, 0, 7),
	}
}

// WeekBuckets lists every ISO week touching [from, to], in order.
func WeekBuckets(from, to time.Time) []Bucket {
	start := WeekStart(from)
	last := DateOnly(to)
	if last.Before(start) {
		return nil
	}
	out := make([]Bucket, 0, int(last.Sub(start).Hours()/24/7)+1)
	for wk := start; !wk.After(last); wk = wk.AddDate(0, 0, 7) {
		out = append(out, WeekBucket(wk))
	}
	return out
}

// ParseWeekKey parses a YYYY-Www key into its planning bucket.
func ParseWeekKey(key string) (Bucket, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	var year, week int
	if n, err := fmt.Sscanf(key, "%4d-W%2d", &year, &week); err != nil || n != 2 || len(key) != 8 {
		return Bucket{}, fmt.Errorf("%w: %q", ErrInvalidBucketKey, key)
	}
	if week < 1 || week > 53 {
		return Bucket{}, fmt.Errorf("%w: %q", ErrInvalidBucketKey, key)
	}
	// January 4th always falls in ISO week 1.
	monday := WeekStart(time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)).AddDate(0, 0, 7*(week-1))
	if y, w := monday.ISOWeek(); y != year || w != week {
		return Bucket{}, fmt.Errorf("%w: %q", ErrInvalidBucketKey, key)
	}
	return WeekBucket(monday), nil
}
