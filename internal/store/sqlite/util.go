package sqlite

import "time"

// timeLayout is RFC3339Nano with a fixed-width fractional second instead of
// RFC3339Nano's trailing-zero-trimmed one, so lexicographic and SQL ORDER BY
// comparisons of the stored string agree with chronological order: ".1Z" and
// ".12Z" don't compare the way their durations do, but ".100000000Z" and
// ".120000000Z" do.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
