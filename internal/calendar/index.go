// Package calendar provides the canonical day index used to align
// differently-shaped health time series onto one shared daily calendar.
package calendar

import (
	"encoding/json"
	"fmt"
	"time"
)

// WindowDays is the number of completed calendar days covered by one snapshot.
const WindowDays = 14

const secondsPerDay = 24 * 60 * 60

// Day is a timezone-stable key for a single calendar day: the number of
// days since the Unix epoch of that civil date. Samples taken anywhere in
// the same local calendar day map to the same Day, including across DST
// transitions.
type Day int64

// DayOf returns the Day containing t in the given location.
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	return Day(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay)
}

// Date returns the civil date identified by d.
func (d Day) Date() (year int, month time.Month, day int) {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC().Date()
}

// At returns the instant at the given hour of d in the given location.
func (d Day) At(hour int, loc *time.Location) time.Time {
	y, m, dd := d.Date()
	return time.Date(y, m, dd, hour, 0, 0, 0, loc)
}

// Start returns local midnight of d.
func (d Day) Start(loc *time.Location) time.Time {
	return d.At(0, loc)
}

func (d Day) String() string {
	y, m, dd := d.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), dd)
}

// MarshalJSON encodes d as a "YYYY-MM-DD" string.
func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Day) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	*d = DayOf(t, time.UTC)
	return nil
}

// Window returns the day keys for the n completed days before now in the
// given location, oldest first: the last element is yesterday, the first
// is n days ago. The result always has exactly n distinct, consecutive
// keys regardless of the reference instant.
func Window(now time.Time, loc *time.Location, n int) []Day {
	yesterday := DayOf(now, loc) - 1
	out := make([]Day, n)
	for i := range out {
		out[i] = yesterday - Day(n-1-i)
	}
	return out
}
