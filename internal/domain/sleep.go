package domain

import (
	"context"

	"example.com/snapshot/internal/calendar"
)

// sleepDayBoundaryHour ends each sleep day at 15:00 local time, so a
// night's sleep is never split across the midnight boundary.
const sleepDayBoundaryHour = 15

// sleepHours computes total asleep hours per sleep day. The window for
// day D runs from 15:00 on the previous calendar day to 15:00 on D; all
// asleep samples whose interval intersects the window contribute their
// full duration (overlaps are summed, not merged). Each day is queried
// independently: a failed day yields zero hours, never an aborted run.
func (a *Aggregator) sleepHours(ctx context.Context, days []calendar.Day) []float64 {
	out := make([]float64, len(days))
	for i, day := range days {
		winStart := (day - 1).At(sleepDayBoundaryHour, a.loc)
		winEnd := day.At(sleepDayBoundaryHour, a.loc)

		samples, err := a.source.Samples(ctx, SampleQuery{
			Metric: MetricSleepAsleep,
			Start:  winStart,
			End:    winEnd,
		})
		if err != nil {
			a.fetchFailed(string(MetricSleepAsleep), &QueryError{Metric: MetricSleepAsleep, Err: err})
			continue
		}

		var seconds float64
		for _, s := range samples {
			seconds += s.End.Sub(s.Start).Seconds()
		}
		out[i] = seconds / 3600
	}
	return out
}
