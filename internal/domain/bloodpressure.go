package domain

import (
	"context"
	"fmt"
	"time"

	"example.com/snapshot/internal/calendar"
)

// fetchBloodPressure groups correlated systolic/diastolic pairs by the day
// key of each correlation's timestamp, preserving store order within a
// day. A correlation missing either component violates the provider
// contract and fails the whole query so data-integrity problems surface
// instead of being skipped.
func (a *Aggregator) fetchBloodPressure(ctx context.Context, start, end time.Time) (map[calendar.Day][]BloodPressureReading, error) {
	correlations, err := a.source.Correlations(ctx, CorrelationQuery{
		Correlation: MetricBloodPressure,
		Components:  []MetricID{ComponentSystolic, ComponentDiastolic},
		Start:       start,
		End:         end,
	})
	if err != nil {
		return nil, &QueryError{Metric: MetricBloodPressure, Err: err}
	}

	grouped := make(map[calendar.Day][]BloodPressureReading)
	for _, c := range correlations {
		systolic, ok := c.Components[ComponentSystolic]
		if !ok {
			return nil, &QueryError{
				Metric: MetricBloodPressure,
				Err:    fmt.Errorf("correlation at %s missing systolic component", c.Timestamp.Format(time.RFC3339)),
			}
		}
		diastolic, ok := c.Components[ComponentDiastolic]
		if !ok {
			return nil, &QueryError{
				Metric: MetricBloodPressure,
				Err:    fmt.Errorf("correlation at %s missing diastolic component", c.Timestamp.Format(time.RFC3339)),
			}
		}
		day := calendar.DayOf(c.Timestamp, a.loc)
		grouped[day] = append(grouped[day], BloodPressureReading{Systolic: systolic, Diastolic: diastolic})
	}
	return grouped, nil
}
