package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"example.com/snapshot/internal/calendar"
)

var testNow = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func newTestAggregator(t *testing.T, src MetricSource) *Aggregator {
	t.Helper()
	return NewAggregator(src, time.UTC, zerolog.Nop(), WithClock(func() time.Time { return testNow }))
}

func TestAggregateReturnsFourteenOrderedRecords(t *testing.T) {
	agg := newTestAggregator(t, &stubSource{})

	snapshot, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot.Days, calendar.WindowDays)

	yesterday := calendar.DayOf(testNow, time.UTC) - 1
	require.Equal(t, yesterday, snapshot.Days[len(snapshot.Days)-1].Day)

	for i, record := range snapshot.Days {
		if i > 0 {
			require.Equal(t, snapshot.Days[i-1].Day+1, record.Day, "days must be consecutive")
		}
		require.Equal(t, SexFemale, record.BiologicalSex)
		require.NotNil(t, record.BloodPressureReadings)
		require.Empty(t, record.BloodPressureReadings)
		require.NotNil(t, record.SleepHours)
		require.Zero(t, *record.SleepHours)
	}
}

func TestScalarPositionalAlignment(t *testing.T) {
	series := make([]float64, calendar.WindowDays)
	for i := range series {
		series[i] = 100 + float64(i)
	}

	var gotQuery ScalarQuery
	src := &stubSource{
		scalar: func(q ScalarQuery) ([]float64, error) {
			if q.Metric == MetricSteps {
				gotQuery = q
				return series, nil
			}
			return make([]float64, calendar.WindowDays), nil
		},
	}

	snapshot, err := newTestAggregator(t, src).Aggregate(context.Background())
	require.NoError(t, err)

	// Index 0 is 14 days ago, index 13 is yesterday; no off-by-one shift.
	require.NotNil(t, snapshot.Days[0].Steps)
	require.Equal(t, series[0], *snapshot.Days[0].Steps)
	require.NotNil(t, snapshot.Days[13].Steps)
	require.Equal(t, series[13], *snapshot.Days[13].Steps)

	wantStart := time.Date(2025, time.February, 24, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	require.True(t, gotQuery.Start.Equal(wantStart), "window start %s", gotQuery.Start)
	require.True(t, gotQuery.End.Equal(wantEnd), "window end %s", gotQuery.End)
	require.Equal(t, 24*time.Hour, gotQuery.Bucket)
	require.Equal(t, AggregationSum, gotQuery.Mode)
}

func TestPartialFailureIsolation(t *testing.T) {
	src := &stubSource{
		scalar: func(q ScalarQuery) ([]float64, error) {
			if q.Metric == MetricSteps {
				return nil, errors.New("store exploded")
			}
			series := make([]float64, calendar.WindowDays)
			for i := range series {
				series[i] = 7
			}
			return series, nil
		},
	}

	snapshot, err := newTestAggregator(t, src).Aggregate(context.Background())
	require.NoError(t, err, "one metric's failure must not abort the run")
	require.Len(t, snapshot.Days, calendar.WindowDays)

	for _, record := range snapshot.Days {
		require.Nil(t, record.Steps, "failed metric stays absent")
		require.NotNil(t, record.ActiveEnergy)
		require.Equal(t, 7.0, *record.ActiveEnergy)
		require.NotNil(t, record.ExerciseMinutes)
		require.Equal(t, SexFemale, record.BiologicalSex)
	}
}

func TestZeroIsDistinctFromAbsent(t *testing.T) {
	weightSeries := make([]float64, calendar.WindowDays)
	weightSeries[3] = 70.5

	src := &stubSource{
		scalar: func(q ScalarQuery) ([]float64, error) {
			if q.Metric == MetricBodyWeight {
				return weightSeries, nil
			}
			return make([]float64, calendar.WindowDays), nil
		},
	}

	snapshot, err := newTestAggregator(t, src).Aggregate(context.Background())
	require.NoError(t, err)

	for i, record := range snapshot.Days {
		// Sum metrics: a successful all-zero fetch is a present 0.0.
		require.NotNil(t, record.Steps)
		require.Zero(t, *record.Steps)

		// Average metrics: a zero bucket means no reading that day.
		if i == 3 {
			require.NotNil(t, record.BodyWeight)
			require.Equal(t, 70.5, *record.BodyWeight)
		} else {
			require.Nil(t, record.BodyWeight)
		}
	}
}

func TestShortSeriesLeavesTailAbsent(t *testing.T) {
	src := &stubSource{
		scalar: func(q ScalarQuery) ([]float64, error) {
			if q.Metric == MetricSteps {
				return []float64{1, 2, 3, 4, 5}, nil
			}
			return make([]float64, calendar.WindowDays), nil
		},
	}

	snapshot, err := newTestAggregator(t, src).Aggregate(context.Background())
	require.NoError(t, err)

	for i, record := range snapshot.Days {
		if i < 5 {
			require.NotNil(t, record.Steps)
			require.Equal(t, float64(i+1), *record.Steps)
		} else {
			require.Nil(t, record.Steps)
		}
	}
}

func TestBiologicalSexFailureLeavesUnknown(t *testing.T) {
	src := &stubSource{
		biologicalSex: func(ctx context.Context) (BiologicalSex, error) {
			return SexUnknown, errors.New("profile unreachable")
		},
	}

	snapshot, err := newTestAggregator(t, src).Aggregate(context.Background())
	require.NoError(t, err)
	for _, record := range snapshot.Days {
		require.Equal(t, SexUnknown, record.BiologicalSex)
	}
}

func TestBloodPressureGroupingByDay(t *testing.T) {
	dayD := calendar.DayOf(testNow, time.UTC) - 1
	dayC := dayD - 3

	src := &stubSource{
		correlations: func(q CorrelationQuery) ([]Correlation, error) {
			return []Correlation{
				{Timestamp: dayC.At(8, time.UTC), Components: map[MetricID]float64{ComponentSystolic: 118, ComponentDiastolic: 76}},
				{Timestamp: dayD.At(9, time.UTC), Components: map[MetricID]float64{ComponentSystolic: 120, ComponentDiastolic: 80}},
				{Timestamp: dayD.At(18, time.UTC), Components: map[MetricID]float64{ComponentSystolic: 125, ComponentDiastolic: 82}},
			}, nil
		},
	}

	snapshot, err := newTestAggregator(t, src).Aggregate(context.Background())
	require.NoError(t, err)

	last := snapshot.Days[len(snapshot.Days)-1]
	require.Equal(t, dayD, last.Day)
	require.Len(t, last.BloodPressureReadings, 2)
	require.Equal(t, BloodPressureReading{Systolic: 120, Diastolic: 80}, last.BloodPressureReadings[0])
	require.Equal(t, BloodPressureReading{Systolic: 125, Diastolic: 82}, last.BloodPressureReadings[1])

	other := snapshot.Days[len(snapshot.Days)-4]
	require.Equal(t, dayC, other.Day)
	require.Len(t, other.BloodPressureReadings, 1)
	require.Equal(t, 118.0, other.BloodPressureReadings[0].Systolic)

	for i, record := range snapshot.Days {
		if i != len(snapshot.Days)-1 && i != len(snapshot.Days)-4 {
			require.Empty(t, record.BloodPressureReadings)
		}
	}
}

func TestMalformedCorrelationFailsWholeFetch(t *testing.T) {
	dayD := calendar.DayOf(testNow, time.UTC) - 1

	src := &stubSource{
		correlations: func(q CorrelationQuery) ([]Correlation, error) {
			return []Correlation{
				{Timestamp: dayD.At(9, time.UTC), Components: map[MetricID]float64{ComponentSystolic: 120, ComponentDiastolic: 80}},
				{Timestamp: dayD.At(10, time.UTC), Components: map[MetricID]float64{ComponentSystolic: 130}},
			}, nil
		},
	}

	snapshot, err := newTestAggregator(t, src).Aggregate(context.Background())
	require.NoError(t, err)

	// The valid reading is discarded too: a broken provider contract fails
	// the whole blood-pressure query, not a single entry.
	for _, record := range snapshot.Days {
		require.Empty(t, record.BloodPressureReadings)
	}
}

func TestHeartRateSampleGroupingIsSecondary(t *testing.T) {
	dayD := calendar.DayOf(testNow, time.UTC) - 1
	hrSeries := make([]float64, calendar.WindowDays)
	for i := range hrSeries {
		hrSeries[i] = 60 + float64(i)
	}

	src := &stubSource{
		scalar: func(q ScalarQuery) ([]float64, error) {
			if q.Metric == MetricHeartRate {
				return hrSeries, nil
			}
			return make([]float64, calendar.WindowDays), nil
		},
		samples: func(q SampleQuery) ([]Sample, error) {
			if q.Metric != MetricHeartRate {
				return nil, nil
			}
			morning := dayD.At(7, time.UTC)
			evening := dayD.At(19, time.UTC)
			return []Sample{
				{Start: morning, End: morning, Value: 58},
				{Start: evening, End: evening, Value: 91},
			}, nil
		},
	}

	snapshot, err := newTestAggregator(t, src).Aggregate(context.Background())
	require.NoError(t, err)

	require.Equal(t, []float64{58, 91}, snapshot.HeartRateSamples[dayD])

	// The aggregate field comes from the positional query, untouched by
	// the raw-sample grouping.
	last := snapshot.Days[len(snapshot.Days)-1]
	require.NotNil(t, last.HeartRate)
	require.Equal(t, hrSeries[len(hrSeries)-1], *last.HeartRate)
}

func TestHeartRateSampleFailureKeepsAggregateField(t *testing.T) {
	hrSeries := make([]float64, calendar.WindowDays)
	for i := range hrSeries {
		hrSeries[i] = 72
	}

	src := &stubSource{
		scalar: func(q ScalarQuery) ([]float64, error) {
			if q.Metric == MetricHeartRate {
				return hrSeries, nil
			}
			return make([]float64, calendar.WindowDays), nil
		},
		samples: func(q SampleQuery) ([]Sample, error) {
			if q.Metric == MetricHeartRate {
				return nil, errors.New("sample query timed out")
			}
			return nil, nil
		},
	}

	snapshot, err := newTestAggregator(t, src).Aggregate(context.Background())
	require.NoError(t, err)
	require.Nil(t, snapshot.HeartRateSamples)
	for _, record := range snapshot.Days {
		require.NotNil(t, record.HeartRate)
		require.Equal(t, 72.0, *record.HeartRate)
	}
}

func TestRequestAccessDenied(t *testing.T) {
	src := &stubSource{
		requestAccess: func(ctx context.Context, scopes []MetricID) error {
			return errors.New("user denied access")
		},
	}

	err := newTestAggregator(t, src).RequestAccess(context.Background())
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
	require.Contains(t, authErr.Reason, "denied")
}

func TestRequestAccessPassesThroughAuthorizationError(t *testing.T) {
	want := &AuthorizationError{Reason: "store unavailable"}
	src := &stubSource{
		requestAccess: func(ctx context.Context, scopes []MetricID) error {
			return want
		},
	}

	err := newTestAggregator(t, src).RequestAccess(context.Background())
	require.Same(t, want, err)
}

func TestRequestAccessCoversAllTrackedMetrics(t *testing.T) {
	var got []MetricID
	src := &stubSource{
		requestAccess: func(ctx context.Context, scopes []MetricID) error {
			got = scopes
			return nil
		},
	}

	require.NoError(t, newTestAggregator(t, src).RequestAccess(context.Background()))
	require.ElementsMatch(t, ReadScopes(), got)
	require.Contains(t, got, MetricBiologicalSex)
	require.Contains(t, got, MetricBloodPressure)
}

func TestAggregateIsIdempotent(t *testing.T) {
	dayD := calendar.DayOf(testNow, time.UTC) - 1
	src := &stubSource{
		scalar: func(q ScalarQuery) ([]float64, error) {
			series := make([]float64, calendar.WindowDays)
			for i := range series {
				series[i] = float64(i) * 3
			}
			return series, nil
		},
		correlations: func(q CorrelationQuery) ([]Correlation, error) {
			return []Correlation{
				{Timestamp: dayD.At(9, time.UTC), Components: map[MetricID]float64{ComponentSystolic: 120, ComponentDiastolic: 80}},
			}, nil
		},
	}
	agg := newTestAggregator(t, src)

	first, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	second, err := agg.Aggregate(context.Background())
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first.Days)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second.Days)
	require.NoError(t, err)
	require.Equal(t, firstJSON, secondJSON)
}

// stubSource implements MetricSource with overridable behaviour per query
// shape. Unset hooks succeed with empty data.
type stubSource struct {
	requestAccess func(ctx context.Context, scopes []MetricID) error
	biologicalSex func(ctx context.Context) (BiologicalSex, error)
	scalar        func(q ScalarQuery) ([]float64, error)
	samples       func(q SampleQuery) ([]Sample, error)
	correlations  func(q CorrelationQuery) ([]Correlation, error)
}

func (s *stubSource) RequestAccess(ctx context.Context, scopes []MetricID) error {
	if s.requestAccess != nil {
		return s.requestAccess(ctx, scopes)
	}
	return nil
}

func (s *stubSource) BiologicalSex(ctx context.Context) (BiologicalSex, error) {
	if s.biologicalSex != nil {
		return s.biologicalSex(ctx)
	}
	return SexFemale, nil
}

func (s *stubSource) ScalarPerDay(ctx context.Context, q ScalarQuery) ([]float64, error) {
	if s.scalar != nil {
		return s.scalar(q)
	}
	return make([]float64, calendar.WindowDays), nil
}

func (s *stubSource) Samples(ctx context.Context, q SampleQuery) ([]Sample, error) {
	if s.samples != nil {
		return s.samples(q)
	}
	return nil, nil
}

func (s *stubSource) Correlations(ctx context.Context, q CorrelationQuery) ([]Correlation, error) {
	if s.correlations != nil {
		return s.correlations(q)
	}
	return nil, nil
}
