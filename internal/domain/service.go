// Package domain implements the health-data aggregation pipeline: the
// 14-day daily record model, the metric registry, and the aggregator that
// fans out per-metric fetches against a MetricSource and folds the results
// onto the canonical day index.
package domain

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"example.com/snapshot/internal/calendar"
)

// scalarFields maps each scalar-per-day metric to its record field, in
// fetch order. Result index 0 lands on the oldest record.
var scalarFields = []struct {
	id     MetricID
	assign func(*DailyRecord, *float64)
}{
	{MetricSteps, func(r *DailyRecord, v *float64) { r.Steps = v }},
	{MetricActiveEnergy, func(r *DailyRecord, v *float64) { r.ActiveEnergy = v }},
	{MetricExerciseMinutes, func(r *DailyRecord, v *float64) { r.ExerciseMinutes = v }},
	{MetricBodyWeight, func(r *DailyRecord, v *float64) { r.BodyWeight = v }},
	{MetricHeartRate, func(r *DailyRecord, v *float64) { r.HeartRate = v }},
	{MetricRestingHeartRate, func(r *DailyRecord, v *float64) { r.RestingHeartRate = v }},
}

// Aggregator builds the rolling 14-day snapshot from a MetricSource. It
// holds no state between runs; every Aggregate call starts from a fresh
// day index.
type Aggregator struct {
	source MetricSource
	loc    *time.Location
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures optional behaviour for the Aggregator.
type Option func(*Aggregator)

// WithClock overrides the reference clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator constructs an Aggregator anchored to the given local calendar.
func NewAggregator(source MetricSource, loc *time.Location, logger zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		source: source,
		loc:    loc,
		logger: logger.With().Str("component", "aggregator").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RequestAccess asks the store for read access to every tracked metric.
// Denied or unavailable access is a hard stop: no fetch may be attempted
// until a later request succeeds.
func (a *Aggregator) RequestAccess(ctx context.Context) error {
	if err := a.source.RequestAccess(ctx, ReadScopes()); err != nil {
		var authErr *AuthorizationError
		if errors.As(err, &authErr) {
			return err
		}
		return &AuthorizationError{Reason: err.Error()}
	}
	return nil
}

// Aggregate runs one snapshot: build the day index, fan out every metric
// fetch concurrently, join on completion, and fold the results into
// exactly calendar.WindowDays records, oldest first. A single metric's
// failure leaves its fields absent and never aborts the run.
func (a *Aggregator) Aggregate(ctx context.Context) (*Snapshot, error) {
	started := time.Now()
	defer func() { observeAggregation(time.Since(started)) }()

	days := calendar.Window(a.now(), a.loc, calendar.WindowDays)

	records := make([]DailyRecord, len(days))
	index := make(map[calendar.Day]int, len(days))
	for i, day := range days {
		records[i] = DailyRecord{
			Day:                   day,
			BiologicalSex:         SexUnknown,
			BloodPressureReadings: []BloodPressureReading{},
		}
		index[day] = i
	}

	start := days[0].Start(a.loc)
	end := (days[len(days)-1] + 1).Start(a.loc)

	// Fan-out: every fetch writes only its own result slot, so the join
	// needs no locking beyond the WaitGroup barrier.
	var (
		wg sync.WaitGroup

		sex    BiologicalSex
		sexErr error

		scalars    = make([][]float64, len(scalarFields))
		scalarErrs = make([]error, len(scalarFields))

		hrByDay map[calendar.Day][]float64
		hrErr   error

		sleep []float64

		bpByDay map[calendar.Day][]BloodPressureReading
		bpErr   error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		sex, sexErr = a.source.BiologicalSex(ctx)
	}()

	for i := range scalarFields {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scalars[i], scalarErrs[i] = a.fetchScalar(ctx, scalarFields[i].id, start, end)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		hrByDay, hrErr = a.fetchHeartRateSamples(ctx, start, end)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sleep = a.sleepHours(ctx, days)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		bpByDay, bpErr = a.fetchBloodPressure(ctx, start, end)
	}()

	wg.Wait()

	if sexErr != nil {
		a.fetchFailed(string(MetricBiologicalSex), sexErr)
	} else {
		for i := range records {
			records[i].BiologicalSex = sex
		}
	}

	for i, field := range scalarFields {
		if scalarErrs[i] != nil {
			a.fetchFailed(string(field.id), scalarErrs[i])
			continue
		}
		spec, err := LookupMetric(field.id)
		if err != nil {
			a.fetchFailed(string(field.id), err)
			continue
		}
		for j, v := range scalars[i] {
			if j >= len(records) {
				break
			}
			// The store reports 0 for buckets with no samples. For averaged
			// metrics a zero bucket means "no reading", not a real value.
			if spec.Mode == AggregationAverage && v == 0 {
				continue
			}
			value := v
			field.assign(&records[j], &value)
		}
	}

	if hrErr != nil {
		// The raw-sample path is independent of the aggregated heart-rate
		// field; its failure only drops the secondary grouping.
		a.fetchFailed("heart_rate_samples", hrErr)
		hrByDay = nil
	}

	for i := range records {
		hours := 0.0
		if i < len(sleep) {
			hours = sleep[i]
		}
		value := hours
		records[i].SleepHours = &value
	}

	if bpErr != nil {
		a.fetchFailed(string(MetricBloodPressure), bpErr)
	} else {
		for day, readings := range bpByDay {
			if i, ok := index[day]; ok {
				records[i].BloodPressureReadings = readings
			}
		}
	}

	return &Snapshot{Days: records, HeartRateSamples: hrByDay}, nil
}

// fetchScalar issues the generic scalar-per-day query for one registered
// metric over the window, bucketed by local day.
func (a *Aggregator) fetchScalar(ctx context.Context, id MetricID, start, end time.Time) ([]float64, error) {
	spec, err := LookupMetric(id)
	if err != nil {
		return nil, err
	}
	values, err := a.source.ScalarPerDay(ctx, ScalarQuery{
		Metric: spec.ID,
		Unit:   spec.Unit,
		Mode:   spec.Mode,
		Start:  start,
		End:    end,
		Bucket: 24 * time.Hour,
	})
	if err != nil {
		return nil, &QueryError{Metric: id, Err: err}
	}
	return values, nil
}

// fetchHeartRateSamples groups raw heart-rate readings by the day key of
// each sample's timestamp. No further averaging happens here.
func (a *Aggregator) fetchHeartRateSamples(ctx context.Context, start, end time.Time) (map[calendar.Day][]float64, error) {
	samples, err := a.source.Samples(ctx, SampleQuery{
		Metric: MetricHeartRate,
		Start:  start,
		End:    end,
	})
	if err != nil {
		return nil, &QueryError{Metric: MetricHeartRate, Err: err}
	}
	grouped := make(map[calendar.Day][]float64)
	for _, s := range samples {
		day := calendar.DayOf(s.Start, a.loc)
		grouped[day] = append(grouped[day], s.Value)
	}
	return grouped, nil
}

func (a *Aggregator) fetchFailed(metric string, err error) {
	a.logger.Warn().Str("metric", metric).Err(err).Msg("metric fetch failed, leaving fields absent")
	recordFetchFailure(metric)
}
