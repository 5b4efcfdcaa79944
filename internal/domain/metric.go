package domain

import (
	"context"
	"fmt"
	"time"
)

// MetricID identifies a health signal understood by the metric source.
type MetricID string

const (
	MetricSteps            MetricID = "steps"
	MetricActiveEnergy     MetricID = "active_energy"
	MetricExerciseMinutes  MetricID = "exercise_minutes"
	MetricBodyWeight       MetricID = "body_weight"
	MetricHeartRate        MetricID = "heart_rate"
	MetricRestingHeartRate MetricID = "resting_heart_rate"
	MetricSleepAsleep      MetricID = "sleep_asleep"
	MetricBloodPressure    MetricID = "blood_pressure"
	MetricBiologicalSex    MetricID = "biological_sex"

	ComponentSystolic  MetricID = "blood_pressure_systolic"
	ComponentDiastolic MetricID = "blood_pressure_diastolic"
)

// Aggregation selects how the store reduces a day's samples to one value.
type Aggregation string

const (
	AggregationSum     Aggregation = "sum"
	AggregationAverage Aggregation = "avg"
)

// MetricSpec describes one supported scalar-per-day metric.
type MetricSpec struct {
	ID   MetricID
	Unit string
	Mode Aggregation
}

// scalarRegistry is the static set of supported scalar-per-day metrics.
// Unsupported identifiers surface as ErrUnsupportedMetric instead of a
// runtime assertion.
var scalarRegistry = map[MetricID]MetricSpec{
	MetricSteps:            {ID: MetricSteps, Unit: "count", Mode: AggregationSum},
	MetricActiveEnergy:     {ID: MetricActiveEnergy, Unit: "kcal", Mode: AggregationSum},
	MetricExerciseMinutes:  {ID: MetricExerciseMinutes, Unit: "min", Mode: AggregationSum},
	MetricBodyWeight:       {ID: MetricBodyWeight, Unit: "kg", Mode: AggregationAverage},
	MetricHeartRate:        {ID: MetricHeartRate, Unit: "bpm", Mode: AggregationAverage},
	MetricRestingHeartRate: {ID: MetricRestingHeartRate, Unit: "bpm", Mode: AggregationAverage},
}

// LookupMetric returns the spec for a scalar-per-day metric.
func LookupMetric(id MetricID) (MetricSpec, error) {
	spec, ok := scalarRegistry[id]
	if !ok {
		return MetricSpec{}, fmt.Errorf("%w: %s", ErrUnsupportedMetric, id)
	}
	return spec, nil
}

// ReadScopes lists every metric the aggregator requests read access to.
func ReadScopes() []MetricID {
	return []MetricID{
		MetricSteps,
		MetricActiveEnergy,
		MetricExerciseMinutes,
		MetricBodyWeight,
		MetricHeartRate,
		MetricRestingHeartRate,
		MetricSleepAsleep,
		MetricBloodPressure,
		MetricBiologicalSex,
	}
}

// ScalarQuery asks the store for one aggregate value per day bucket over
// [Start, End), buckets anchored to local midnight.
type ScalarQuery struct {
	Metric MetricID
	Unit   string
	Mode   Aggregation
	Start  time.Time
	End    time.Time
	Bucket time.Duration
}

// Sample is a single raw reading. Instantaneous samples carry End == Start.
type Sample struct {
	Start time.Time
	End   time.Time
	Value float64
}

// SampleQuery asks for raw samples whose interval intersects [Start, End).
type SampleQuery struct {
	Metric MetricID
	Start  time.Time
	End    time.Time
}

// Correlation is one timestamped bundle of component measurements.
type Correlation struct {
	Timestamp  time.Time
	Components map[MetricID]float64
}

// CorrelationQuery asks for correlated sample bundles over [Start, End).
type CorrelationQuery struct {
	Correlation MetricID
	Components  []MetricID
	Start       time.Time
	End         time.Time
}

// MetricSource is the boundary to the external health-data store. The
// aggregator only ever reads through it; implementations must treat every
// call as independent.
type MetricSource interface {
	RequestAccess(ctx context.Context, scopes []MetricID) error
	BiologicalSex(ctx context.Context) (BiologicalSex, error)
	ScalarPerDay(ctx context.Context, q ScalarQuery) ([]float64, error)
	Samples(ctx context.Context, q SampleQuery) ([]Sample, error)
	Correlations(ctx context.Context, q CorrelationQuery) ([]Correlation, error)
}
