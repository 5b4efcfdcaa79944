package domain

import (
	"example.com/snapshot/internal/calendar"
)

// BiologicalSex is the static characteristic reported by the metric source.
// It is not a time series: one fetch sets the same value on all records.
type BiologicalSex string

const (
	SexFemale BiologicalSex = "female"
	SexMale   BiologicalSex = "male"
	SexOther  BiologicalSex = "other"
	// SexNotSet means the store reached the profile but the user never set it.
	SexNotSet BiologicalSex = "not_set"
	// SexUnknown is the placeholder when the characteristic fetch failed.
	SexUnknown BiologicalSex = "unknown"
)

// BloodPressureReading pairs one systolic and one diastolic measurement
// taken at the same instant.
type BloodPressureReading struct {
	Systolic  float64 `json:"systolic"`
	Diastolic float64 `json:"diastolic"`
}

// DailyRecord is the denormalized view of one calendar day. A nil pointer
// field means the backing fetch failed or the store had no reading for
// that day; a present zero is a real value.
type DailyRecord struct {
	Day                   calendar.Day           `json:"day"`
	BiologicalSex         BiologicalSex          `json:"biological_sex"`
	Steps                 *float64               `json:"steps,omitempty"`
	ActiveEnergy          *float64               `json:"active_energy_kcal,omitempty"`
	ExerciseMinutes       *float64               `json:"exercise_minutes,omitempty"`
	BodyWeight            *float64               `json:"body_weight_kg,omitempty"`
	SleepHours            *float64               `json:"sleep_hours,omitempty"`
	HeartRate             *float64               `json:"heart_rate_bpm,omitempty"`
	RestingHeartRate      *float64               `json:"resting_heart_rate_bpm,omitempty"`
	BloodPressureReadings []BloodPressureReading `json:"blood_pressure_readings"`
}

// Snapshot is the result of one aggregation run: exactly
// calendar.WindowDays records, oldest first.
type Snapshot struct {
	Days []DailyRecord `json:"days"`

	// HeartRateSamples is the day-keyed grouping of raw heart-rate
	// readings. It is a secondary view kept separate from the aggregated
	// HeartRate field and is not part of the serialized contract.
	HeartRateSamples map[calendar.Day][]float64 `json:"-"`
}
