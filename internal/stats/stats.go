// Package stats computes aggregate statistics over reading collections.
// All functions are pure: results depend only on the input readings and the
// explicitly supplied "now" instant.
package stats

import (
	"math"
	"time"

	"bptracker/internal/model"
)

// DefaultWindows are the rolling-average windows, in days.
var DefaultWindows = []int{7, 14, 30, 90}

// FieldSummary holds average/max/min for one measurement field.
// Nil values mean no data was available for that field (not zero).
type FieldSummary struct {
	Average *float64 `json:"average"`
	Max     *int     `json:"max"`
	Min     *int     `json:"min"`
}

// Summary aggregates all three measurement fields.
type Summary struct {
	Systolic  FieldSummary `json:"systolic"`
	Diastolic FieldSummary `json:"diastolic"`
	Pulse     FieldSummary `json:"pulse"`
}

// WindowAverage is the mean systolic/diastolic over one rolling window.
// Nil values mean the window contained no readings.
type WindowAverage struct {
	Days      int      `json:"days"`
	Systolic  *float64 `json:"systolic"`
	Diastolic *float64 `json:"diastolic"`
}

// Compute returns average/max/min per field, dropping records missing that
// field. Fields with no remaining values report nil throughout.
func Compute(readings []model.Reading) Summary {
	systolic := make([]int, 0, len(readings))
	diastolic := make([]int, 0, len(readings))
	pulse := make([]int, 0, len(readings))
	for _, r := range readings {
		systolic = append(systolic, r.Systolic)
		diastolic = append(diastolic, r.Diastolic)
		if r.Pulse != nil {
			pulse = append(pulse, *r.Pulse)
		}
	}
	return Summary{
		Systolic:  summarize(systolic),
		Diastolic: summarize(diastolic),
		Pulse:     summarize(pulse),
	}
}

// RollingAverages computes mean systolic/diastolic (rounded to one decimal)
// over the readings recorded within each of the given day windows before now.
// Empty windows report nil averages. A nil windows slice uses DefaultWindows.
func RollingAverages(readings []model.Reading, now time.Time, windows []int) []WindowAverage {
	if windows == nil {
		windows = DefaultWindows
	}

	out := make([]WindowAverage, 0, len(windows))
	for _, days := range windows {
		since := now.AddDate(0, 0, -days)
		var sSum, dSum, n int
		for _, r := range readings {
			if r.Timestamp.Before(since) {
				continue
			}
			sSum += r.Systolic
			dSum += r.Diastolic
			n++
		}
		w := WindowAverage{Days: days}
		if n > 0 {
			w.Systolic = float64Ptr(round1(float64(sSum) / float64(n)))
			w.Diastolic = float64Ptr(round1(float64(dSum) / float64(n)))
		}
		out = append(out, w)
	}
	return out
}

func summarize(values []int) FieldSummary {
	if len(values) == 0 {
		return FieldSummary{}
	}
	sum, max, min := 0, values[0], values[0]
	for _, v := range values {
		sum += v
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	avg := float64(sum) / float64(len(values))
	return FieldSummary{Average: &avg, Max: &max, Min: &min}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func float64Ptr(v float64) *float64 { return &v }
