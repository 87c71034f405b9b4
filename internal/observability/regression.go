package observability

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Metric names used in regression reports.
const (
	MetricAvgConcurrency  = "avg_concurrency_build"
	MetricPeakConcurrency = "peak_concurrency_build"
)

// DefaultThresholdDrop is used when neither the caller nor the baseline
// file provide a threshold.
const DefaultThresholdDrop = 0.20

// Baseline holds the reference concurrency of a known-good build.
type Baseline struct {
	AvgConcurrency  float64 `yaml:"avg_concurrency_build" json:"avg_concurrency_build"`
	PeakConcurrency float64 `yaml:"peak_concurrency_build" json:"peak_concurrency_build"`
	ThresholdDrop   float64 `yaml:"threshold_drop,omitempty" json:"threshold_drop,omitempty"`
}

// LoadBaseline reads a baseline file. Files ending in .json are decoded as
// JSON, everything else as YAML.
func LoadBaseline(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}
	var b Baseline
	if isJSON(path) {
		err = json.Unmarshal(data, &b)
	} else {
		err = yaml.Unmarshal(data, &b)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse baseline %s: %w", path, err)
	}
	return &b, nil
}

// WriteBaseline stores b at path, in the format implied by the extension.
func WriteBaseline(path string, b Baseline) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(b, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(b)
	}
	if err != nil {
		return fmt.Errorf("failed to encode baseline: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	return nil
}

// BaselineFromReport captures the current report as a new baseline.
func BaselineFromReport(r *Report, threshold float64) Baseline {
	return Baseline{
		AvgConcurrency:  r.AvgConcurrency,
		PeakConcurrency: float64(r.PeakConcurrency),
		ThresholdDrop:   threshold,
	}
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Drop describes one metric that fell below its baseline.
type Drop struct {
	Metric   string
	Baseline float64
	Current  float64
	// Fraction is (baseline - current) / baseline.
	Fraction float64
}

// RegressionDetected is returned when a metric dropped by more than the
// allowed fraction.
type RegressionDetected struct {
	Threshold float64
	Drops     []Drop
}

func (e *RegressionDetected) Error() string {
	parts := make([]string, len(e.Drops))
	for i, d := range e.Drops {
		parts[i] = fmt.Sprintf("%s dropped %.1f%% (baseline %.2f, current %.2f)",
			d.Metric, d.Fraction*100, d.Baseline, d.Current)
	}
	return fmt.Sprintf("concurrency regression (threshold %.1f%%): %s",
		e.Threshold*100, strings.Join(parts, "; "))
}

// CheckRegression compares the current values with the baseline. Metrics
// whose baseline is not positive are not gated.
func CheckRegression(currentAvg, currentPeak float64, baseline Baseline, thresholdDrop float64) error {
	var drops []Drop
	check := func(metric string, base, cur float64) {
		if base <= 0 {
			return
		}
		frac := (base - cur) / base
		if frac > thresholdDrop {
			drops = append(drops, Drop{Metric: metric, Baseline: base, Current: cur, Fraction: frac})
		}
	}
	check(MetricAvgConcurrency, baseline.AvgConcurrency, currentAvg)
	check(MetricPeakConcurrency, baseline.PeakConcurrency, currentPeak)

	if len(drops) == 0 {
		return nil
	}
	return &RegressionDetected{Threshold: thresholdDrop, Drops: drops}
}

// Threshold picks the effective threshold: an explicit value wins (zero
// included, failing on any drop), then the baseline's own, then
// DefaultThresholdDrop.
func Threshold(explicit *float64, b *Baseline) float64 {
	switch {
	case explicit != nil:
		return *explicit
	case b != nil && b.ThresholdDrop > 0:
		return b.ThresholdDrop
	}
	return DefaultThresholdDrop
}
