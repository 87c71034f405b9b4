package observability

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRegression(t *testing.T) {
	tests := []struct {
		name     string
		avg      float64
		peak     float64
		baseline Baseline
		metrics  []string
	}{
		{
			name:     "average dropped past threshold",
			avg:      75,
			baseline: Baseline{AvgConcurrency: 100},
			metrics:  []string{MetricAvgConcurrency},
		},
		{
			name:     "average within threshold",
			avg:      85,
			baseline: Baseline{AvgConcurrency: 100},
		},
		{
			name:     "exactly at threshold passes",
			avg:      80,
			baseline: Baseline{AvgConcurrency: 100},
		},
		{
			name:     "peak dropped",
			avg:      100,
			peak:     10,
			baseline: Baseline{AvgConcurrency: 100, PeakConcurrency: 32},
			metrics:  []string{MetricPeakConcurrency},
		},
		{
			name:     "both dropped",
			avg:      1,
			peak:     1,
			baseline: Baseline{AvgConcurrency: 10, PeakConcurrency: 10},
			metrics:  []string{MetricAvgConcurrency, MetricPeakConcurrency},
		},
		{
			name:     "non-positive baseline is not gated",
			avg:      0,
			peak:     0,
			baseline: Baseline{AvgConcurrency: 0, PeakConcurrency: -1},
		},
		{
			name:     "improvement passes",
			avg:      200,
			peak:     64,
			baseline: Baseline{AvgConcurrency: 100, PeakConcurrency: 32},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckRegression(tc.avg, tc.peak, tc.baseline, 0.20)
			if len(tc.metrics) == 0 {
				assert.NoError(t, err)
				return
			}
			var reg *RegressionDetected
			require.True(t, errors.As(err, &reg))
			var got []string
			for _, d := range reg.Drops {
				got = append(got, d.Metric)
				assert.Contains(t, err.Error(), d.Metric)
			}
			assert.Equal(t, tc.metrics, got)
		})
	}
}

func TestCheckRegression_Fraction(t *testing.T) {
	err := CheckRegression(75, 0, Baseline{AvgConcurrency: 100}, 0.2)
	var reg *RegressionDetected
	require.ErrorAs(t, err, &reg)
	require.Len(t, reg.Drops, 1)
	assert.InDelta(t, 0.25, reg.Drops[0].Fraction, 1e-9)
	assert.InDelta(t, 0.2, reg.Threshold, 1e-9)
}

func TestLoadBaseline(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "baseline.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"avg_concurrency_build: 42.5\npeak_concurrency_build: 96\nthreshold_drop: 0.1\n"), 0o644))
		b, err := LoadBaseline(path)
		require.NoError(t, err)
		assert.Equal(t, Baseline{AvgConcurrency: 42.5, PeakConcurrency: 96, ThresholdDrop: 0.1}, *b)
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "baseline.json")
		require.NoError(t, os.WriteFile(path, []byte(
			`{"avg_concurrency_build": 12, "peak_concurrency_build": 16}`), 0o644))
		b, err := LoadBaseline(path)
		require.NoError(t, err)
		assert.Equal(t, Baseline{AvgConcurrency: 12, PeakConcurrency: 16}, *b)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadBaseline(filepath.Join(dir, "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("avg_concurrency_build: [oops"), 0o644))
		_, err := LoadBaseline(path)
		require.ErrorContains(t, err, "bad.yaml")
	})
}

func TestWriteBaseline(t *testing.T) {
	want := Baseline{AvgConcurrency: 7.25, PeakConcurrency: 12, ThresholdDrop: 0.3}
	for _, name := range []string{"b.yaml", "b.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, WriteBaseline(path, want))
			got, err := LoadBaseline(path)
			require.NoError(t, err)
			assert.Equal(t, want, *got)
		})
	}
}

func TestThreshold(t *testing.T) {
	half, zero := 0.5, 0.0
	assert.InDelta(t, 0.5, Threshold(&half, &Baseline{ThresholdDrop: 0.1}), 1e-9)
	assert.InDelta(t, 0, Threshold(&zero, &Baseline{ThresholdDrop: 0.1}), 1e-9)
	assert.InDelta(t, 0.1, Threshold(nil, &Baseline{ThresholdDrop: 0.1}), 1e-9)
	assert.InDelta(t, DefaultThresholdDrop, Threshold(nil, nil), 1e-9)
}
