package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/superbuild/internal/trace"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(sec float64) time.Time {
	return t0.Add(time.Duration(sec * float64(time.Second)))
}

func sample(comp string, from, to float64) trace.Sample {
	return trace.Sample{Component: comp, Start: at(from), End: at(to)}
}

func TestAnalyze_Concurrency(t *testing.T) {
	tests := []struct {
		name     string
		samples  []trace.Sample
		binWidth time.Duration
		avg      float64
		peak     int
		bins     []Bin
	}{
		{
			name: "three overlapping samples in one bin",
			samples: []trace.Sample{
				sample("a", 0, 10), sample("b", 0, 10), sample("c", 0, 10),
			},
			binWidth: 10 * time.Second,
			avg:      3,
			peak:     3,
			bins:     []Bin{{Offset: 0, Width: 10, AvgConcurrency: 3, PeakConcurrency: 3}},
		},
		{
			name:     "touching intervals do not overlap",
			samples:  []trace.Sample{sample("a", 0, 5), sample("b", 5, 10)},
			binWidth: 10 * time.Second,
			avg:      1,
			peak:     1,
			bins:     []Bin{{Offset: 0, Width: 10, AvgConcurrency: 1, PeakConcurrency: 1}},
		},
		{
			name:     "last bin is clipped",
			samples:  []trace.Sample{sample("a", 0, 25), sample("b", 20, 25)},
			binWidth: 10 * time.Second,
			avg:      30.0 / 25.0,
			peak:     2,
			bins: []Bin{
				{Offset: 0, Width: 10, AvgConcurrency: 1, PeakConcurrency: 1},
				{Offset: 10, Width: 10, AvgConcurrency: 1, PeakConcurrency: 1},
				{Offset: 20, Width: 5, AvgConcurrency: 2, PeakConcurrency: 2},
			},
		},
		{
			name:     "zero length sample adds no concurrency",
			samples:  []trace.Sample{sample("a", 0, 10), sample("b", 4, 4)},
			binWidth: 5 * time.Second,
			avg:      1,
			peak:     1,
			bins: []Bin{
				{Offset: 0, Width: 5, AvgConcurrency: 1, PeakConcurrency: 1},
				{Offset: 5, Width: 5, AvgConcurrency: 1, PeakConcurrency: 1},
			},
		},
		{
			name:     "idle gap",
			samples:  []trace.Sample{sample("a", 0, 2), sample("b", 8, 10)},
			binWidth: 5 * time.Second,
			avg:      0.4,
			peak:     1,
			bins: []Bin{
				{Offset: 0, Width: 5, AvgConcurrency: 0.4, PeakConcurrency: 1},
				{Offset: 5, Width: 5, AvgConcurrency: 0.4, PeakConcurrency: 1},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rep, err := Analyze(tc.samples, tc.binWidth)
			require.NoError(t, err)
			assert.InDelta(t, tc.avg, rep.AvgConcurrency, 1e-9)
			assert.Equal(t, tc.peak, rep.PeakConcurrency)
			require.Len(t, rep.Bins, len(tc.bins))
			for i, want := range tc.bins {
				got := rep.Bins[i]
				assert.InDelta(t, want.Offset, got.Offset, 1e-9, "bin %d offset", i)
				assert.InDelta(t, want.Width, got.Width, 1e-9, "bin %d width", i)
				assert.InDelta(t, want.AvgConcurrency, got.AvgConcurrency, 1e-9, "bin %d avg", i)
				assert.Equal(t, want.PeakConcurrency, got.PeakConcurrency, "bin %d peak", i)
			}
		})
	}
}

func TestAnalyze_Empty(t *testing.T) {
	rep, err := Analyze(nil, time.Second)
	require.NoError(t, err)
	assert.Zero(t, rep.Samples)
	assert.Empty(t, rep.Bins)
	assert.Empty(t, rep.Components)
}

func TestAnalyze_BadBinWidth(t *testing.T) {
	_, err := Analyze([]trace.Sample{sample("a", 0, 1)}, 0)
	require.Error(t, err)
}

func TestAnalyze_Components(t *testing.T) {
	x1 := sample("x", 0, 4)
	x1.CPUTime = 8 * time.Second
	x1.UserTime = 6 * time.Second
	x1.SysTime = 2 * time.Second
	x1.MaxRSS = 1 << 20
	x1.Threads = 4
	x2 := sample("x", 2, 6)
	x2.CPUTime = 4 * time.Second
	x2.MaxRSS = 3 << 20
	x2.Threads = 2
	y := sample("y", 0, 6)
	y.CPUTime = 20 * time.Second

	rep, err := Analyze([]trace.Sample{x1, x2, y}, 10*time.Second)
	require.NoError(t, err)
	require.Len(t, rep.Components, 2)

	// Ordered by cpu time.
	assert.Equal(t, "y", rep.Components[0].Component)
	x := rep.Components[1]
	assert.Equal(t, "x", x.Component)
	assert.Equal(t, 2, x.Samples)
	assert.InDelta(t, 8, x.WallTimeSum, 1e-9)
	assert.InDelta(t, 6, x.WallTimeSpan, 1e-9)
	assert.InDelta(t, 6, x.CriticalPathEst, 1e-9)
	assert.InDelta(t, 8.0/6.0, x.AvgConcurrency, 1e-9)
	assert.Equal(t, 2, x.PeakConcurrency)
	assert.InDelta(t, 1.5, x.AvgThreads, 1e-9)
	assert.InDelta(t, 12, x.CPUTimeSum, 1e-9)
	assert.InDelta(t, 6, x.UserTimeSum, 1e-9)
	assert.InDelta(t, 2, x.SysTimeSum, 1e-9)
	assert.Equal(t, int64(3<<20), x.MaxRSS)
	assert.Equal(t, 4, x.MaxThreads)

	// Global average is 14s of wall time over a 6s span.
	assert.InDelta(t, 14.0/6.0, rep.AvgConcurrency, 1e-9)
	assert.InDelta(t, 8/(14.0/6.0), x.WallTimeEstElapsed, 1e-9)
}

func TestAnalyze_Phases(t *testing.T) {
	mk := func(sub, phase string, from, to float64) trace.Sample {
		s := sample(sub, from, to)
		s.Subproject = sub
		s.Phase = phase
		return s
	}
	samples := []trace.Sample{
		mk("small", trace.PhaseConfigure, 0, 1),
		mk("small", trace.PhaseBuild, 1, 3),
		mk("big", trace.PhaseConfigure, 0, 2),
		mk("big", trace.PhaseBuild, 2, 12),
		mk("big", trace.PhaseInstall, 12, 13),
		sample("untagged", 0, 1),
	}
	rep, err := Analyze(samples, time.Minute)
	require.NoError(t, err)
	require.Len(t, rep.Phases, 2)
	assert.Equal(t, "big", rep.Phases[0].Subproject)
	assert.InDelta(t, 2, rep.Phases[0].Configure, 1e-9)
	assert.InDelta(t, 10, rep.Phases[0].Build, 1e-9)
	assert.InDelta(t, 1, rep.Phases[0].Install, 1e-9)
	assert.InDelta(t, 13, rep.Phases[0].Total(), 1e-9)
	assert.Equal(t, "small", rep.Phases[1].Subproject)
	assert.InDelta(t, 3, rep.Phases[1].Total(), 1e-9)
}
