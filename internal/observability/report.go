package observability

import (
	"errors"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/specialistvlad/superbuild/internal/trace"
)

// Bin is one time slice of the trace.
type Bin struct {
	// Offset is seconds since the trace start.
	Offset          float64 `json:"t_offset"`
	Width           float64 `json:"width"`
	AvgConcurrency  float64 `json:"avg_concurrency"`
	PeakConcurrency int     `json:"peak_concurrency"`
}

// ComponentSummary aggregates the samples of one component label. Times
// are in seconds.
type ComponentSummary struct {
	Component          string  `json:"component"`
	Samples            int     `json:"samples"`
	WallTimeSum        float64 `json:"wall_time_sum"`
	WallTimeSpan       float64 `json:"wall_time_span"`
	WallTimeEstElapsed float64 `json:"wall_time_est_elapsed"`
	CriticalPathEst    float64 `json:"critical_path_est"`
	CPUTimeSum         float64 `json:"cpu_time_sum"`
	UserTimeSum        float64 `json:"user_time_sum"`
	SysTimeSum         float64 `json:"sys_time_sum"`
	AvgThreads         float64 `json:"avg_threads"`
	AvgConcurrency     float64 `json:"avg_concurrency"`
	PeakConcurrency    int     `json:"peak_concurrency"`
	MaxRSS             int64   `json:"max_rss"`
	MaxThreads         int     `json:"max_threads"`
}

// PhaseBreakdown is the wall time a subproject spent per phase, in seconds.
type PhaseBreakdown struct {
	Subproject string  `json:"subproject"`
	Configure  float64 `json:"configure"`
	Build      float64 `json:"build"`
	Install    float64 `json:"install"`
	Other      float64 `json:"other"`
}

// Total is the sum of all phases.
func (p PhaseBreakdown) Total() float64 {
	return p.Configure + p.Build + p.Install + p.Other
}

// Report is the result of Analyze.
type Report struct {
	Start           time.Time          `json:"start"`
	End             time.Time          `json:"end"`
	Span            float64            `json:"span"`
	Samples         int                `json:"samples"`
	WallTimeSum     float64            `json:"wall_time_sum"`
	AvgConcurrency  float64            `json:"avg_concurrency"`
	PeakConcurrency int                `json:"peak_concurrency"`
	BinWidth        float64            `json:"bin_width"`
	Bins            []Bin              `json:"bins"`
	Components      []ComponentSummary `json:"components"`
	Phases          []PhaseBreakdown   `json:"phases,omitempty"`
}

// Analyze computes the report for a set of samples. An empty trace yields
// an empty report.
func Analyze(samples []trace.Sample, binWidth time.Duration) (*Report, error) {
	if binWidth <= 0 {
		return nil, errors.New("bin width must be positive")
	}
	rep := &Report{BinWidth: binWidth.Seconds(), Samples: len(samples)}
	if len(samples) == 0 {
		return rep, nil
	}

	rep.Start, rep.End = bounds(samples)
	rep.Span = rep.End.Sub(rep.Start).Seconds()
	for _, s := range samples {
		rep.WallTimeSum += s.Wall().Seconds()
	}
	if rep.Span > 0 {
		rep.AvgConcurrency = rep.WallTimeSum / rep.Span
	}

	segs := sweep(samples)
	for _, seg := range segs {
		rep.PeakConcurrency = max(rep.PeakConcurrency, seg.level)
	}
	rep.Bins = binify(segs, rep.Start, rep.End, binWidth)

	globalAvg := rep.AvgConcurrency
	if globalAvg <= 0 {
		globalAvg = 1
	}
	rep.Components = summarize(samples, globalAvg)
	rep.Phases = phaseBreakdown(samples)
	return rep, nil
}

func bounds(samples []trace.Sample) (time.Time, time.Time) {
	start, end := samples[0].Start, samples[0].End
	for _, s := range samples {
		if s.Start.Before(start) {
			start = s.Start
		}
		if s.End.After(end) {
			end = s.End
		}
	}
	if end.Before(start) {
		end = start
	}
	return start, end
}

// segment is a maximal interval of constant concurrency.
type segment struct {
	from, to time.Time
	level    int
}

type event struct {
	at    time.Time
	delta int
}

// sweep returns the constant-level segments covered by the samples, in
// time order. Ends sort before starts at equal timestamps.
func sweep(samples []trace.Sample) []segment {
	events := make([]event, 0, 2*len(samples))
	for _, s := range samples {
		if !s.End.After(s.Start) {
			continue
		}
		events = append(events, event{s.Start, +1}, event{s.End, -1})
	}
	slices.SortFunc(events, func(a, b event) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		return a.delta - b.delta
	})

	var segs []segment
	level := 0
	for i, ev := range events {
		level += ev.delta
		if i+1 < len(events) && events[i+1].at.After(ev.at) && level > 0 {
			segs = append(segs, segment{from: ev.at, to: events[i+1].at, level: level})
		}
	}
	return segs
}

func binify(segs []segment, start, end time.Time, width time.Duration) []Bin {
	span := end.Sub(start)
	if span <= 0 {
		return nil
	}
	n := int(math.Ceil(float64(span) / float64(width)))
	bins := make([]Bin, n)
	integral := make([]float64, n)
	for i := range bins {
		from := time.Duration(i) * width
		w := min(width, span-from)
		bins[i] = Bin{Offset: from.Seconds(), Width: w.Seconds()}
	}

	for _, seg := range segs {
		first := int(seg.from.Sub(start) / width)
		for i := first; i < n; i++ {
			binFrom := start.Add(time.Duration(i) * width)
			binTo := binFrom.Add(width)
			if !binFrom.Before(seg.to) {
				break
			}
			lo := maxTime(binFrom, seg.from)
			hi := minTime(binTo, seg.to)
			if !hi.After(lo) {
				continue
			}
			integral[i] += hi.Sub(lo).Seconds() * float64(seg.level)
			bins[i].PeakConcurrency = max(bins[i].PeakConcurrency, seg.level)
		}
	}
	for i := range bins {
		if bins[i].Width > 0 {
			bins[i].AvgConcurrency = integral[i] / bins[i].Width
		}
	}
	return bins
}

func summarize(samples []trace.Sample, globalAvg float64) []ComponentSummary {
	groups := make(map[string][]trace.Sample)
	for _, s := range samples {
		groups[s.Component] = append(groups[s.Component], s)
	}

	out := make([]ComponentSummary, 0, len(groups))
	for comp, group := range groups {
		cs := ComponentSummary{Component: comp, Samples: len(group)}
		start, end := bounds(group)
		cs.WallTimeSpan = end.Sub(start).Seconds()
		for _, s := range group {
			cs.WallTimeSum += s.Wall().Seconds()
			cs.CPUTimeSum += s.CPUTime.Seconds()
			cs.UserTimeSum += s.UserTime.Seconds()
			cs.SysTimeSum += s.SysTime.Seconds()
			cs.MaxRSS = max(cs.MaxRSS, s.MaxRSS)
			cs.MaxThreads = max(cs.MaxThreads, s.Threads)
		}
		if cs.WallTimeSpan > 0 {
			cs.AvgConcurrency = cs.WallTimeSum / cs.WallTimeSpan
		}
		if cs.WallTimeSum > 0 {
			cs.AvgThreads = cs.CPUTimeSum / cs.WallTimeSum
		}
		cs.WallTimeEstElapsed = cs.WallTimeSum / globalAvg
		cs.CriticalPathEst = cs.WallTimeSpan
		for _, seg := range sweep(group) {
			cs.PeakConcurrency = max(cs.PeakConcurrency, seg.level)
		}
		out = append(out, cs)
	}

	// Heaviest CPU consumers first.
	slices.SortFunc(out, func(a, b ComponentSummary) int {
		if a.CPUTimeSum != b.CPUTimeSum {
			if a.CPUTimeSum > b.CPUTimeSum {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Component, b.Component)
	})
	return out
}

func phaseBreakdown(samples []trace.Sample) []PhaseBreakdown {
	bySub := make(map[string]*PhaseBreakdown)
	var order []string
	for _, s := range samples {
		if s.Subproject == "" {
			continue
		}
		pb, ok := bySub[s.Subproject]
		if !ok {
			pb = &PhaseBreakdown{Subproject: s.Subproject}
			bySub[s.Subproject] = pb
			order = append(order, s.Subproject)
		}
		wall := s.Wall().Seconds()
		switch s.Phase {
		case trace.PhaseConfigure:
			pb.Configure += wall
		case trace.PhaseBuild:
			pb.Build += wall
		case trace.PhaseInstall:
			pb.Install += wall
		default:
			pb.Other += wall
		}
	}

	out := make([]PhaseBreakdown, 0, len(order))
	for _, name := range order {
		out = append(out, *bySub[name])
	}
	slices.SortStableFunc(out, func(a, b PhaseBreakdown) int {
		switch ta, tb := a.Total(), b.Total(); {
		case ta > tb:
			return -1
		case ta < tb:
			return 1
		}
		return 0
	})
	return out
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
