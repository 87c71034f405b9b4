package observability

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/cheynewallace/tabby"
	"github.com/dustin/go-humanize"
)

// Format selects a report renderer.
type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// ParseFormat validates a renderer name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatCSV, FormatMarkdown, FormatJSON:
		return f, nil
	case "":
		return FormatTable, nil
	case "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown report format %q (want table, csv, md or json)", s)
}

// Render writes r to w in the given format.
func Render(w io.Writer, r *Report, f Format) error {
	switch f {
	case FormatTable, "":
		return renderTable(w, r)
	case FormatCSV:
		return renderCSV(w, r)
	case FormatMarkdown:
		return renderMarkdown(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return fmt.Errorf("unknown report format %q", f)
}

// comp-summary columns, shared by the CSV and Markdown renderers.
var summaryHeader = []string{
	"component", "real_sum", "user_sum", "sys_sum", "cpu_sum",
	"avg_threads", "max_rss_kb", "max_rss_mb", "max_rss_gb",
	"avg_concurrency", "peak_concurrency",
}

// binHeader heads the time-binned concurrency section of the CSV report,
// which follows the component rows after a blank line.
var binHeader = []string{"bin_start_s", "bin_width_s", "avg_concurrency", "peak_concurrency"}

func rssUnits(rss int64) (kb, mb, gb float64) {
	kb = float64(rss) / 1024
	return kb, kb / 1024, kb / (1024 * 1024)
}

func renderTable(w io.Writer, r *Report) error {
	fmt.Fprintf(w, "samples: %d  span: %.1fs  avg concurrency: %.2f  peak concurrency: %d\n\n",
		r.Samples, r.Span, r.AvgConcurrency, r.PeakConcurrency)

	t := tabby.NewCustom(tabwriter.NewWriter(w, 0, 0, 2, ' ', 0))
	t.AddHeader("COMPONENT", "SAMPLES", "WALL", "EST ELAPSED", "CPU", "AVG THREADS", "AVG CONC", "PEAK", "MAX RSS")
	for _, c := range r.Components {
		t.AddLine(c.Component, c.Samples,
			secs(c.WallTimeSum), secs(c.WallTimeEstElapsed), secs(c.CPUTimeSum),
			fmt.Sprintf("%.2f", c.AvgThreads), fmt.Sprintf("%.2f", c.AvgConcurrency),
			c.PeakConcurrency, humanize.IBytes(uint64(max(c.MaxRSS, 0))))
	}
	t.Print()

	if len(r.Phases) > 0 {
		fmt.Fprintln(w)
		t = tabby.NewCustom(tabwriter.NewWriter(w, 0, 0, 2, ' ', 0))
		t.AddHeader("SUBPROJECT", "CONFIGURE", "BUILD", "INSTALL", "TOTAL")
		for _, p := range r.Phases {
			t.AddLine(p.Subproject, secs(p.Configure), secs(p.Build), secs(p.Install), secs(p.Total()))
		}
		t.Print()
	}

	if len(r.Bins) > 0 {
		fmt.Fprintln(w)
		t = tabby.NewCustom(tabwriter.NewWriter(w, 0, 0, 2, ' ', 0))
		t.AddHeader("OFFSET", "WIDTH", "AVG CONC", "PEAK")
		for _, b := range r.Bins {
			t.AddLine(secs(b.Offset), secs(b.Width), fmt.Sprintf("%.2f", b.AvgConcurrency), b.PeakConcurrency)
		}
		t.Print()
	}
	return nil
}

func secs(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "s"
}

func renderCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for _, c := range r.Components {
		kb, mb, gb := rssUnits(c.MaxRSS)
		row := []string{
			c.Component, f(c.WallTimeSum), f(c.UserTimeSum), f(c.SysTimeSum), f(c.CPUTimeSum),
			f(c.AvgThreads), f(kb), f(mb), f(gb),
			f(c.AvgConcurrency), strconv.Itoa(c.PeakConcurrency),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	if len(r.Bins) == 0 {
		cw.Flush()
		return cw.Error()
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	if err := cw.Write(binHeader); err != nil {
		return err
	}
	for _, b := range r.Bins {
		row := []string{f(b.Offset), f(b.Width), f(b.AvgConcurrency), strconv.Itoa(b.PeakConcurrency)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderMarkdown(w io.Writer, r *Report) error {
	fmt.Fprintln(w, "| Component | Real (s) | User (s) | Sys (s) | CPU (s) | Avg threads | Max RSS (KB) | Max RSS (MB) | Max RSS (GB) | Avg concurrency | Peak concurrency |")
	fmt.Fprintln(w, "|---|---:|---:|---:|---:|---:|---:|---:|---:|---:|---:|")
	for _, c := range r.Components {
		kb, mb, gb := rssUnits(c.MaxRSS)
		fmt.Fprintf(w, "| %s | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.4f | %.2f | %d |\n",
			c.Component, c.WallTimeSum, c.UserTimeSum, c.SysTimeSum, c.CPUTimeSum,
			c.AvgThreads, kb, mb, gb, c.AvgConcurrency, c.PeakConcurrency)
	}
	fmt.Fprintf(w, "\nAverage concurrency: %.2f, peak concurrency: %d over %.1fs.\n",
		r.AvgConcurrency, r.PeakConcurrency, r.Span)

	if len(r.Bins) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| Bin start (s) | Width (s) | Avg concurrency | Peak concurrency |")
		fmt.Fprintln(w, "|---:|---:|---:|---:|")
		for _, b := range r.Bins {
			fmt.Fprintf(w, "| %.1f | %.1f | %.2f | %d |\n", b.Offset, b.Width, b.AvgConcurrency, b.PeakConcurrency)
		}
	}
	return nil
}
