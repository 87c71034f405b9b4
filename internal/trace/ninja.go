package trace

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var cmakeTargetDir = regexp.MustCompile(`CMakeFiles/([^/\s]+)\.dir/`)

// GuessComponent derives a component label from a compiler command line or
// output path by looking for the CMake object directory
// `CMakeFiles/<target>.dir/`. It returns "" when nothing matches.
func GuessComponent(args ...string) string {
	for _, arg := range args {
		if m := cmakeTargetDir.FindStringSubmatch(arg); m != nil {
			return m[1]
		}
	}
	return ""
}

// ImportNinjaLog converts a `.ninja_log` (format v5 or later) into samples.
// Entry offsets are relative to base. When an output was built more than
// once only its last entry is kept. Component labels are guessed from the
// output path and fall back to defaultComponent.
func ImportNinjaLog(r io.Reader, base time.Time, defaultComponent string) ([]Sample, error) {
	scanner := bufio.NewScanner(r)
	var samples []Sample
	index := make(map[string]int)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			if !strings.HasPrefix(line, "# ninja log v") {
				return nil, fmt.Errorf("not a ninja log: missing header")
			}
			version, err := strconv.Atoi(strings.TrimPrefix(line, "# ninja log v"))
			if err != nil || version < 5 {
				return nil, fmt.Errorf("unsupported ninja log header %q", line)
			}
			continue
		}
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			return nil, fmt.Errorf("ninja log line %d: expected at least 4 fields, got %d", lineNo, len(fields))
		}
		startMS, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ninja log line %d: bad start: %w", lineNo, err)
		}
		endMS, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ninja log line %d: bad end: %w", lineNo, err)
		}
		output := fields[3]

		component := GuessComponent(output)
		if component == "" {
			component = defaultComponent
		}
		s := Sample{
			Component: component,
			Phase:     PhaseCompile,
			Command:   output,
			Start:     base.Add(time.Duration(startMS) * time.Millisecond),
			End:       base.Add(time.Duration(endMS) * time.Millisecond),
		}
		if i, ok := index[output]; ok {
			samples[i] = s
			continue
		}
		index[output] = len(samples)
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ninja log: %w", err)
	}
	return samples, nil
}
