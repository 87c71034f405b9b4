package procrun

import (
	"bytes"
	"strings"
	"sync"
)

// tailBuffer keeps the last n complete lines written to it plus any
// unterminated remainder.
type tailBuffer struct {
	mu      sync.Mutex
	n       int
	lines   []string
	partial bytes.Buffer
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{n: n}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rest := p
	for {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			t.partial.Write(rest)
			break
		}
		t.partial.Write(rest[:i])
		t.push(t.partial.String())
		t.partial.Reset()
		rest = rest[i+1:]
	}
	return len(p), nil
}

func (t *tailBuffer) push(line string) {
	t.lines = append(t.lines, line)
	if over := len(t.lines) - t.n; over > 0 {
		t.lines = t.lines[over:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines := t.lines
	if t.partial.Len() > 0 {
		lines = append(append([]string(nil), lines...), t.partial.String())
		if over := len(lines) - t.n; over > 0 {
			lines = lines[over:]
		}
	}
	return strings.Join(lines, "\n")
}
