package app

import (
	"fmt"
	"io"
	"sync"

	"github.com/gookit/color"

	"github.com/specialistvlad/superbuild/internal/scheduler"
)

// statusPrinter writes one human readable line per scheduler event.
type statusPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *statusPrinter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func (p *statusPrinter) transition(t scheduler.Transition) {
	switch t.To {
	case scheduler.Building:
		p.printf("%s %s\n", color.Cyan.Sprint("->"), t.Subproject)
	case scheduler.Complete:
		p.printf("%s %s\n", greenMark(), t.Subproject)
	case scheduler.Failed:
		p.printf("%s %s: %v\n", color.Red.Sprint("FAILED"), t.Subproject, t.Err)
	case scheduler.Skipped:
		p.printf("%s %s\n", color.Yellow.Sprint("skipped"), t.Subproject)
	}
}

func greenMark() string {
	return color.Green.Sprint("ok")
}
