package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ProgressReporter reports progress for long-running operations, such as
// embedding a large action stream.
type ProgressReporter interface {
	Start(total int)
	Update(current int)
	Finish()
}

// SimpleProgress is a line-based progress reporter. It writes one line
// per update, which keeps output readable when piped to a file.
type SimpleProgress struct {
	mu      sync.Mutex
	total   int
	current int
	writer  io.Writer
	label   string
}

// NewProgressReporter creates a progress reporter with the given label
// writing to w. If w is nil, it defaults to os.Stderr.
func NewProgressReporter(label string, w io.Writer) *SimpleProgress {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{writer: w, label: label}
}

// Start initializes the reporter with the total number of items.
func (p *SimpleProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.current = 0
}

// Update sets the current progress and emits a line when a 10% boundary
// is crossed.
func (p *SimpleProgress) Update(current int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total <= 0 {
		return
	}
	prev := p.current * 10 / p.total
	p.current = current
	next := p.current * 10 / p.total
	if next > prev {
		fmt.Fprintf(p.writer, "%s: %d/%d (%d%%)\n", p.label, p.current, p.total, p.current*100/p.total)
	}
}

// Finish emits the completion line.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.writer, "%s: done (%d items)\n", p.label, p.total)
}
