// File: internal/engine/console.go
// Brief: Serialized console reporting for run events.

package engine

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// SyncWriter serializes writes from concurrent command bodies behind one
// mutex so interleaved logs stay line-atomic.
type SyncWriter struct {
	mu  *sync.Mutex
	out io.Writer
}

func NewSyncWriter(mu *sync.Mutex, out io.Writer) *SyncWriter {
	return &SyncWriter{mu: mu, out: out}
}

func (w *SyncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Write(p)
}

// ConsoleOptions configure the console observer.
type ConsoleOptions struct {
	Color bool
	// NameWidth pads recipe names so durations line up. Zero derives it
	// from the widest name seen.
	NameWidth int
}

// Console renders run events as single lines, e.g. "✓ build (0.3s)".
// It shares the output mutex with command bodies so report lines never
// interleave with command output.
type Console struct {
	mu   *sync.Mutex
	out  io.Writer
	opts ConsoleOptions

	ok   *color.Color
	bad  *color.Color
	dim  *color.Color
}

func NewConsole(mu *sync.Mutex, out io.Writer, opts ConsoleOptions) *Console {
	c := &Console{
		mu:   mu,
		out:  out,
		opts: opts,
		ok:   color.New(color.FgGreen),
		bad:  color.New(color.FgRed, color.Bold),
		dim:  color.New(color.Faint),
	}
	if !opts.Color {
		c.ok.DisableColor()
		c.bad.DisableColor()
		c.dim.DisableColor()
	}
	return c
}

func (c *Console) ObserveEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Type {
	case EventSucceeded:
		fmt.Fprintf(c.out, "%s %s %s\n", c.ok.Sprint("✓"), c.pad(ev.Recipe), c.dim.Sprintf("(%s)", formatDuration(ev.Duration)))
	case EventFailed:
		fmt.Fprintf(c.out, "%s %s %s\n", c.bad.Sprint("✗"), c.pad(ev.Recipe), c.dim.Sprintf("(%s)", formatDuration(ev.Duration)))
		if ev.Err != nil {
			fmt.Fprintf(c.out, "  %s\n", c.bad.Sprint(ev.Err.Error()))
		}
	case EventUpToDate:
		fmt.Fprintf(c.out, "%s %s %s\n", c.ok.Sprint("✓"), c.pad(ev.Recipe), c.dim.Sprint("(up to date)"))
	case EventWouldRun:
		fmt.Fprintf(c.out, "%s %s\n", c.dim.Sprint("would run"), ev.Recipe)
	case EventLine:
		fmt.Fprintln(c.out, ev.Message)
	}
}

func (c *Console) pad(name string) string {
	if c.opts.NameWidth <= 0 {
		return name
	}
	return runewidth.FillRight(name, c.opts.NameWidth)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(100 * time.Millisecond).String()
}
