package engine

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestConsole(opts ConsoleOptions) (*Console, *bytes.Buffer) {
	var out bytes.Buffer
	var mu sync.Mutex
	return NewConsole(&mu, &out, opts), &out
}

func TestConsoleSucceededLine(t *testing.T) {
	c, out := newTestConsole(ConsoleOptions{})
	c.ObserveEvent(Event{Recipe: "build", Type: EventSucceeded, Duration: 300 * time.Millisecond})
	got := out.String()
	if !strings.Contains(got, "✓ build") || !strings.Contains(got, "(0.3s)") {
		t.Fatalf("output = %q", got)
	}
}

func TestConsoleFailedLineIncludesError(t *testing.T) {
	c, out := newTestConsole(ConsoleOptions{})
	c.ObserveEvent(Event{Recipe: "deploy", Type: EventFailed, Duration: time.Second, Err: errors.New("exit status 2")})
	got := out.String()
	if !strings.Contains(got, "✗ deploy") {
		t.Fatalf("output = %q", got)
	}
	if !strings.Contains(got, "exit status 2") {
		t.Fatalf("error detail missing: %q", got)
	}
}

func TestConsoleUpToDate(t *testing.T) {
	c, out := newTestConsole(ConsoleOptions{})
	c.ObserveEvent(Event{Recipe: "gen", Type: EventUpToDate})
	if !strings.Contains(out.String(), "(up to date)") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestConsoleWouldRun(t *testing.T) {
	c, out := newTestConsole(ConsoleOptions{})
	c.ObserveEvent(Event{Recipe: "clean", Type: EventWouldRun})
	if !strings.Contains(out.String(), "would run clean") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestConsoleStartedIsSilent(t *testing.T) {
	c, out := newTestConsole(ConsoleOptions{})
	c.ObserveEvent(Event{Recipe: "build", Type: EventStarted})
	if out.Len() != 0 {
		t.Fatalf("STARTED should print nothing, got %q", out.String())
	}
}

func TestConsoleNamePadding(t *testing.T) {
	c, out := newTestConsole(ConsoleOptions{NameWidth: 10})
	c.ObserveEvent(Event{Recipe: "ab", Type: EventSucceeded, Duration: 100 * time.Millisecond})
	if !strings.Contains(out.String(), "ab        ") {
		t.Fatalf("name not padded to width: %q", out.String())
	}
}

func TestSyncWriterSerializesLines(t *testing.T) {
	var out bytes.Buffer
	var mu sync.Mutex
	w := NewSyncWriter(&mu, &out)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := w.Write([]byte("0123456789\n")); err != nil {
					t.Errorf("Write: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		if line != "0123456789" {
			t.Fatalf("interleaved line %q", line)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(260 * time.Millisecond); got != "0.3s" {
		t.Errorf("formatDuration(260ms) = %q", got)
	}
	if got := formatDuration(1500 * time.Millisecond); got != "1.5s" {
		t.Errorf("formatDuration(1.5s) = %q", got)
	}
}
