// Package ui provides small terminal affordances for long subprocess
// waits.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a status line on stderr while work is in flight.
// On non-terminals it degrades to a single plain line.
type Spinner struct {
	message string
	out     io.Writer
	mu      sync.Mutex
	active  bool
	done    chan struct{}
}

func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		out:     os.Stderr,
		done:    make(chan struct{}),
	}
}

func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true

	if !stderrIsTerminal() || os.Getenv("NO_COLOR") != "" {
		fmt.Fprintf(s.out, "%s...\n", s.message)
		return
	}

	go func() {
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i = (i + 1) % len(frames) {
			select {
			case <-s.done:
				fmt.Fprint(s.out, "\r\033[K")
				return
			case <-ticker.C:
				fmt.Fprintf(s.out, "\r%s %s", frames[i], s.message)
			}
		}
	}()
}

// Stop halts the animation, optionally replacing it with a final line.
func (s *Spinner) Stop(final string) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.mu.Unlock()

	close(s.done)
	if final != "" {
		fmt.Fprintf(s.out, "\r\033[K%s\n", final)
	}
}

func stderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
