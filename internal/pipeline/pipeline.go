// Package pipeline drives the per-accession batch loop: skip checks,
// acquisition, read-type detection, converter dispatch, cleanup, and
// outcome logging.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glarue/fasterq-dump/internal/acquire"
	"github.com/glarue/fasterq-dump/internal/detect"
	"github.com/glarue/fasterq-dump/internal/run"
)

const converter = "fastq-dump"

// trinityDefline annotates paired reads the way Trinity expects.
const trinityDefline = "@$sn[_$rn]/$ri"

// ErrAborted reports that the user declined the large-batch prompt.
var ErrAborted = errors.New("batch aborted by user")

// Options is the immutable per-batch configuration, passed through
// every component call.
type Options struct {
	KeepRawFiles bool
	TrinityIDs   bool
	AcquireOnly  bool
	Overwrite    bool
	Manual       bool
	Strict       bool
	AssumeYes    bool
	Quiet        bool
	LogFile      string // empty disables outcome logging
	PassThrough  []string
	Acquire      acquire.Options
	ConfirmAbove int
	SettlePause  time.Duration
}

// Batch processes a resolved list of accessions sequentially.
type Batch struct {
	opts    Options
	runner  run.Runner
	fetcher *acquire.Fetcher
	confirm io.Reader
	stdout  io.Writer
	stderr  io.Writer
	sleep   func(time.Duration)
}

// New builds a Batch around the given runner.
func New(opts Options, r run.Runner) *Batch {
	if opts.ConfirmAbove <= 0 {
		opts.ConfirmAbove = 25
	}
	opts.Acquire.Overwrite = opts.Overwrite
	opts.Acquire.Quiet = opts.Quiet

	return &Batch{
		opts:    opts,
		runner:  r,
		fetcher: acquire.New(opts.Acquire, r),
		confirm: os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		sleep:   time.Sleep,
	}
}

// Run processes every accession in order. Per-accession failures are
// reported and logged but never abort the batch; the only batch-fatal
// condition is a declined confirmation prompt.
func (b *Batch) Run(ctx context.Context, accessions []string) error {
	if len(accessions) > b.opts.ConfirmAbove && !b.opts.AssumeYes {
		ok, err := b.confirmLargeBatch(len(accessions))
		if err != nil {
			return err
		}
		if !ok {
			return ErrAborted
		}
	}

	for i, acc := range accessions {
		b.printf("[%d/%d] %s", i+1, len(accessions), acc)
		b.process(ctx, acc)
	}

	return nil
}

// process runs one accession through acquisition, detection, dispatch,
// and cleanup.
func (b *Batch) process(ctx context.Context, acc string) {
	if !b.opts.Overwrite && !b.opts.AcquireOnly && hasOutput(acc) {
		b.printf("output for %s already exists, skipping (use --overwrite to redo)", acc)
		return
	}

	src := acc
	acquired := false

	// Converter arguments that restrict the spot range mean only a
	// slice of the run is wanted; fastq-dump can pull that remotely, so
	// a full download would be wasted work.
	if !restrictsSpots(b.opts.PassThrough) {
		path, err := b.fetcher.Fetch(ctx, acc)
		if err != nil {
			b.warnf("could not acquire %s: %v", acc, err)
			b.logOutcome(acc, false)
			return
		}
		src = path
		acquired = true

		if b.opts.AcquireOnly {
			b.printf("acquired %s", src)
			b.logOutcome(acc, true)
			return
		}
	}

	readType := detect.Single
	if !b.opts.Manual {
		t, err := detect.Classify(ctx, b.runner, src)
		if err != nil {
			b.warnf("read-type detection failed for %s: %v", acc, err)
			b.logOutcome(acc, false)
			return
		}
		if t == detect.Unknown {
			b.warnf("ambiguous read type for %s, converting as single-end", acc)
		} else {
			readType = t
			b.printf("%s detected as %s", acc, t)
		}
	}

	err := b.runner.Run(ctx, run.Command{
		Name: converter,
		Args: b.dispatchArgs(readType, src),
	})
	ok := true
	if err != nil {
		// Partial FASTQ output after a non-zero exit can still be
		// usable, so only --strict turns this into a failure.
		if b.opts.Strict {
			b.warnf("conversion of %s failed: %v", acc, err)
			ok = false
		} else {
			b.warnf("%s exited non-zero for %s (output may be partial): %v", converter, acc, err)
		}
	}

	// Let the converter finish flushing before touching its input.
	b.sleep(b.opts.SettlePause)

	if acquired && !b.opts.KeepRawFiles {
		if _, statErr := os.Stat(src); statErr == nil {
			if rmErr := os.Remove(src); rmErr != nil {
				b.warnf("could not remove %s: %v", src, rmErr)
			}
		}
	}

	b.logOutcome(acc, ok)
}

// dispatchArgs assembles the converter command line for one accession.
func (b *Batch) dispatchArgs(t detect.ReadType, src string) []string {
	var args []string
	if b.opts.TrinityIDs {
		args = append(args, "--defline-seq", trinityDefline)
	}
	// In manual mode the caller supplies their own split flags through
	// the pass-through arguments.
	if t == detect.Paired && !b.opts.Manual {
		args = append(args, "--split-3")
	}
	args = append(args, src)
	return append(args, b.opts.PassThrough...)
}

// restrictsSpots reports whether the pass-through arguments limit the
// converted spot range.
func restrictsSpots(args []string) bool {
	for _, a := range args {
		switch {
		case a == "-X", a == "--maxSpotId", a == "--minSpotId":
			return true
		case strings.HasPrefix(a, "--maxSpotId="), strings.HasPrefix(a, "--minSpotId="):
			return true
		}
	}
	return false
}

// hasOutput reports whether converted FASTQ files for the accession
// already exist in the working directory.
func hasOutput(acc string) bool {
	for _, pattern := range []string{acc + "*.fastq", acc + "*.fastq.gz"} {
		if matches, _ := filepath.Glob(pattern); len(matches) > 0 {
			return true
		}
	}
	return false
}

// confirmLargeBatch prompts before a large run so a mistyped range
// cannot trigger hundreds of downloads.
func (b *Batch) confirmLargeBatch(n int) (bool, error) {
	fmt.Fprintf(b.stdout, "About to process %d accessions. Continue? [y/N] ", n)

	line, err := bufio.NewReader(b.confirm).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// logOutcome appends one accession's coarse result to the log file.
func (b *Batch) logOutcome(acc string, ok bool) {
	if b.opts.LogFile == "" {
		return
	}

	f, err := os.OpenFile(b.opts.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		b.warnf("could not open log file %s: %v", b.opts.LogFile, err)
		return
	}
	defer f.Close()

	status := "success"
	if !ok {
		status = "fail"
	}
	fmt.Fprintf(f, "%s\t%s\n", acc, status)
}

func (b *Batch) printf(format string, args ...interface{}) {
	if !b.opts.Quiet {
		fmt.Fprintf(b.stdout, format+"\n", args...)
	}
}

func (b *Batch) warnf(format string, args ...interface{}) {
	fmt.Fprintf(b.stderr, "warning: "+format+"\n", args...)
}
