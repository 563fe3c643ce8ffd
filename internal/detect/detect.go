// Package detect classifies an SRA run as single- or paired-end by
// sampling a handful of spots through fastq-dump.
package detect

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/glarue/fasterq-dump/internal/fastq"
	"github.com/glarue/fasterq-dump/internal/run"
)

// ReadType is the detected library layout.
type ReadType int

const (
	Unknown ReadType = iota
	Single
	Paired
)

func (t ReadType) String() string {
	switch t {
	case Single:
		return "single-end"
	case Paired:
		return "paired-end"
	default:
		return "unknown"
	}
}

// sampleSpots bounds the converter run to a tiny prefix; the suffix
// convention is assumed to hold for the rest of the file.
const sampleSpots = 6

// deflineFormat annotates each emitted read with its read index so the
// final identifier character distinguishes mate 1 from mate 2.
const deflineFormat = "@$ac.$si/$ri"

// Classify runs the converter on the first few spots of src and derives
// the layout from the set of distinct identifier suffixes: two suffixes
// means paired, one means single, anything else is Unknown. A converter
// failure is returned as an error, never defaulted.
func Classify(ctx context.Context, r run.Runner, src string) (ReadType, error) {
	var out bytes.Buffer
	cmd := run.Command{
		Name: "fastq-dump",
		Args: []string{
			"-X", strconv.Itoa(sampleSpots),
			"-Z",
			"--split-spot",
			"--defline-seq", deflineFormat,
			src,
		},
		Stdout: &out,
		Stderr: io.Discard,
	}

	if err := r.Run(ctx, cmd); err != nil {
		return Unknown, fmt.Errorf("read-type sampling of %s failed: %w", src, err)
	}

	records, err := fastq.Scan(&out)
	if err != nil {
		return Unknown, fmt.Errorf("parsing sampled records for %s: %w", src, err)
	}

	suffixes := make(map[byte]struct{})
	for _, rec := range records {
		if s := rec.Suffix(); s != 0 {
			suffixes[s] = struct{}{}
		}
	}

	switch len(suffixes) {
	case 1:
		return Single, nil
	case 2:
		return Paired, nil
	default:
		return Unknown, nil
	}
}
