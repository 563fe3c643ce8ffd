// Package fastq groups converter output into 4-line FASTQ records.
package fastq

import (
	"bufio"
	"io"
	"strings"
)

// Record is one 4-line block of FASTQ text: identifier, sequence,
// separator, quality. Fields hold the cleaned forms: the identifier is
// truncated at its first whitespace run and the separator is reduced to
// its first character.
type Record struct {
	ID        string
	Sequence  string
	Separator string
	Quality   string
}

// Suffix returns the classification character, the last byte of the
// trimmed identifier, or 0 when the identifier is empty.
func (r Record) Suffix() byte {
	if r.ID == "" {
		return 0
	}
	return r.ID[len(r.ID)-1]
}

// Lines returns the cleaned 4-line representation.
func (r Record) Lines() [4]string {
	return [4]string{r.ID, r.Sequence, r.Separator, r.Quality}
}

// Scan groups the input into records in a single forward pass. Lines
// are consumed in order, four per record; an incomplete trailing group
// is dropped. Fewer than four lines yields zero records, not an error.
func Scan(r io.Reader) ([]Record, error) {
	var records []Record
	group := make([]string, 0, 4)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		group = append(group, scanner.Text())
		if len(group) == 4 {
			records = append(records, newRecord(group))
			group = group[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func newRecord(lines []string) Record {
	id := lines[0]
	if i := strings.IndexAny(id, " \t"); i >= 0 {
		id = id[:i]
	}

	sep := lines[2]
	if len(sep) > 1 {
		sep = sep[:1]
	}

	return Record{
		ID:        id,
		Sequence:  lines[1],
		Separator: sep,
		Quality:   lines[3],
	}
}
