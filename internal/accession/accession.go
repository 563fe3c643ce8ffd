// Package accession expands user-supplied run tokens into a flat list
// of SRA run accessions.
package accession

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// runAccession matches SRA/ENA/DDBJ run identifiers.
var runAccession = regexp.MustCompile(`^[SED]RR\d+$`)

// IsRunAccession reports whether acc looks like a run identifier.
// Expansion does not enforce this; callers use it to warn early about
// tokens the downstream utilities will reject.
func IsRunAccession(acc string) bool {
	return runAccession.MatchString(acc)
}

// Expand flattens raw tokens into an ordered list of accessions.
// Commas are interchangeable with spaces as separators, and any token
// of the form FIRST-LAST is treated as an inclusive range sharing a
// prefix (e.g. SRR1-SRR3). Duplicates and relative order are preserved.
func Expand(tokens []string) ([]string, error) {
	var out []string

	for _, raw := range tokens {
		for _, tok := range strings.Fields(strings.ReplaceAll(raw, ",", " ")) {
			if !strings.Contains(tok, "-") {
				out = append(out, tok)
				continue
			}
			members, err := expandRange(tok)
			if err != nil {
				return nil, err
			}
			out = append(out, members...)
		}
	}

	return out, nil
}

// expandRange expands FIRST-LAST, preserving the zero-padded width of
// the first accession's numeric suffix across every member.
func expandRange(tok string) ([]string, error) {
	parts := strings.Split(tok, "-")
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed accession range %q", tok)
	}

	firstPrefix, firstNum, err := splitAccession(parts[0])
	if err != nil {
		return nil, fmt.Errorf("bad range start in %q: %w", tok, err)
	}
	lastPrefix, lastNum, err := splitAccession(parts[1])
	if err != nil {
		return nil, fmt.Errorf("bad range end in %q: %w", tok, err)
	}

	if firstPrefix != lastPrefix {
		return nil, fmt.Errorf("range %q endpoints have different prefixes (%q vs %q)",
			tok, firstPrefix, lastPrefix)
	}

	start, err := strconv.ParseInt(firstNum, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("range start %q is not numeric: %w", parts[0], err)
	}
	end, err := strconv.ParseInt(lastNum, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("range end %q is not numeric: %w", parts[1], err)
	}
	if end < start {
		return nil, fmt.Errorf("range %q runs backwards", tok)
	}

	width := len(firstNum)
	members := make([]string, 0, end-start+1)
	for n := start; n <= end; n++ {
		members = append(members, fmt.Sprintf("%s%0*d", firstPrefix, width, n))
	}
	return members, nil
}

// splitAccession separates a run accession into its alphabetic prefix
// and trailing digit string.
func splitAccession(acc string) (prefix, digits string, err error) {
	i := len(acc)
	for i > 0 && acc[i-1] >= '0' && acc[i-1] <= '9' {
		i--
	}
	if i == len(acc) {
		return "", "", fmt.Errorf("accession %q has no numeric suffix", acc)
	}
	return acc[:i], acc[i:], nil
}
