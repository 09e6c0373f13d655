// Package capture turns raw pane captures into cleaned text, change signals,
// and cursor geometry. It is the only source of truth for live terminal state.
package capture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/x/ansi"
)

// Digest is a fixed-width fingerprint of cleaned capture output, rendered as
// 16 hex digits. Comparing digests detects change without retaining bytes.
type Digest string

// DigestOf fingerprints already-cleaned text.
func DigestOf(cleaned string) Digest {
	return Digest(fmt.Sprintf("%016x", xxhash.Sum64String(cleaned)))
}

// Clean strips escape sequences and trailing per-line whitespace from a raw
// capture so digests are stable across cursor movement and style churn.
func Clean(raw string) string {
	stripped := ansi.Strip(raw)
	lines := strings.Split(stripped, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.Join(lines, "\n")
}

// Change is the result of evaluating a raw capture against the previous
// cleaned digest.
type Change struct {
	Cleaned        string
	Digest         Digest
	RawDigest      Digest
	ChangedCleaned bool
	ChangedRaw     bool
}

// EvaluateChange cleans and digests raw output. ChangedCleaned is false iff
// the cleaned digest equals prevCleaned; ChangedRaw compares the raw digest
// against prevRaw. With no prior digest everything counts as changed.
func EvaluateChange(prevCleaned, prevRaw *Digest, raw string) Change {
	cleaned := Clean(raw)
	digest := DigestOf(cleaned)
	rawDigest := DigestOf(raw)
	return Change{
		Cleaned:        cleaned,
		Digest:         digest,
		RawDigest:      rawDigest,
		ChangedCleaned: prevCleaned == nil || *prevCleaned != digest,
		ChangedRaw:     prevRaw == nil || *prevRaw != rawDigest,
	}
}

// TailLines returns the last n lines of cleaned output. Status markers are
// only scanned over this bounded tail.
func TailLines(cleaned string, n int) []string {
	lines := strings.Split(cleaned, "\n")
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

// CursorMetadata is the parsed cursor tuple for an interactive session.
type CursorMetadata struct {
	PaneWidth     int
	PaneHeight    int
	CursorX       int
	CursorY       int
	CursorVisible bool
}

// ParseCursorMetadata parses the adapter's fixed "pane_w pane_h cur_x cur_y
// visible" tuple.
func ParseCursorMetadata(value string) (CursorMetadata, error) {
	fields := strings.Fields(strings.TrimSpace(value))
	if len(fields) != 5 {
		return CursorMetadata{}, fmt.Errorf("cursor metadata needs 5 fields, got %d in %q", len(fields), value)
	}
	numbers := make([]int, 4)
	for i := range 4 {
		parsed, err := strconv.Atoi(fields[i])
		if err != nil {
			return CursorMetadata{}, fmt.Errorf("cursor metadata field %d: %w", i, err)
		}
		numbers[i] = parsed
	}
	visible, err := strconv.Atoi(fields[4])
	if err != nil {
		return CursorMetadata{}, fmt.Errorf("cursor metadata visibility: %w", err)
	}
	return CursorMetadata{
		PaneWidth:     numbers[0],
		PaneHeight:    numbers[1],
		CursorX:       numbers[2],
		CursorY:       numbers[3],
		CursorVisible: visible != 0,
	}, nil
}
