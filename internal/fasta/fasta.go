// Package fasta parses and checks FASTA uploads before they are sent for
// analysis. Parsing is deliberately lenient; Validate is where uploads get
// rejected.
package fasta

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// MaxUploadBytes is the largest accepted upload (10 MiB).
const MaxUploadBytes = 10 << 20

// AcceptedExtensions lists the file extensions the analysis backend accepts.
var AcceptedExtensions = []string{".fasta", ".fa", ".fna"}

// ErrInvalidUpload wraps every validation failure.
var ErrInvalidUpload = errors.New("invalid FASTA upload")

// Record is a single FASTA entry.
type Record struct {
	Header   string
	Sequence string
}

// Parse reads FASTA records from r. Lines beginning with '>' start a new
// record; other non-blank lines are appended to the current sequence.
// Sequence text before the first header is dropped.
func Parse(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxUploadBytes)

	var records []Record
	var current *Record
	var seq strings.Builder
	flush := func() {
		if current != nil {
			current.Sequence = seq.String()
			records = append(records, *current)
		}
		seq.Reset()
	}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			flush()
			current = &Record{Header: strings.TrimSpace(line[1:])}
			continue
		}
		if current != nil {
			seq.WriteString(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read FASTA: %w", err)
	}
	flush()
	return records, nil
}

// Validate checks filename and content of an upload and returns its records.
func Validate(filename string, content []byte) ([]Record, error) {
	if !HasAcceptedExtension(filename) {
		return nil, fmt.Errorf("%w: only %s files are accepted", ErrInvalidUpload, strings.Join(AcceptedExtensions, ", "))
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidUpload)
	}
	if len(content) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: file size exceeds the maximum allowed size (%d MB)", ErrInvalidUpload, MaxUploadBytes>>20)
	}

	records, err := Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no FASTA header line found", ErrInvalidUpload)
	}
	for i, rec := range records {
		if rec.Sequence == "" {
			return nil, fmt.Errorf("%w: record %d (%s) has no sequence", ErrInvalidUpload, i+1, rec.Header)
		}
		if pos, ch, ok := firstInvalidBase(rec.Sequence); ok {
			return nil, fmt.Errorf("%w: record %d (%s) has invalid nucleotide %q at position %d", ErrInvalidUpload, i+1, rec.Header, ch, pos+1)
		}
	}
	return records, nil
}

func HasAcceptedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, accepted := range AcceptedExtensions {
		if ext == accepted {
			return true
		}
	}
	return false
}

// IUPAC nucleotide codes plus gap characters.
const nucleotides = "ACGTURYSWKMBDHVN-."

func firstInvalidBase(seq string) (int, rune, bool) {
	for i, ch := range seq {
		if !strings.ContainsRune(nucleotides, toUpper(ch)) {
			return i, ch, true
		}
	}
	return 0, 0, false
}

func toUpper(ch rune) rune {
	if ch >= 'a' && ch <= 'z' {
		return ch - ('a' - 'A')
	}
	return ch
}
