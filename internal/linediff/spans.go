package linediff

import (
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// Op is the kind of an edit region
type Op byte

const (
	OpEqual   Op = 'e'
	OpReplace Op = 'r'
	OpDelete  Op = 'd'
	OpInsert  Op = 'i'
)

func (o Op) String() string {
	switch o {
	case OpEqual:
		return "equal"
	case OpReplace:
		return "replace"
	case OpDelete:
		return "delete"
	case OpInsert:
		return "insert"
	}
	return "unknown"
}

// Span is one opcode of the line diff with character (rune) ranges into both texts.
// Ranges are half-open.
type Span struct {
	Op             Op
	ReferenceStart int
	ReferenceEnd   int
	CandidateStart int
	CandidateEnd   int
	ReferenceText  string
	CandidateText  string
}

// SplitLines splits s into lines, each keeping its terminator (\n, \r\n or \r).
// Concatenating the result yields s.
func SplitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			lines = append(lines, s[start:i+1])
			start = i + 1
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// offsets returns rune offsets where offsets[k] is the start of line k and
// offsets[len(lines)] is the total length.
func offsets(lines []string) []int {
	out := make([]int, len(lines)+1)
	for i, l := range lines {
		out[i+1] = out[i] + utf8.RuneCountInString(l)
	}
	return out
}

// Spans computes the line-level opcodes turning reference into candidate.
// Every line of both texts is covered by exactly one span, in order.
func Spans(reference, candidate string) []Span {
	a := SplitLines(reference)
	b := SplitLines(candidate)
	offA := offsets(a)
	offB := offsets(b)

	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	codes := difflib.NewMatcher(a, b).GetOpCodes()
	spans := make([]Span, 0, len(codes))
	for _, c := range codes {
		spans = append(spans, Span{
			Op:             Op(c.Tag),
			ReferenceStart: offA[c.I1],
			ReferenceEnd:   offA[c.I2],
			CandidateStart: offB[c.J1],
			CandidateEnd:   offB[c.J2],
			ReferenceText:  strings.Join(a[c.I1:c.I2], ""),
			CandidateText:  strings.Join(b[c.J1:c.J2], ""),
		})
	}
	return spans
}
