package contract

import (
	"regexp"
	"strings"
)

// WholeDocumentID is assigned when no clause heading is recognized
const WholeDocumentID = "whole_document"

// headingPattern recognizes clause headings at the start of a line:
//   - "Art. 1", "Art 1", "Article 12", "Articolo 3"
//   - "Clause 231", "Clausola 231"
//   - "1.", "1.2.", "1.2.3."
//
// A heading must be followed by whitespace.
var headingPattern = regexp.MustCompile(
	`(?im)^\s*(Art(?:icle|icolo)?\.?\s*\d+|Claus(?:e|ola)\s*\d+|\d+(?:\.\d+)*\.)\s+`,
)

// Segment splits document text into clauses in document order.
func Segment(text string) []Clause {
	matches := headingPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []Clause{{ClauseID: WholeDocumentID, Text: strings.TrimSpace(text)}}
	}

	clauses := make([]Clause, 0, len(matches))
	for i, m := range matches {
		bodyEnd := len(text)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		clauses = append(clauses, Clause{
			ClauseID: strings.TrimSpace(text[m[2]:m[3]]),
			Text:     strings.TrimSpace(text[m[1]:bodyEnd]),
		})
	}
	return clauses
}
