package contract

import (
	"sort"
	"strings"
)

// indexByKey maps normalized ids to clause text. When a document repeats an id
// the last occurrence wins.
func indexByKey(clauses []Clause) map[Key]string {
	index := make(map[Key]string, len(clauses))
	for _, c := range clauses {
		index[KeyOf(c.ClauseID)] = c.Text
	}
	return index
}

// Classify derives the status of a clause pair from presence and equality.
// A side is present when it carries non-blank text; a heading with an empty
// body counts as absent. Absent keys are nil. The second return is false
// only when neither document has the key.
func Classify(companyText, standardText *string) (Status, bool) {
	company, standard := hasText(companyText), hasText(standardText)
	switch {
	case company && standard:
		if strings.TrimSpace(*companyText) == strings.TrimSpace(*standardText) {
			return StatusUnchanged, true
		}
		return StatusModified, true
	case company:
		return StatusNew, true
	case standard:
		return StatusDeleted, true
	case companyText != nil || standardText != nil:
		// headings without bodies on both sides
		return StatusUnchanged, true
	default:
		return "", false
	}
}

func hasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// Align pairs candidate (company) and reference (standard) clauses by normalized id.
// The result holds one entry per key in the union of both documents, ordered by key.
func Align(candidate, reference []Clause) []AnalyzedClause {
	company := indexByKey(candidate)
	standard := indexByKey(reference)

	keys := make([]Key, 0, len(company)+len(standard))
	for k := range company {
		keys = append(keys, k)
	}
	for k := range standard {
		if _, ok := company[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	aligned := make([]AnalyzedClause, 0, len(keys))
	for _, k := range keys {
		var companyText, standardText *string
		if t, ok := company[k]; ok {
			companyText = strPtr(t)
		}
		if t, ok := standard[k]; ok {
			standardText = strPtr(t)
		}
		status, _ := Classify(companyText, standardText)
		aligned = append(aligned, AnalyzedClause{
			ClauseID:             strings.ToUpper(string(k)),
			Status:               status,
			CompanyText:          companyText,
			StandardText:         standardText,
			HistoricalPrecedents: []HistoricalPrecedent{},
		})
	}
	return aligned
}
