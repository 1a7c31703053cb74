package llm

import (
	"fmt"
	"strings"

	"github.com/ericksa/contractlens/internal/contract"
)

const clauseSystemPrompt = `You are an expert legal analyst reviewing contract clauses on behalf of the issuing institution.
Your task is to analyze a clause proposed by a client company, compare it with the institution's standard and give a clear recommendation grounded in historical precedents.
Answer in %s. Reply with a single JSON object and nothing else.`

const clauseUserPrompt = `**Clause context:**
- **Clause ID:** %s
- **Standard text:**
%s
- **Text proposed by the company:**
%s

**Relevant historical precedents (found by semantic search):**
%s

**Your task:**
Analyze the information above and return JSON with this structure:
{
  "summary": "A concise summary of the change introduced by the company.",
  "risk_assessment": "A risk assessment. State whether the change resembles approved or rejected precedents. Be specific.",
  "recommendation": "One of: 'ACCEPT', 'REJECT', 'COUNTER-PROPOSAL'.",
  "suggested_counter_proposal": "If the recommendation is 'COUNTER-PROPOSAL', a well-drafted counter-proposal. Otherwise an empty string."
}`

const noPrecedents = "No relevant historical precedent found."

// FormatPrecedents renders precedents as a numbered list. Rejected precedents
// carry the counter-proposal that was sent back, when one was recorded.
func FormatPrecedents(precedents []contract.HistoricalPrecedent) string {
	if len(precedents) == 0 {
		return noPrecedents
	}
	var b strings.Builder
	for i, p := range precedents {
		status := strings.ToUpper(metaString(p.Metadata, "status"))
		if status == "" {
			status = "N/A"
		}
		fmt.Fprintf(&b, "%d. Status: %s\n", i+1, status)
		fmt.Fprintf(&b, "   Text: %q\n", p.Text)
		if cp := metaString(p.Metadata, "counter_proposal_text"); status == "REJECTED" && cp != "" {
			fmt.Fprintf(&b, "   Counter-proposal: %q\n", cp)
		}
	}
	return b.String()
}

func metaString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func clausePrompt(review contract.ClauseReview) string {
	return fmt.Sprintf(clauseUserPrompt,
		review.ClauseID,
		review.StandardText,
		review.CompanyText,
		FormatPrecedents(review.Precedents),
	)
}

const modifiedSystemPrompt = `You are a legal assistant specialized in analyzing contract amendments. Compare the standard clause with the proposed one and concisely describe the key differences. Point out potential impacts when they are evident. Answer in %s.`

const addedSystemPrompt = `You are a legal assistant specialized in analyzing contract clauses. Briefly describe the content and purpose of the following added clause. Answer in %s.`

func modifiedPrompt(standard, proposal string) string {
	return fmt.Sprintf("Standard clause:\n---\n%s\n---\n\nProposed clause:\n---\n%s\n---\n\nDescribe the changes:", standard, proposal)
}

func addedPrompt(proposal string) string {
	return fmt.Sprintf("Added clause:\n---\n%s\n---\n\nDescribe the clause:", proposal)
}

const chatPromptTemplate = `You are a legal assistant specialized in contract analysis.
You were given the result of a comparison between a standard contract and a version amended by a client company.
Answer the user's question based ONLY on the context below. Do not make up information.

--- BEGIN ANALYSIS CONTEXT ---
%s
--- END ANALYSIS CONTEXT ---

User question: %q

Answer clearly and concisely in %s.`

// FormatChatContext summarizes analyzed clauses for the chat prompt.
func FormatChatContext(clauses []contract.AnalyzedClause) string {
	var b strings.Builder
	for _, c := range clauses {
		fmt.Fprintf(&b, "Clause: %s\n", c.ClauseID)
		fmt.Fprintf(&b, "Status: %s\n", c.Status)
		if c.Status.Enrichable() && c.LLMAnalysis != nil {
			fmt.Fprintf(&b, "  - AI recommendation: %s\n", c.LLMAnalysis.Recommendation)
			fmt.Fprintf(&b, "  - Change summary: %s\n", c.LLMAnalysis.Summary)
		}
		b.WriteString("---\n")
	}
	return b.String()
}

func chatPrompt(question string, clauses []contract.AnalyzedClause, language string) string {
	return fmt.Sprintf(chatPromptTemplate, FormatChatContext(clauses), question, language)
}
