package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Recommendation string

const (
	RecommendAccept          Recommendation = "ACCEPT"
	RecommendReject          Recommendation = "REJECT"
	RecommendCounterProposal Recommendation = "COUNTER-PROPOSAL"
	RecommendError           Recommendation = "ERROR"
)

const (
	// FallbackSummary marks an assessment the model could not deliver
	FallbackSummary = "invalid LLM response"
	// FallbackRisk is used when the failure carries no diagnostic text
	FallbackRisk = "N/A"
)

// ErrMalformedOutput is returned when model output is not the expected JSON object
var ErrMalformedOutput = errors.New("malformed model output")

// Assessment is the structured risk analysis of a changed clause.
// Degraded is set on fallback records so callers can tell "no risk" from "analysis failed".
type Assessment struct {
	Summary                  string         `json:"summary"`
	RiskAssessment           string         `json:"risk_assessment"`
	Recommendation           Recommendation `json:"recommendation"`
	SuggestedCounterProposal string         `json:"suggested_counter_proposal"`
	Degraded                 bool           `json:"degraded,omitempty"`
}

// modelAssessment is the shape the model must answer with. The text fields
// must be present but may be empty.
type modelAssessment struct {
	Summary                  *string        `json:"summary" validate:"required"`
	RiskAssessment           *string        `json:"risk_assessment" validate:"required"`
	Recommendation           Recommendation `json:"recommendation" validate:"required,oneof=ACCEPT REJECT COUNTER-PROPOSAL"`
	SuggestedCounterProposal string         `json:"suggested_counter_proposal"`
}

// FallbackAssessment builds the ERROR record substituted for a failed analysis.
func FallbackAssessment(err error) Assessment {
	risk := FallbackRisk
	if err != nil && !errors.Is(err, ErrMalformedOutput) {
		risk = err.Error()
	}
	return Assessment{
		Summary:                  FallbackSummary,
		RiskAssessment:           risk,
		Recommendation:           RecommendError,
		SuggestedCounterProposal: "",
		Degraded:                 true,
	}
}

var (
	validate = validator.New(validator.WithRequiredStructEnabled())

	// wrapperMarkers strips markdown fences models like to put around JSON
	wrapperMarkers = regexp.MustCompile("(?im)^```(?:json)?[ \t]*$|```[ \t]*$")
	// single-line fences: ```json {...}```
	openingFence = regexp.MustCompile("(?i)^```(?:json)?")
)

// StripWrappers removes known textual wrappers (markdown code fences) around structured output.
func StripWrappers(s string) string {
	cleaned := wrapperMarkers.ReplaceAllString(strings.TrimSpace(s), "")
	cleaned = openingFence.ReplaceAllString(strings.TrimSpace(cleaned), "")
	return strings.TrimSpace(cleaned)
}

// ParseAssessment decodes model output into an Assessment. Any failure wraps ErrMalformedOutput.
func ParseAssessment(output string) (Assessment, error) {
	var m modelAssessment
	if err := json.Unmarshal([]byte(StripWrappers(output)), &m); err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	m.Recommendation = normalizeRecommendation(m.Recommendation)
	if err := validate.Struct(m); err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return Assessment{
		Summary:                  *m.Summary,
		RiskAssessment:           *m.RiskAssessment,
		Recommendation:           m.Recommendation,
		SuggestedCounterProposal: m.SuggestedCounterProposal,
	}, nil
}

func normalizeRecommendation(r Recommendation) Recommendation {
	s := strings.ToUpper(strings.TrimSpace(string(r)))
	s = strings.NewReplacer("_", "-", " ", "-").Replace(s)
	s = strings.Trim(s, "'\".")
	return Recommendation(s)
}
