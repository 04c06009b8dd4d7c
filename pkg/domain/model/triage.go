package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

// STARTAnswers holds the operator's answers to the five START questions.
// The classifier never fills gaps; every answer is an observed fact.
type STARTAnswers struct {
	Ambulatory            bool `json:"ambulatory"`
	Breathing             bool `json:"breathing"`
	RespiratoryRateOver30 bool `json:"respiratory_rate_over_30"`
	RadialPulse           bool `json:"radial_pulse"`
	FollowsCommands       bool `json:"follows_commands"`
}

// STARTAnswersFromVitals builds answers from an observed respiratory rate.
// respiratoryRate must be the counted rate; it is only compared against 30.
func STARTAnswersFromVitals(ambulatory, breathing bool, respiratoryRate int, radialPulse, followsCommands bool) STARTAnswers {
	return STARTAnswers{
		Ambulatory:            ambulatory,
		Breathing:             breathing,
		RespiratoryRateOver30: respiratoryRate > 30,
		RadialPulse:           radialPulse,
		FollowsCommands:       followsCommands,
	}
}

// TriageResult is a normalized triage assignment
type TriageResult struct {
	Category types.TriageCategory `json:"category"`
	Color    types.TriageColor    `json:"color"`
	Label    string               `json:"label"`
}

func resultOf(c types.TriageCategory) TriageResult {
	return TriageResult{Category: c, Color: c.Color(), Label: c.Label()}
}

// Classify applies the START decision tree. It is total over all answer
// combinations and always yields one of the four categories.
func Classify(a STARTAnswers) TriageResult {
	switch {
	case a.Ambulatory:
		return resultOf(types.TriageMinor)
	case !a.Breathing:
		return resultOf(types.TriageExpectant)
	case a.RespiratoryRateOver30:
		return resultOf(types.TriageImmediate)
	case !a.RadialPulse:
		return resultOf(types.TriageImmediate)
	case !a.FollowsCommands:
		return resultOf(types.TriageImmediate)
	default:
		return resultOf(types.TriageDelayed)
	}
}

// ValidateTriage rejects unknown categories and category/color mismatches
func ValidateTriage(category types.TriageCategory, color types.TriageColor) error {
	if !category.IsValid() {
		return goerr.Wrap(ErrInvalidTriage, "unknown triage category", goerr.V(CategoryKey, category))
	}
	if !color.IsValid() {
		return goerr.Wrap(ErrInvalidTriage, "unknown triage color", goerr.V("color", color))
	}
	if category.Color() != color {
		return goerr.Wrap(ErrInvalidTriage, "triage color does not match category",
			goerr.V(CategoryKey, category),
			goerr.V(ExpectedKey, category.Color()),
			goerr.V(ActualKey, color))
	}
	return nil
}

// TriageInput is either a set of START answers or a manual category.
// A manual color, when given, must match the category.
type TriageInput struct {
	START    *STARTAnswers        `json:"start,omitempty"`
	Category types.TriageCategory `json:"category,omitempty"`
	Color    types.TriageColor    `json:"color,omitempty"`
}

// Resolve returns the normalized triage result for the input
func (x TriageInput) Resolve() (TriageResult, error) {
	if x.START != nil {
		if x.Category != "" || x.Color != "" {
			return TriageResult{}, goerr.Wrap(ErrInvalidTriage, "START answers and manual category are exclusive")
		}
		return Classify(*x.START), nil
	}

	if x.Category == "" {
		return TriageResult{}, goerr.Wrap(ErrInvalidTriage, "triage category is required")
	}
	color := x.Color
	if color == "" {
		color = x.Category.Color()
	}
	if err := ValidateTriage(x.Category, color); err != nil {
		return TriageResult{}, err
	}
	return resultOf(x.Category), nil
}
