package scoring

import (
	"math"

	"gradesync/app_error"
	"gradesync/repository"
)

// ConversionResult carries the converted score together with the max score
// it was converted against. TargetMaxScore is stored on the row so later
// structure edits never change history.
type ConversionResult struct {
	ConvertedScore *float64
	TargetMaxScore float64
	// Truncated flags a direct-mapped raw score that exceeded the target
	// max. The excess is cut off and the row surfaced for review.
	Truncated bool
}

// Convert maps a raw CBT score onto the component scale. A nil rawScore
// (student never attempted) converts to a nil score, not an error, so the
// row stays visible for review.
func Convert(rawScore *float64, rawMax float64, mappingType repository.ScoreMappingType, maxScoreOverride *float64, targetMaxScore float64) (*ConversionResult, error) {
	if mappingType == repository.MappingScaled {
		if maxScoreOverride == nil {
			return nil, app_error.NewValidationError("scaled mapping requires a max score override")
		}
		if *maxScoreOverride <= 0 {
			return nil, app_error.NewValidationError("max score override must be positive, got %.2f", *maxScoreOverride)
		}
	}

	if rawScore == nil {
		result := &ConversionResult{ConvertedScore: nil, TargetMaxScore: targetMaxScore}
		if mappingType == repository.MappingScaled {
			result.TargetMaxScore = *maxScoreOverride
		}
		return result, nil
	}
	if *rawScore < 0 {
		return nil, app_error.NewValidationError("raw score must not be negative, got %.2f", *rawScore)
	}

	switch mappingType {
	case repository.MappingDirect:
		converted := *rawScore
		truncated := false
		if converted > targetMaxScore {
			converted = targetMaxScore
			truncated = true
		}
		return &ConversionResult{ConvertedScore: &converted, TargetMaxScore: targetMaxScore, Truncated: truncated}, nil
	case repository.MappingPercentage:
		if rawMax == 0 {
			return nil, app_error.NewValidationError("raw max score must not be zero for percentage mapping")
		}
		converted := RoundHalfUp(*rawScore / rawMax * targetMaxScore)
		return &ConversionResult{ConvertedScore: &converted, TargetMaxScore: targetMaxScore}, nil
	case repository.MappingScaled:
		if rawMax == 0 {
			return nil, app_error.NewValidationError("raw max score must not be zero for scaled mapping")
		}
		// The override replaces the resolved structure cap entirely.
		converted := RoundHalfUp(*rawScore / rawMax * *maxScoreOverride)
		return &ConversionResult{ConvertedScore: &converted, TargetMaxScore: *maxScoreOverride}, nil
	default:
		return nil, app_error.NewValidationError("unknown score mapping type %q", mappingType)
	}
}

// RoundHalfUp rounds to 2 decimal places with ties away from zero upward.
func RoundHalfUp(value float64) float64 {
	return math.Floor(value*100+0.5) / 100
}
