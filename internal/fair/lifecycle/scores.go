package lifecycle

import (
	"fmt"
	"math"
	"sort"

	"github.com/louisbranch/fairscore/internal/fair/rubric"
	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
)

// ScoresFromNumbers converts decoded JSON numbers to integer scores,
// rejecting fractional values.
func ScoresFromNumbers(in map[string]float64) (map[string]int, error) {
	out := make(map[string]int, len(in))
	for _, key := range sortedKeys(in) {
		v := in[key]
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, criterionError(apperrors.CodeScoreNotInteger, key, fmt.Sprintf("score for %s must be an integer", key))
		}
		if v < 0 || v > rubric.MaxScore {
			return nil, criterionError(apperrors.CodeScoreOutOfRange, key, fmt.Sprintf("score for %s out of range", key))
		}
		out[key] = int(v)
	}
	return out, nil
}

// ValidateScores checks that every key is a rubric criterion scored 0-10.
// Missing criteria are allowed.
func ValidateScores(scores map[string]int) error {
	for _, key := range sortedKeys(scores) {
		if !rubric.Has(key) {
			return criterionError(apperrors.CodeScoreUnknownCriterion, key, fmt.Sprintf("unknown criterion %s", key))
		}
		if v := scores[key]; v < 0 || v > rubric.MaxScore {
			return criterionError(apperrors.CodeScoreOutOfRange, key, fmt.Sprintf("score for %s is %d", key, v))
		}
	}
	return nil
}

// ValidateComplete checks ValidateScores and that every criterion is scored.
func ValidateComplete(scores map[string]int) error {
	if err := ValidateScores(scores); err != nil {
		return err
	}
	for _, key := range rubric.Keys() {
		if _, ok := scores[key]; !ok {
			return criterionError(apperrors.CodeScoreIncomplete, key, fmt.Sprintf("score for %s is missing", key))
		}
	}
	return nil
}

// ComputeTotal sums the present scores. Drafts get partial totals.
func ComputeTotal(scores map[string]int) int {
	total := 0
	for _, v := range scores {
		total += v
	}
	return total
}

func criterionError(code apperrors.Code, key, message string) error {
	return apperrors.WithMetadata(code, message, map[string]string{"Criterion": key})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
