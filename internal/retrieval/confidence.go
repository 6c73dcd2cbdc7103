package retrieval

import "math"

// Relevance score bands. Each band contributes a fixed base confidence plus
// a share of its width scaled by how close the hit is to the top score and
// how far down the ranking it sits.
const (
	highRelevanceThreshold = 10.0
	medRelevanceThreshold  = 5.0
	lowRelevanceThreshold  = 2.0

	positionDecay = 0.08

	minConfidence = 10
	maxConfidence = 100
)

// ScoreConfidence maps store relevance scores (sorted descending) to display
// confidence percentages in [10,100]. The scores slice order is rank order.
func ScoreConfidence(scores []float64) []int {
	confidences := make([]int, len(scores))
	if len(scores) == 0 {
		return confidences
	}

	maxScore := scores[0]

	for i, score := range scores {
		var base, bandWidth float64
		switch {
		case score >= highRelevanceThreshold:
			base, bandWidth = 0.8, 20
		case score >= medRelevanceThreshold:
			base, bandWidth = 0.5, 30
		case score >= lowRelevanceThreshold:
			base, bandWidth = 0.3, 20
		default:
			base, bandWidth = 0.1, 20
		}

		var relative float64
		if maxScore > 0 && score > 0 {
			relative = math.Sqrt(score / maxScore)
		}

		position := 1.0 - float64(i)*positionDecay

		confidence := int(math.Round(base*100 + relative*position*bandWidth))
		if confidence > maxConfidence {
			confidence = maxConfidence
		}
		if confidence < minConfidence {
			confidence = minConfidence
		}

		confidences[i] = confidence
	}

	return confidences
}
