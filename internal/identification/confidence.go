package identification

import "platter/internal/textutil"

// MaxAutoConfidence caps automatic identification scores. 1.0 is reserved
// for human assertion (queue.HumanConfidence).
const MaxAutoConfidence = 0.99

// Score combines title similarity, catalog popularity, and result rank into
// a confidence value on [0, MaxAutoConfidence]. Weights: 60% title match,
// 25% popularity, 15% first-result bonus.
func Score(query, candidateTitle string, popularity float64, firstResult bool) float64 {
	confidence := textutil.TitleSimilarity(query, candidateTitle)*0.60 + popularityScore(popularity)*0.25
	if firstResult {
		confidence += 0.15
	}
	if confidence < 0 {
		return 0
	}
	if confidence > MaxAutoConfidence {
		return MaxAutoConfidence
	}
	return confidence
}

// popularityScore maps TMDb popularity onto [0,1], saturating at 100.
func popularityScore(popularity float64) float64 {
	if popularity <= 0 {
		return 0
	}
	if popularity >= 100 {
		return 1
	}
	return popularity / 100
}
