package classifier

import (
	"log/slog"
	"math"
	"regexp"
	"strings"
)

// Scorer maps a raw text field to the probability in [0,1] that it is an
// injection payload. Implementations must accept arbitrary untrusted input,
// including the empty string, and must never fail into the auth path: on any
// internal error the defined fallback is probability 0.
type Scorer interface {
	Score(text string) float64
}

// Matches the vectorizer's token pattern: runs of two or more word characters
// over lowercased input.
var tokenPattern = regexp.MustCompile(`\w\w+`)

// ModelScorer scores text with a fitted TF-IDF vectorizer and logistic
// regression. It holds no mutable state and is safe for concurrent use.
type ModelScorer struct {
	model  *Model
	logger *slog.Logger
}

// NewModelScorer wraps a validated model. The model must have passed
// LoadModel validation; a nil model is rejected here so scorer construction
// fails fast instead of every Score call degrading to 0.
func NewModelScorer(model *Model, logger *slog.Logger) (*ModelScorer, error) {
	if model == nil {
		return nil, errNilModel
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return &ModelScorer{model: model, logger: logger}, nil
}

// Score returns the malicious probability for one text field. Out-of-vocabulary
// terms contribute nothing; an empty or token-free input scores against the
// intercept alone.
func (s *ModelScorer) Score(text string) float64 {
	prob, ok := s.scoreText(text)
	if !ok {
		s.logger.Warn("scorer degraded to fallback probability",
			slog.Int("text_len", len(text)))
		return 0
	}
	return prob
}

func (s *ModelScorer) scoreText(text string) (float64, bool) {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)

	// Term frequencies restricted to the fitted vocabulary.
	counts := make(map[int]float64)
	for _, tok := range tokens {
		if idx, found := s.model.Vectorizer.Vocabulary[tok]; found {
			counts[idx]++
		}
	}

	// TF-IDF with L2 normalization, matching the fitted vectorizer.
	var norm float64
	for idx, tf := range counts {
		if idx < 0 || idx >= len(s.model.Vectorizer.IDF) {
			return 0, false
		}
		w := tf * s.model.Vectorizer.IDF[idx]
		counts[idx] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range counts {
			counts[idx] /= norm
		}
	}

	// Logistic regression decision function over the sparse vector.
	decision := s.model.Classifier.Intercept
	for idx, w := range counts {
		if idx >= len(s.model.Classifier.Coefficients) {
			return 0, false
		}
		decision += w * s.model.Classifier.Coefficients[idx]
	}

	prob := sigmoid(decision)
	if math.IsNaN(prob) || math.IsInf(prob, 0) {
		return 0, false
	}
	return prob, true
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
