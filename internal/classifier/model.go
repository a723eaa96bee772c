package classifier

import (
	"encoding/json"
	"fmt"
	"os"
)

// Model is the fitted artifact consumed by the scorer: a TF-IDF vectorizer
// (vocabulary + per-term IDF weights) and a logistic regression over that
// feature space. The artifact is produced offline by the training job and
// exported as JSON; it is loaded once at startup and never mutated.
type Model struct {
	Vectorizer VectorizerParams `json:"vectorizer"`
	Classifier ClassifierParams `json:"classifier"`
}

// VectorizerParams holds the fitted TF-IDF parameters.
type VectorizerParams struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

// ClassifierParams holds the fitted logistic regression parameters. The
// coefficient vector is index-aligned with the vectorizer vocabulary.
type ClassifierParams struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// LoadModel reads and validates a model artifact from disk. Validation is the
// capability check for probability output: an artifact that cannot map text to
// a probability is rejected here, at construction time, rather than per call.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model artifact %s: %w", path, err)
	}

	return &m, nil
}

// Validate checks that the artifact can produce a probability for arbitrary
// input text.
func (m *Model) Validate() error {
	if len(m.Vectorizer.Vocabulary) == 0 {
		return fmt.Errorf("vectorizer vocabulary is empty")
	}
	if len(m.Vectorizer.IDF) != len(m.Vectorizer.Vocabulary) {
		return fmt.Errorf("idf weights (%d) do not match vocabulary size (%d)",
			len(m.Vectorizer.IDF), len(m.Vectorizer.Vocabulary))
	}
	if len(m.Classifier.Coefficients) != len(m.Vectorizer.Vocabulary) {
		return fmt.Errorf("coefficients (%d) do not match vocabulary size (%d)",
			len(m.Classifier.Coefficients), len(m.Vectorizer.Vocabulary))
	}
	for term, idx := range m.Vectorizer.Vocabulary {
		if idx < 0 || idx >= len(m.Vectorizer.IDF) {
			return fmt.Errorf("vocabulary term %q has out-of-range index %d", term, idx)
		}
	}
	return nil
}
