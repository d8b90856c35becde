// Package intent classifies free-text legal queries into a closed set of
// intents using a TF-IDF vectorizer and a multiclass perceptron.
package intent

import (
	"fmt"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// DefaultMaxEpochs bounds perceptron training.
const DefaultMaxEpochs = 200

// Ensure Classifier implements the interface.
var _ driven.IntentClassifier = (*Classifier)(nil)

// Classifier is a linear multiclass classifier over TF-IDF features.
// Training is deterministic: examples are visited in order, weights start
// at zero and ties resolve to the first label.
type Classifier struct {
	vectorizer Vectorizer
	labels     []domain.Intent
	weights    [][]float64
	bias       []float64
	trained    bool
	epochs     int
}

// New trains a classifier on examples. An empty example set yields an
// untrained classifier that always answers general.
func New(examples []Example, maxEpochs int) (*Classifier, error) {
	c := &Classifier{}
	if len(examples) == 0 {
		return c, nil
	}
	if maxEpochs <= 0 {
		maxEpochs = DefaultMaxEpochs
	}

	corpus := make([]string, len(examples))
	targets := make([]int, len(examples))
	index := make(map[domain.Intent]int)
	for i, ex := range examples {
		corpus[i] = ex.Text
		idx, ok := index[ex.Intent]
		if !ok {
			idx = len(c.labels)
			index[ex.Intent] = idx
			c.labels = append(c.labels, ex.Intent)
		}
		targets[i] = idx
	}

	if err := c.vectorizer.Fit(corpus); err != nil {
		return c, fmt.Errorf("fit vectorizer: %w", err)
	}

	features := make([][]float64, len(corpus))
	for i, text := range corpus {
		features[i] = c.vectorizer.Transform(text)
	}

	c.weights = make([][]float64, len(c.labels))
	for i := range c.weights {
		c.weights[i] = make([]float64, c.vectorizer.Dimension())
	}
	c.bias = make([]float64, len(c.labels))

	for epoch := 1; epoch <= maxEpochs; epoch++ {
		mistakes := 0
		for i, x := range features {
			predicted := c.argmax(x)
			if predicted == targets[i] {
				continue
			}
			mistakes++
			c.update(targets[i], x, 1)
			c.update(predicted, x, -1)
		}
		c.epochs = epoch
		if mistakes == 0 {
			break
		}
	}

	c.trained = true
	logger.Debug("intent classifier trained: %d examples, %d labels, %d epochs",
		len(examples), len(c.labels), c.epochs)
	return c, nil
}

// NewDefault trains a classifier on SeedExamples.
func NewDefault() (*Classifier, error) {
	return New(SeedExamples, DefaultMaxEpochs)
}

// Classify returns the best scoring intent for query. It returns general
// when the classifier is untrained or the query shares no vocabulary with
// the training set.
func (c *Classifier) Classify(query string) domain.Intent {
	if c == nil || !c.trained {
		return domain.IntentGeneral
	}

	x := c.vectorizer.Transform(query)
	known := false
	for _, v := range x {
		if v != 0 {
			known = true
			break
		}
	}
	if !known {
		return domain.IntentGeneral
	}
	return c.labels[c.argmax(x)]
}

// Trained reports whether training ran.
func (c *Classifier) Trained() bool {
	return c != nil && c.trained
}

// Labels returns the learned intents in first-seen order.
func (c *Classifier) Labels() []domain.Intent {
	return append([]domain.Intent(nil), c.labels...)
}

func (c *Classifier) argmax(x []float64) int {
	best, bestScore := 0, 0.0
	for k, w := range c.weights {
		score := c.bias[k]
		for i, v := range x {
			score += w[i] * v
		}
		if k == 0 || score > bestScore {
			best, bestScore = k, score
		}
	}
	return best
}

func (c *Classifier) update(k int, x []float64, sign float64) {
	for i, v := range x {
		c.weights[k][i] += sign * v
	}
	c.bias[k] += sign
}
