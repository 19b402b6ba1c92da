// Package classifier turns normalized clusters into typed UI elements.
package classifier

import (
	"fmt"
	"sort"

	"screen-agent/internal/domain/entity"
)

const DefaultMinConfidence = 0.3

type Options struct {
	// MinConfidence drops clusters scoring strictly below it.
	MinConfidence float64
	// Vocabulary lists the known element types; nil means the default set.
	Vocabulary *entity.Vocabulary
}

func DefaultOptions() Options {
	return Options{
		MinConfidence: DefaultMinConfidence,
		Vocabulary:    entity.DefaultVocabulary(),
	}
}

type Result struct {
	Elements []entity.UIElement
	Dropped  []entity.Issue
	// Coerced counts clusters whose label fell outside the vocabulary.
	Coerced int
}

// Classify creates one UIElement per cluster that clears the confidence
// floor. pool is the screenshot's position in the run and scopes the ids.
// Elements come back ordered by descending confidence; equal confidences
// keep creation order.
func Classify(pool int, clusters []entity.Cluster, opts Options) Result {
	vocab := opts.Vocabulary
	if vocab == nil {
		vocab = entity.DefaultVocabulary()
	}
	floor := entity.ClampConfidence(opts.MinConfidence)

	var res Result
	for _, c := range clusters {
		if c.Confidence < floor {
			res.Dropped = append(res.Dropped, entity.Issue{
				Kind:       entity.IssueLowConfidenceDrop,
				Screenshot: c.Screenshot,
				Label:      c.Label,
				Confidence: c.Confidence,
				Message:    fmt.Sprintf("cluster %s %s below confidence floor %.2f", c.Label, c.Box, floor),
			})
			continue
		}

		typ, known := vocab.Resolve(c.Label)
		if !known {
			res.Coerced++
		}

		seq := len(res.Elements)
		res.Elements = append(res.Elements, entity.UIElement{
			ID:         entity.ElementID(pool, seq),
			Type:       typ,
			Label:      c.Label,
			Box:        c.Box,
			Confidence: c.Confidence,
			Screenshot: c.Screenshot,
			Pool:       pool,
			Seq:        seq,
		})
	}

	sort.SliceStable(res.Elements, func(i, j int) bool {
		return res.Elements[i].Confidence > res.Elements[j].Confidence
	})
	return res
}
