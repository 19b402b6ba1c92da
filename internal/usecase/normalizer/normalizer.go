// Package normalizer collapses overlapping detections of one screenshot into
// a minimal set of clusters.
package normalizer

import (
	"fmt"

	"screen-agent/internal/domain/entity"
)

const DefaultIoUThreshold = 0.5

type Options struct {
	// IoUThreshold is the minimum overlap for two same-label boxes to merge.
	IoUThreshold float64
}

func DefaultOptions() Options {
	return Options{IoUThreshold: DefaultIoUThreshold}
}

type Result struct {
	Clusters []entity.Cluster
	Rejected []entity.Issue
}

// Normalize merges same-label detections whose IoU reaches the threshold.
// A cluster's box is the union of its members and its confidence the highest
// member confidence. Labels are compared after entity.NormalizeLabel; boxes
// with different labels never merge. Merging repeats until no pair of
// clusters qualifies, so feeding the output back in changes nothing.
func Normalize(screenshot string, detections []entity.RawDetection, opts Options) Result {
	threshold := opts.IoUThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultIoUThreshold
	}

	var res Result
	clusters := make([]entity.Cluster, 0, len(detections))
	for i, d := range detections {
		label := entity.NormalizeLabel(d.Label)
		switch {
		case d.Box.IsZero():
			res.Rejected = append(res.Rejected, rejected(screenshot, d, fmt.Sprintf("detection %d has no valid bounding box", i)))
			continue
		case label == "":
			res.Rejected = append(res.Rejected, rejected(screenshot, d, fmt.Sprintf("detection %d has an empty label", i)))
			continue
		}
		clusters = append(clusters, entity.Cluster{
			Box:        d.Box,
			Label:      label,
			Confidence: entity.ClampConfidence(d.Confidence),
			Screenshot: screenshot,
			Members:    1,
		})
	}

	res.Clusters = mergeUntilStable(clusters, threshold)
	return res
}

// mergeUntilStable keeps the earliest cluster of every merged pair in place,
// which makes the output order follow the input order of first members.
func mergeUntilStable(clusters []entity.Cluster, threshold float64) []entity.Cluster {
	for {
		merged := false
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); {
				if clusters[i].Label != clusters[j].Label || clusters[i].Box.IoU(clusters[j].Box) < threshold {
					j++
					continue
				}
				clusters[i] = merge(clusters[i], clusters[j])
				clusters = append(clusters[:j], clusters[j+1:]...)
				merged = true
				// the grown box may now reach clusters already skipped
				j = i + 1
			}
		}
		if !merged {
			return clusters
		}
	}
}

func merge(a, b entity.Cluster) entity.Cluster {
	conf := a.Confidence
	if b.Confidence > conf {
		conf = b.Confidence
	}
	return entity.Cluster{
		Box:        a.Box.Union(b.Box),
		Label:      a.Label,
		Confidence: conf,
		Screenshot: a.Screenshot,
		Members:    a.Members + b.Members,
	}
}

func rejected(screenshot string, d entity.RawDetection, msg string) entity.Issue {
	return entity.Issue{
		Kind:       entity.IssueInvalidDetection,
		Screenshot: screenshot,
		Label:      d.Label,
		Confidence: entity.ClampConfidence(d.Confidence),
		Message:    msg,
	}
}

// AsDetections turns clusters back into detections, e.g. to re-run
// normalization on already deduplicated output.
func AsDetections(clusters []entity.Cluster) []entity.RawDetection {
	out := make([]entity.RawDetection, len(clusters))
	for i, c := range clusters {
		out[i] = entity.RawDetection{
			Box:        c.Box,
			Label:      c.Label,
			Confidence: c.Confidence,
			Screenshot: c.Screenshot,
		}
	}
	return out
}
