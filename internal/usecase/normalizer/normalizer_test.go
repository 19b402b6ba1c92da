package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-agent/internal/domain/entity"
)

func det(label string, conf float64, x1, y1, x2, y2 float64) entity.RawDetection {
	return entity.RawDetection{
		Box:        entity.MustBoundingBox(x1, y1, x2, y2),
		Label:      label,
		Confidence: conf,
		Screenshot: "shot.png",
	}
}

func TestNormalize_MergesOverlappingSameLabel(t *testing.T) {
	a := det("BUTTON", 0.95, 0, 0, 100, 100)
	b := det("BUTTON", 0.80, 0, 0, 100, 70)
	require.InDelta(t, 0.7, a.Box.IoU(b.Box), 1e-9)

	res := Normalize("shot.png", []entity.RawDetection{a, b}, DefaultOptions())

	require.Len(t, res.Clusters, 1)
	c := res.Clusters[0]
	assert.Equal(t, 0.95, c.Confidence)
	assert.Equal(t, a.Box.Union(b.Box), c.Box)
	assert.Equal(t, "button", c.Label)
	assert.Equal(t, 2, c.Members)
	assert.Empty(t, res.Rejected)
}

func TestNormalize_DifferentLabelsNeverMerge(t *testing.T) {
	res := Normalize("shot.png", []entity.RawDetection{
		det("button", 0.9, 0, 0, 100, 100),
		det("icon", 0.6, 0, 0, 100, 100),
	}, DefaultOptions())

	require.Len(t, res.Clusters, 2)
	assert.Equal(t, "button", res.Clusters[0].Label)
	assert.Equal(t, "icon", res.Clusters[1].Label)
}

func TestNormalize_BelowThresholdStaysSeparate(t *testing.T) {
	res := Normalize("shot.png", []entity.RawDetection{
		det("tab", 0.9, 0, 0, 10, 10),
		det("tab", 0.9, 5, 0, 15, 10), // IoU 1/3
	}, DefaultOptions())
	assert.Len(t, res.Clusters, 2)

	res = Normalize("shot.png", []entity.RawDetection{
		det("tab", 0.9, 0, 0, 10, 10),
		det("tab", 0.9, 5, 0, 15, 10),
	}, Options{IoUThreshold: 0.3})
	assert.Len(t, res.Clusters, 1)
}

func TestNormalize_EmptyInput(t *testing.T) {
	res := Normalize("shot.png", nil, DefaultOptions())
	assert.Empty(t, res.Clusters)
	assert.Empty(t, res.Rejected)
}

func TestNormalize_RejectsInvalidDetections(t *testing.T) {
	res := Normalize("shot.png", []entity.RawDetection{
		{Label: "button", Confidence: 0.9},
		det("  ", 0.9, 0, 0, 5, 5),
		det("link", 0.7, 0, 0, 5, 5),
	}, DefaultOptions())

	require.Len(t, res.Clusters, 1)
	require.Len(t, res.Rejected, 2)
	for _, issue := range res.Rejected {
		assert.Equal(t, entity.IssueInvalidDetection, issue.Kind)
		assert.Equal(t, "shot.png", issue.Screenshot)
	}
}

func TestNormalize_ClampsConfidence(t *testing.T) {
	res := Normalize("shot.png", []entity.RawDetection{det("link", 1.4, 0, 0, 5, 5)}, DefaultOptions())
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, 1.0, res.Clusters[0].Confidence)
}

func TestNormalize_GrownClusterAbsorbsLaterNeighbour(t *testing.T) {
	// a+b merge into [0,0,12,10]; that union reaches c, which overlaps
	// neither a nor b enough on its own.
	a := det("icon", 0.5, 0, 0, 10, 10)
	b := det("icon", 0.6, 2, 0, 12, 10)
	c := det("icon", 0.7, 0, 0, 12, 20)
	require.Less(t, a.Box.IoU(c.Box), 0.5)
	require.Less(t, b.Box.IoU(c.Box), 0.5)

	res := Normalize("shot.png", []entity.RawDetection{a, c, b}, DefaultOptions())

	require.Len(t, res.Clusters, 1)
	assert.Equal(t, entity.MustBoundingBox(0, 0, 12, 20), res.Clusters[0].Box)
	assert.Equal(t, 0.7, res.Clusters[0].Confidence)
	assert.Equal(t, 3, res.Clusters[0].Members)
}

func TestNormalize_Idempotent(t *testing.T) {
	input := []entity.RawDetection{
		det("button", 0.9, 0, 0, 100, 40),
		det("button", 0.7, 2, 1, 101, 41),
		det("text_input", 0.8, 0, 50, 300, 80),
		det("text_input", 0.5, 310, 50, 600, 80),
		det("icon", 0.4, 0, 0, 20, 20),
		det("icon", 0.45, 1, 1, 21, 21),
		det("icon", 0.3, 2, 2, 22, 22),
	}
	first := Normalize("shot.png", input, DefaultOptions())
	second := Normalize("shot.png", AsDetections(first.Clusters), DefaultOptions())

	require.Len(t, second.Clusters, len(first.Clusters))
	for i := range first.Clusters {
		assert.Equal(t, first.Clusters[i].Box, second.Clusters[i].Box)
		assert.Equal(t, first.Clusters[i].Label, second.Clusters[i].Label)
		assert.Equal(t, first.Clusters[i].Confidence, second.Clusters[i].Confidence)
	}
}

func TestNormalize_OrderFollowsFirstMember(t *testing.T) {
	res := Normalize("shot.png", []entity.RawDetection{
		det("link", 0.2, 500, 500, 510, 510),
		det("button", 0.9, 0, 0, 10, 10),
		det("link", 0.3, 500, 500, 510, 511),
	}, DefaultOptions())

	require.Len(t, res.Clusters, 2)
	assert.Equal(t, "link", res.Clusters[0].Label)
	assert.Equal(t, "button", res.Clusters[1].Label)
}
