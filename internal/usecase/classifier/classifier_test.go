package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-agent/internal/domain/entity"
)

func cluster(label string, conf float64) entity.Cluster {
	return entity.Cluster{
		Box:        entity.MustBoundingBox(0, 0, 10, 10),
		Label:      label,
		Confidence: conf,
		Screenshot: "a.png",
		Members:    1,
	}
}

func TestClassify_DropsBelowFloor(t *testing.T) {
	res := Classify(0, []entity.Cluster{
		cluster("button", 0.29),
		cluster("button", 0.3),
		cluster("link", 0.1),
	}, DefaultOptions())

	require.Len(t, res.Elements, 1)
	assert.Equal(t, 0.3, res.Elements[0].Confidence, "confidence equal to the floor is kept")

	require.Len(t, res.Dropped, 2)
	for _, d := range res.Dropped {
		assert.Equal(t, entity.IssueLowConfidenceDrop, d.Kind)
		assert.Less(t, d.Confidence, 0.3)
	}
}

func TestClassify_CoercesUnknownLabels(t *testing.T) {
	res := Classify(0, []entity.Cluster{cluster("carousel", 0.9)}, DefaultOptions())

	require.Len(t, res.Elements, 1)
	assert.Equal(t, entity.ElementUnknown, res.Elements[0].Type)
	assert.Equal(t, "carousel", res.Elements[0].Label)
	assert.Equal(t, 1, res.Coerced)
}

func TestClassify_ExtendedVocabulary(t *testing.T) {
	opts := DefaultOptions()
	opts.Vocabulary.Extend("carousel")

	res := Classify(0, []entity.Cluster{cluster("carousel", 0.9)}, opts)
	require.Len(t, res.Elements, 1)
	assert.Equal(t, entity.ElementType("carousel"), res.Elements[0].Type)
	assert.Zero(t, res.Coerced)
}

func TestClassify_OrderingAndIDs(t *testing.T) {
	res := Classify(2, []entity.Cluster{
		cluster("link", 0.5),
		cluster("button", 0.9),
		cluster("tab", 0.5),
		cluster("icon", 0.7),
	}, DefaultOptions())

	require.Len(t, res.Elements, 4)
	var ids []string
	for _, e := range res.Elements {
		ids = append(ids, e.ID)
		assert.Equal(t, 2, e.Pool)
	}
	// confidence desc; the two 0.5 elements keep creation order
	assert.Equal(t, []string{"el-02-0001", "el-02-0003", "el-02-0000", "el-02-0002"}, ids)
}

func TestClassify_IDsUniqueAndSkipDropped(t *testing.T) {
	res := Classify(0, []entity.Cluster{
		cluster("link", 0.1),
		cluster("link", 0.8),
		cluster("link", 0.8),
	}, DefaultOptions())

	require.Len(t, res.Elements, 2)
	assert.Equal(t, "el-00-0000", res.Elements[0].ID)
	assert.Equal(t, "el-00-0001", res.Elements[1].ID)
}
