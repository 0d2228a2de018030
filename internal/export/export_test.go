package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FabioYanezRomero/kg-constructor/internal/model"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "Acme-Corp", Slugify("Acme Corp"))
	assert.Equal(t, "residence-order", Slugify("residence   order!!"))
	assert.Equal(t, "entity", Slugify("???"))
	assert.Equal(t, "v1.2-beta", Slugify("v1.2 (beta)"))
}

func TestBuildGraphDoc_MergesCaseVariants(t *testing.T) {
	doc := BuildGraphDoc([]model.Triple{
		{Head: "Alice", Relation: "knows", Tail: "Bob", Inference: model.InferenceExplicit},
		{Head: "ALICE", Relation: "met", Tail: "bob", Inference: model.InferenceExplicit},
	})

	// Case variants collapse to one node each; first spelling is canonical.
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "Alice", doc.Nodes[0].Properties["name"])
	assert.Equal(t, "Bob", doc.Nodes[1].Properties["name"])
	require.Len(t, doc.Edges, 2)
	assert.Equal(t, doc.Edges[0].Source, doc.Edges[1].Source)
}

func TestBuildGraphDoc_EdgeProperties(t *testing.T) {
	start, end := 0, 16
	doc := BuildGraphDoc([]model.Triple{
		{
			Head: "Alice", Relation: "knows", Tail: "Bob",
			Inference: model.InferenceContextual, Justification: "inferred",
			CharStart: &start, CharEnd: &end, ExtractionText: "Alice knows Bob.",
			IterationSource: 2,
		},
	})

	require.Len(t, doc.Edges, 1)
	e := doc.Edges[0]
	assert.Equal(t, "knows", e.Type)
	assert.Equal(t, "contextual", e.Properties["inference"])
	assert.Equal(t, "inferred", e.Properties["justification"])
	assert.Equal(t, 2, e.Properties["iteration_source"])
	assert.Equal(t, 0, e.Properties["char_start"])
	assert.Equal(t, 16, e.Properties["char_end"])
}

func TestBuildGraphDoc_SlugCollision(t *testing.T) {
	// "Acme Corp" and "Acme/Corp" both slugify to Acme-Corp.
	doc := BuildGraphDoc([]model.Triple{
		{Head: "Acme Corp", Relation: "r", Tail: "Acme/Corp", Inference: model.InferenceExplicit},
	})

	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "Acme-Corp", doc.Nodes[0].ID)
	assert.Equal(t, "Acme-Corp-2", doc.Nodes[1].ID)
}

func TestWriteGraphJSON(t *testing.T) {
	result := &model.ExtractionResult{
		RecordID: "rec-1",
		Triples: []model.Triple{
			{Head: "Alice", Relation: "knows", Tail: "Bob", Inference: model.InferenceExplicit},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteGraphJSON(&buf, result))

	var doc GraphDoc
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Len(t, doc.Nodes, 2)
	assert.Len(t, doc.Edges, 1)
}

func TestWriteGraphML(t *testing.T) {
	start, end := 0, 16
	result := &model.ExtractionResult{
		RecordID: "rec-1",
		Triples: []model.Triple{
			{Head: "Alice", Relation: "knows", Tail: "Bob", Inference: model.InferenceExplicit, CharStart: &start, CharEnd: &end},
			{Head: "Bob", Relation: "met", Tail: "Carol", Inference: model.InferenceContextual, Justification: "bridge", IterationSource: 1},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteGraphML(&buf, result))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `<graphml xmlns="http://graphml.graphdrawing.org/xmlns">`)
	assert.Contains(t, out, `edgedefault="directed"`)
	assert.Contains(t, out, `id="rec-1"`)
	assert.Contains(t, out, `<data key="relation">knows</data>`)
	assert.Contains(t, out, `<data key="justification">bridge</data>`)
	assert.Contains(t, out, `<data key="char_start">0</data>`)
	assert.Equal(t, 3, strings.Count(out, "<node "))
	assert.Equal(t, 2, strings.Count(out, "<edge "))
}
