package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, Normalize("  Alice  "), Normalize("alice"))
	assert.Equal(t, Normalize("STRASSE"), Normalize("strasse"))
	// Case folding, not lowercasing: ß folds to ss.
	assert.Equal(t, Normalize("straße"), Normalize("STRASSE"))
	assert.Equal(t, "", Normalize("   "))
}

func TestTripleKey_IgnoresProvenance(t *testing.T) {
	start, end := 0, 5
	a := Triple{Head: "Alice", Relation: "knows", Tail: "Bob", Inference: InferenceExplicit, CharStart: &start, CharEnd: &end, IterationSource: 0}
	b := Triple{Head: " alice ", Relation: "KNOWS", Tail: "bob", Inference: InferenceContextual, Justification: "inferred", IterationSource: 2}

	assert.Equal(t, a.Key(), b.Key())
}

func TestTripleKey_DistinguishesContent(t *testing.T) {
	a := Triple{Head: "Alice", Relation: "knows", Tail: "Bob"}
	b := Triple{Head: "Alice", Relation: "met", Tail: "Bob"}
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestTriple_Grounded(t *testing.T) {
	start, end := 3, 9
	assert.False(t, Triple{}.Grounded())
	assert.False(t, Triple{CharStart: &start}.Grounded())
	assert.True(t, Triple{CharStart: &start, CharEnd: &end}.Grounded())
}

func TestTriple_JSONRoundTrip(t *testing.T) {
	start, end := 0, 16
	in := []Triple{
		{Head: "Alice", Relation: "knows", Tail: "Bob", Inference: InferenceExplicit, CharStart: &start, CharEnd: &end, ExtractionText: "Alice knows Bob.", IterationSource: 0},
		{Head: "Bob", Relation: "met", Tail: "Carol", Inference: InferenceContextual, Justification: "both mentioned in the same sentence", IterationSource: 1},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out []Triple
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, len(in))

	// Serialization preserves identity.
	for i := range in {
		assert.Equal(t, in[i].Key(), out[i].Key())
	}
	assert.Equal(t, in, out)

	// Optional fields stay absent on the wire when unset.
	single, err := json.Marshal(in[1])
	require.NoError(t, err)
	assert.NotContains(t, string(single), "char_start")
	assert.NotContains(t, string(single), "extraction_text")
}

func TestInferenceType_Valid(t *testing.T) {
	assert.True(t, InferenceExplicit.Valid())
	assert.True(t, InferenceContextual.Valid())
	assert.False(t, InferenceType("augmented").Valid())
	assert.False(t, InferenceType("").Valid())
}
