package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FabioYanezRomero/kg-constructor/internal/domain"
	"github.com/FabioYanezRomero/kg-constructor/internal/model"
	"github.com/FabioYanezRomero/kg-constructor/pkg/llm"
)

const testExamples = `[
  {
    "text": "John Smith works at Acme Corp.",
    "extractions": [
      {"head": "John Smith", "relation": "works_at", "tail": "Acme Corp", "inference": "explicit"}
    ]
  }
]`

// testBundle writes a minimal valid domain under a temp dir and returns it.
func testBundle(t *testing.T) *domain.Bundle {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "testdomain")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "extraction"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extraction", "prompt_open.txt"), []byte("Extract all triples.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extraction", "examples.json"), []byte(testExamples), 0o644))
	return domain.NewBundle("testdomain", dir)
}

// testRegistry writes the same domain under a registry root.
func testRegistry(t *testing.T) *domain.Registry {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "testdomain")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "extraction"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extraction", "prompt_open.txt"), []byte("Extract all triples.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extraction", "examples.json"), []byte(testExamples), 0o644))
	return domain.NewRegistry(root)
}

func testOptions() Options {
	return Options{
		Domain:          "testdomain",
		Mode:            model.ModeOpen,
		MaxDisconnected: 1,
		MaxIterations:   3,
	}
}

func rawItem(head, relation, tail string) llm.RawItem {
	return llm.RawItem{Head: head, Relation: relation, Tail: tail}
}

func bridgeItem(head, relation, tail string) llm.RawItem {
	return llm.RawItem{Head: head, Relation: relation, Tail: tail, Justification: "implied by shared context"}
}

func initialTriples(pairs ...[3]string) []model.Triple {
	out := make([]model.Triple, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, model.Triple{Head: p[0], Relation: p[1], Tail: p[2], Inference: model.InferenceExplicit})
	}
	return out
}
