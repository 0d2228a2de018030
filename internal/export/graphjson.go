// Package export transcribes extraction results into serialized graph
// formats: a canonical JSON graph document and GraphML. Entity names are
// canonicalized case-insensitively so case variants do not split nodes.
package export

import (
	"encoding/json"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/FabioYanezRomero/kg-constructor/internal/model"
)

// GraphNode is one entity in the canonical graph document.
type GraphNode struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// GraphEdge is one relation in the canonical graph document.
type GraphEdge struct {
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// GraphDoc is the canonical {nodes, edges} structure.
type GraphDoc struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

var slugPattern = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)
var slugDashes = regexp.MustCompile(`-+`)

// Slugify produces a filesystem- and identifier-friendly node id.
func Slugify(value string) string {
	token := slugPattern.ReplaceAllString(strings.TrimSpace(value), "-")
	token = slugDashes.ReplaceAllString(token, "-")
	token = strings.Trim(token, "-")
	if token == "" {
		return "entity"
	}
	return token
}

// BuildGraphDoc converts triples to the canonical graph document. Entities
// are merged case-insensitively; the first-seen spelling is canonical.
func BuildGraphDoc(triples []model.Triple) GraphDoc {
	doc := GraphDoc{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	canonical := make(map[string]string) // folded name → canonical spelling
	nodeIDs := make(map[string]string)   // canonical spelling → slug id
	usedIDs := make(map[string]bool)

	canonicalize := func(name string) string {
		trimmed := strings.TrimSpace(name)
		key := model.Normalize(trimmed)
		if c, ok := canonical[key]; ok {
			return c
		}
		canonical[key] = trimmed
		return trimmed
	}

	addNode := func(name string) string {
		if id, ok := nodeIDs[name]; ok {
			return id
		}
		id := Slugify(name)
		// Disambiguate slug collisions between distinct entities.
		base := id
		for n := 2; usedIDs[id]; n++ {
			id = base + "-" + strconv.Itoa(n)
		}
		usedIDs[id] = true
		nodeIDs[name] = id
		doc.Nodes = append(doc.Nodes, GraphNode{
			ID:         id,
			Type:       "entity",
			Properties: map[string]any{"name": name},
		})
		return id
	}

	for _, t := range triples {
		head := canonicalize(t.Head)
		tail := canonicalize(t.Tail)
		if head == "" || tail == "" {
			continue
		}
		sourceID := addNode(head)
		targetID := addNode(tail)

		props := map[string]any{
			"inference":        string(t.Inference),
			"iteration_source": t.IterationSource,
		}
		if t.Justification != "" {
			props["justification"] = t.Justification
		}
		if t.Grounded() {
			props["char_start"] = *t.CharStart
			props["char_end"] = *t.CharEnd
		}
		if t.ExtractionText != "" {
			props["extraction_text"] = t.ExtractionText
		}

		relation := t.Relation
		if strings.TrimSpace(relation) == "" {
			relation = "related_to"
		}

		doc.Edges = append(doc.Edges, GraphEdge{
			Source:     sourceID,
			Target:     targetID,
			Type:       relation,
			Properties: props,
		})
	}

	return doc
}

// WriteGraphJSON writes the canonical graph document for a result.
func WriteGraphJSON(w io.Writer, result *model.ExtractionResult) error {
	doc := BuildGraphDoc(result.Triples)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "export: encode graph json")
	}
	return nil
}
