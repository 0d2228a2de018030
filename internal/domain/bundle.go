// Package domain loads per-domain extraction resources: prompts, few-shot
// examples, and an optional type schema. Resources are discovered lazily on
// first access, validated once, and immutable for the process lifetime, so
// concurrent readers need no synchronization after load.
//
// Layout under the registry root:
//
//	<name>/
//	  extraction/prompt_open.txt
//	  extraction/prompt_constrained.txt   (optional)
//	  extraction/examples.json
//	  bridging/prompt.txt                 (optional; compiled-in default)
//	  schema.json                         (optional)
package domain

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/FabioYanezRomero/kg-constructor/internal/model"
)

// ExampleExtraction is one expected output item of a few-shot example,
// optionally grounded in the example text.
type ExampleExtraction struct {
	ExtractionText string `json:"extraction_text,omitempty"`
	CharStart      *int   `json:"char_start,omitempty"`
	CharEnd        *int   `json:"char_end,omitempty"`
	Head           string `json:"head"`
	Relation       string `json:"relation"`
	Tail           string `json:"tail"`
	Inference      string `json:"inference,omitempty"`
	Justification  string `json:"justification,omitempty"`
}

// FewShotExample pairs a source span with the items the model should emit.
type FewShotExample struct {
	Text        string              `json:"text"`
	Extractions []ExampleExtraction `json:"extractions"`
}

// Schema constrains entity and relation labels for the constrained mode.
type Schema struct {
	EntityTypes   []string `json:"entity_types"`
	RelationTypes []string `json:"relation_types"`
}

// The bridging prompt must carry all three substitution sites.
var bridgingSites = []string{"{num_components}", "{component_info}", "{text}"}

// DefaultBridgingPrompt is the compiled-in bridging prompt, used when the
// domain ships no bridging/prompt.txt. A domain-provided file wins.
const DefaultBridgingPrompt = `The previously extracted knowledge graph has {num_components} disconnected components.

Disconnected Components:
{component_info}

Original Text:
{text}

Task: Find EXPLICIT relationships in the text that connect these components,
or infer MINIMAL contextual triples necessary for connectivity. Focus on:
1. Shared entities between components
2. Implicit relationships stated in the text
3. Temporal or causal connections
4. Hierarchical relationships (part-of, type-of)

Extract ONLY the bridging triples needed to connect components.
Do not re-extract existing triples.`

// lazy caches a single resource load.
type lazy[T any] struct {
	once sync.Once
	val  T
	err  error
}

func (l *lazy[T]) get(load func() (T, error)) (T, error) {
	l.once.Do(func() {
		l.val, l.err = load()
	})
	return l.val, l.err
}

// Bundle exposes one domain's resources. Read-only; the pipeline never
// writes domain resources.
type Bundle struct {
	name string
	root string

	openPrompt        lazy[string]
	constrainedPrompt lazy[string]
	bridgingPrompt    lazy[string]
	examples          lazy[[]FewShotExample]
	schema            lazy[*Schema]
}

// NewBundle creates a bundle rooted at dir. Nothing is read until first
// access.
func NewBundle(name, dir string) *Bundle {
	return &Bundle{name: name, root: dir}
}

// Name returns the domain identifier.
func (b *Bundle) Name() string { return b.name }

// Prompt returns the extraction prompt for the requested mode. Missing
// prompts are a ResourceError.
func (b *Bundle) Prompt(mode model.ExtractionMode) (string, error) {
	switch mode {
	case model.ModeOpen:
		return b.openPrompt.get(func() (string, error) {
			return b.loadPrompt(filepath.Join(b.root, "extraction", "prompt_open.txt"))
		})
	case model.ModeConstrained:
		return b.constrainedPrompt.get(func() (string, error) {
			return b.loadPrompt(filepath.Join(b.root, "extraction", "prompt_constrained.txt"))
		})
	default:
		return "", resourceErr(b.name, "", "unknown extraction mode "+string(mode), nil)
	}
}

// PromptID names the prompt resource for audit metadata, e.g. "legal/open".
func (b *Bundle) PromptID(mode model.ExtractionMode) string {
	return b.name + "/" + string(mode)
}

// BridgingPromptID names the bridging prompt resource for audit metadata.
func (b *Bundle) BridgingPromptID() string {
	if _, err := os.Stat(filepath.Join(b.root, "bridging", "prompt.txt")); err == nil {
		return b.name + "/bridging"
	}
	return "builtin/bridging"
}

func (b *Bundle) loadPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", resourceErr(b.name, path, "extraction prompt not found", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", resourceErr(b.name, path, "extraction prompt is empty", nil)
	}
	return prompt, nil
}

// BridgingPrompt returns the refinement prompt. A domain-provided file takes
// precedence over the compiled-in default; either way all three substitution
// sites must be present.
func (b *Bundle) BridgingPrompt() (string, error) {
	return b.bridgingPrompt.get(func() (string, error) {
		path := filepath.Join(b.root, "bridging", "prompt.txt")
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return DefaultBridgingPrompt, nil
		}
		if err != nil {
			return "", resourceErr(b.name, path, "bridging prompt unreadable", err)
		}
		prompt := strings.TrimSpace(string(data))
		for _, site := range bridgingSites {
			if !strings.Contains(prompt, site) {
				return "", resourceErr(b.name, path, "bridging prompt is missing substitution site "+site, nil)
			}
		}
		return prompt, nil
	})
}

// Examples returns the domain's few-shot examples, validated on first read.
func (b *Bundle) Examples() ([]FewShotExample, error) {
	return b.examples.get(func() ([]FewShotExample, error) {
		path := filepath.Join(b.root, "extraction", "examples.json")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, resourceErr(b.name, path, "examples not found", err)
		}
		var examples []FewShotExample
		if err := json.Unmarshal(data, &examples); err != nil {
			return nil, resourceErr(b.name, path, "examples are not valid JSON", err)
		}
		for _, ex := range examples {
			if strings.TrimSpace(ex.Text) == "" {
				return nil, resourceErr(b.name, path, "example has empty text", nil)
			}
			for _, item := range ex.Extractions {
				if item.Head == "" || item.Relation == "" || item.Tail == "" {
					return nil, resourceErr(b.name, path, "example extraction has empty head/relation/tail", nil)
				}
			}
		}
		return examples, nil
	})
}

// Schema returns the optional type schema, or nil when the domain has none.
func (b *Bundle) Schema() (*Schema, error) {
	return b.schema.get(func() (*Schema, error) {
		path := filepath.Join(b.root, "schema.json")
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, nil
		}
		if err != nil {
			return nil, resourceErr(b.name, path, "schema unreadable", err)
		}
		var s Schema
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, resourceErr(b.name, path, "schema is not valid JSON", err)
		}
		return &s, nil
	})
}

// RenderBridging substitutes the three sites into the bridging prompt.
// Substitution is literal; no expression language.
func RenderBridging(prompt string, numComponents int, componentInfo, text string) string {
	r := strings.NewReplacer(
		"{num_components}", strconv.Itoa(numComponents),
		"{component_info}", componentInfo,
		"{text}", text,
	)
	return r.Replace(prompt)
}
