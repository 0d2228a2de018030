package export

import (
	"encoding/xml"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/FabioYanezRomero/kg-constructor/internal/model"
)

// GraphML key declarations for node and edge attributes.
var graphmlKeys = []graphmlKey{
	{ID: "name", For: "node", AttrName: "name", AttrType: "string"},
	{ID: "relation", For: "edge", AttrName: "relation", AttrType: "string"},
	{ID: "inference", For: "edge", AttrName: "inference", AttrType: "string"},
	{ID: "justification", For: "edge", AttrName: "justification", AttrType: "string"},
	{ID: "iteration_source", For: "edge", AttrName: "iteration_source", AttrType: "int"},
	{ID: "char_start", For: "edge", AttrName: "char_start", AttrType: "int"},
	{ID: "char_end", For: "edge", AttrName: "char_end", AttrType: "int"},
}

type graphmlKey struct {
	XMLName  xml.Name `xml:"key"`
	ID       string   `xml:"id,attr"`
	For      string   `xml:"for,attr"`
	AttrName string   `xml:"attr.name,attr"`
	AttrType string   `xml:"attr.type,attr"`
}

type graphmlData struct {
	XMLName xml.Name `xml:"data"`
	Key     string   `xml:"key,attr"`
	Value   string   `xml:",chardata"`
}

type graphmlNode struct {
	XMLName xml.Name      `xml:"node"`
	ID      string        `xml:"id,attr"`
	Data    []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	XMLName xml.Name      `xml:"edge"`
	Source  string        `xml:"source,attr"`
	Target  string        `xml:"target,attr"`
	Data    []graphmlData `xml:"data"`
}

type graphmlGraph struct {
	XMLName     xml.Name      `xml:"graph"`
	ID          string        `xml:"id,attr"`
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	XMLNS   string       `xml:"xmlns,attr"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

// WriteGraphML writes the result's triples as a directed GraphML document.
func WriteGraphML(w io.Writer, result *model.ExtractionResult) error {
	graphDoc := BuildGraphDoc(result.Triples)

	doc := graphmlDoc{
		XMLNS: "http://graphml.graphdrawing.org/xmlns",
		Keys:  graphmlKeys,
		Graph: graphmlGraph{
			ID:          result.RecordID,
			EdgeDefault: "directed",
		},
	}

	for _, n := range graphDoc.Nodes {
		name, _ := n.Properties["name"].(string)
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphmlNode{
			ID:   n.ID,
			Data: []graphmlData{{Key: "name", Value: name}},
		})
	}

	for _, e := range graphDoc.Edges {
		data := []graphmlData{{Key: "relation", Value: e.Type}}
		if v, ok := e.Properties["inference"].(string); ok {
			data = append(data, graphmlData{Key: "inference", Value: v})
		}
		if v, ok := e.Properties["justification"].(string); ok {
			data = append(data, graphmlData{Key: "justification", Value: v})
		}
		if v, ok := e.Properties["iteration_source"].(int); ok {
			data = append(data, graphmlData{Key: "iteration_source", Value: strconv.Itoa(v)})
		}
		if v, ok := e.Properties["char_start"].(int); ok {
			data = append(data, graphmlData{Key: "char_start", Value: strconv.Itoa(v)})
		}
		if v, ok := e.Properties["char_end"].(int); ok {
			data = append(data, graphmlData{Key: "char_end", Value: strconv.Itoa(v)})
		}
		doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{
			Source: e.Source,
			Target: e.Target,
			Data:   data,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return eris.Wrap(err, "export: write graphml header")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "export: encode graphml")
	}
	return nil
}
