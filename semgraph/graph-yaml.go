package semgraph

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// GraphDoc is the YAML form of a graph.  Either Text (compact bracket form) or Tokens/Edges is given.
type GraphDoc struct {
	Text   string     `yaml:"text,omitempty"`
	Tokens []TokenDoc `yaml:"tokens,omitempty"`
	Edges  []EdgeDoc  `yaml:"edges,omitempty"`
	Roots  []int      `yaml:"roots,omitempty"`
}

type TokenDoc struct {
	Index int               `yaml:"index"`
	Word  string            `yaml:"word"`
	Lemma string            `yaml:"lemma,omitempty"`
	Tag   string            `yaml:"tag,omitempty"`
	NER   string            `yaml:"ner,omitempty"`
	Attrs map[string]string `yaml:"attrs,omitempty"`
}

type EdgeDoc struct {
	Gov  int    `yaml:"gov"`
	Dep  int    `yaml:"dep"`
	Reln string `yaml:"reln"`
}

// ReadYAML reads every graph from a YAML stream.  Each document holds either one graph or a list of graphs.
func ReadYAML(r io.Reader) ([]*Graph, error) {
	dec := yaml.NewDecoder(r)

	var graphs []*Graph
	for docNum := 1; ; docNum++ {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "yaml document #%d", docNum)
		}
		if len(doc.Content) == 0 {
			continue
		}

		var defs []GraphDoc
		body := doc.Content[0]
		switch body.Kind {
		case yaml.SequenceNode:
			err = body.Decode(&defs)
		default:
			var def GraphDoc
			err = body.Decode(&def)
			defs = append(defs, def)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "yaml document #%d", docNum)
		}

		for i := range defs {
			g, err := defs[i].Build()
			if err != nil {
				return nil, errors.Wrapf(err, "yaml document #%d, graph #%d", docNum, i+1)
			}
			graphs = append(graphs, g)
		}
	}
	return graphs, nil
}

// ReadYAMLFile reads every graph from the given YAML file.
func ReadYAMLFile(pathname string) ([]*Graph, error) {
	file, err := os.Open(pathname)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadYAML(file)
}

// Build constructs the Graph described by this doc.
func (doc *GraphDoc) Build() (*Graph, error) {
	if doc.Text != "" {
		return Parse(doc.Text)
	}
	if len(doc.Tokens) == 0 {
		return nil, ErrEmptyGraph
	}

	g := New()
	for _, tok := range doc.Tokens {
		if tok.Index < 1 {
			return nil, errors.Wrapf(ErrBadToken, "token %q: index must be >= 1", tok.Word)
		}
		n := NewNode(tok.Index, tok.Word)
		for key, val := range tok.Attrs {
			n.SetAttr(key, val)
		}
		if tok.Lemma != "" {
			n.SetAttr(AttrLemma, tok.Lemma)
		}
		if tok.Tag != "" {
			n.SetAttr(AttrTag, tok.Tag)
		}
		if tok.NER != "" {
			n.SetAttr(AttrNER, tok.NER)
		}
		if err := g.AddVertex(n); err != nil {
			return nil, err
		}
	}

	for _, e := range doc.Edges {
		gov := g.VertexByIndex(e.Gov)
		dep := g.VertexByIndex(e.Dep)
		if gov == nil || dep == nil {
			return nil, errors.Wrapf(ErrBadEdge, "%d -%s-> %d references a missing token", e.Gov, e.Reln, e.Dep)
		}
		if _, err := g.AddEdge(gov, dep, e.Reln); err != nil {
			return nil, err
		}
	}

	for _, idx := range doc.Roots {
		root := g.VertexByIndex(idx)
		if root == nil {
			return nil, errors.Wrapf(ErrNotVertex, "root index %d", idx)
		}
		if err := g.AddRoot(root); err != nil {
			return nil, err
		}
	}
	return g, nil
}
