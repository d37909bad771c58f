// Package pysemgrex exposes semgraph and semgrex to embedded python scripts as the module "_semgrex".
package pysemgrex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/2x3systems/semgrex/semgraph"
	"github.com/2x3systems/semgrex/semgrex"
	"github.com/go-python/gpython/py"
)

var (
	LIB_VERSION = "v1.2026.1"
)

var (
	pyGraphType       = py.NewType("Graph", "a dependency graph of words joined by labeled relations")
	pyPatternType     = py.NewType("Pattern", "a compiled semgrex pattern")
	pyMatchStreamType = py.NewType("MatchStream", "semgrex.MatchStream")
)

type pyGraph struct {
	*semgraph.Graph
}

func (X pyGraph) Type() *py.Type {
	return pyGraphType
}

func (X pyGraph) M__str__() (py.Object, error) {
	return py.String(X.String()), nil
}

func (X pyGraph) M__repr__() (py.Object, error) {
	return X.M__str__()
}

type pyPattern struct {
	*semgrex.Pattern
}

func (pat pyPattern) Type() *py.Type {
	return pyPatternType
}

func (pat pyPattern) M__str__() (py.Object, error) {
	return py.String(pat.String()), nil
}

func (pat pyPattern) M__repr__() (py.Object, error) {
	return py.String(fmt.Sprintf("Pattern(%q)", pat.String())), nil
}

type matchStream struct {
	*semgrex.MatchStream
}

func (stream matchStream) Type() *py.Type {
	return pyMatchStreamType
}

func wrapMatchStream(stream *semgrex.MatchStream) py.Object {
	return py.Object(matchStream{stream})
}

func getGraph(obj py.Object) (X pyGraph, err error) {
	switch v := obj.(type) {
	case pyGraph:
		return v, nil
	case py.String:
		var g *semgraph.Graph
		g, err = semgraph.Parse(string(v))
		if err != nil {
			err = py.ExceptionNewf(py.ValueError, "%v", err)
			return
		}
		return pyGraph{g}, nil
	}
	err = py.ExceptionNewf(py.TypeError, "expected Graph object (got %v)", obj.Type().Name)
	return
}

// getGraphs accepts a Graph, graph text, or a list/tuple of either.
func getGraphs(obj py.Object) ([]*semgraph.Graph, error) {
	var items py.Tuple
	switch v := obj.(type) {
	case py.Tuple:
		items = v
	case *py.List:
		items = v.Items
	default:
		items = py.Tuple{obj}
	}

	graphs := make([]*semgraph.Graph, 0, len(items))
	for _, item := range items {
		X, err := getGraph(item)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, X.Graph)
	}
	return graphs, nil
}

// Arg 1 (str): pattern text
func py_Compile(module py.Object, args py.Tuple) (py.Object, error) {
	var text string
	err := py.LoadTuple(args, []interface{}{&text})
	if err != nil {
		return nil, err
	}
	pat, err := semgrex.Compile(text)
	if err != nil {
		return nil, py.ExceptionNewf(py.SyntaxError, "%v", err)
	}
	return py.Object(pyPattern{pat}), nil
}

// Arg 1 (str): graph in compact bracket form
func py_ParseGraph(module py.Object, args py.Tuple) (py.Object, error) {
	var text string
	err := py.LoadTuple(args, []interface{}{&text})
	if err != nil {
		return nil, err
	}
	g, err := semgraph.Parse(text)
	if err != nil {
		return nil, py.ExceptionNewf(py.ValueError, "%v", err)
	}
	return py.Object(pyGraph{g}), nil
}

// Arg 1 (str): pathname of a YAML graph file
func py_LoadGraphs(module py.Object, args py.Tuple) (py.Object, error) {
	var pathname string
	err := py.LoadTuple(args, []interface{}{&pathname})
	if err != nil {
		return nil, err
	}
	graphs, err := semgraph.ReadYAMLFile(pathname)
	if err != nil {
		return nil, py.ExceptionNewf(py.FileNotFoundError, "%v", err)
	}
	items := make(py.Tuple, len(graphs))
	for i, g := range graphs {
		items[i] = pyGraph{g}
	}
	return py.NewListFromItems(items), nil
}

func py_Graph_NumVerts(self py.Object, args py.Tuple) (py.Object, error) {
	X := self.(pyGraph)
	return py.Object(py.Int(X.VertexCount())), nil
}

func py_Graph_NumEdges(self py.Object, args py.Tuple) (py.Object, error) {
	X := self.(pyGraph)
	return py.Object(py.Int(X.EdgeCount())), nil
}

func py_Pattern_Matches(self py.Object, args py.Tuple) (py.Object, error) {
	pat := self.(pyPattern)
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "Matches() takes exactly one graph")
	}
	X, err := getGraph(args[0])
	if err != nil {
		return nil, err
	}
	return py.NewBool(pat.Matcher(X.Graph).Find()), nil
}

// FindAll returns one dict per match: each bound name maps to "word-index", and "$match" to the matched node.
func py_Pattern_FindAll(self py.Object, args py.Tuple) (py.Object, error) {
	pat := self.(pyPattern)
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "FindAll() takes exactly one graph")
	}
	X, err := getGraph(args[0])
	if err != nil {
		return nil, err
	}

	var found py.Tuple
	m := pat.Matcher(X.Graph)
	for m.Find() {
		found = append(found, exportMatch(semgrex.Snapshot(m)))
	}
	return py.NewListFromItems(found), nil
}

func exportMatch(r *semgrex.MatchResult) py.StringDict {
	dict := py.NewStringDict()
	dict["$match"] = py.String(r.Match.String())
	for name, n := range r.Nodes {
		dict[name] = py.String(n.String())
	}
	for name, label := range r.Relns {
		dict[name] = py.String(label)
	}
	return dict
}

// Arg 1: Graph, graph text, or a list of either
func py_Pattern_Stream(self py.Object, args py.Tuple, kwargs py.StringDict) (py.Object, error) {
	pat := self.(pyPattern)
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "Stream() takes exactly one graph list")
	}
	graphs, err := getGraphs(args[0])
	if err != nil {
		return nil, err
	}

	var opts semgrex.BatchOpts
	var workers int
	py.LoadAttr(kwargs, "workers", &workers)
	py.LoadAttr(kwargs, "first", &opts.FirstOnly)
	py.LoadAttr(kwargs, "unique_nodes", &opts.UniqueNodes)
	opts.Workers = workers

	var ignoreCase bool
	py.LoadAttr(kwargs, "ignore_case", &ignoreCase)
	if ignoreCase {
		opts.MatchOpts = append(opts.MatchOpts, semgrex.IgnoreCase())
	}

	next := semgrex.Batch(context.Background(), []*semgrex.Pattern{pat.Pattern}, graphs, opts)
	return wrapMatchStream(next), nil
}

func py_MatchStream_Go(self py.Object, args py.Tuple) (py.Object, error) {
	stream := self.(matchStream)
	count := stream.PullAll()
	if err := stream.Err(); err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return py.Int(count), nil
}

func py_MatchStream_DropDupes(self py.Object, args py.Tuple) (py.Object, error) {
	stream := self.(matchStream)
	return wrapMatchStream(stream.DropDupes()), nil
}

func py_MatchStream_Results(self py.Object, args py.Tuple) (py.Object, error) {
	stream := self.(matchStream)
	results := stream.Results()
	if err := stream.Err(); err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	items := make(py.Tuple, len(results))
	for i, r := range results {
		items[i] = exportMatch(r)
	}
	return py.NewListFromItems(items), nil
}

var gOutCount = int32(0)

// Print(label="", graph=False, file="") writes one line per match and passes each match along.
func py_MatchStream_Print(self py.Object, args py.Tuple, kwargs py.StringDict) (py.Object, error) {
	stream := self.(matchStream)
	var pathname string

	var opts semgrex.PrintOpts
	py.LoadTuple(args, []interface{}{&opts.Label})
	if opts.Label == "" {
		py.LoadAttr(kwargs, "label", &opts.Label)
	}

	outNum := atomic.AddInt32(&gOutCount, 1)
	if opts.Label == "" {
		opts.Label = fmt.Sprintf("out[%d]", outNum)
	}

	py.LoadAttr(kwargs, "graph", &opts.WithGraph)
	py.LoadAttr(kwargs, "file", &pathname)

	writer := &echoToWriter{
		stdout: os.Stdout,
	}
	if len(pathname) > 0 {
		os.MkdirAll(filepath.Dir(pathname), 0700)

		file, err := os.OpenFile(pathname, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0600)
		if err != nil {
			return nil, py.ExceptionNewf(py.FileNotFoundError, "%v", err)
		}
		writer.to = file
	}

	next := stream.Print(writer, opts)
	return wrapMatchStream(next.OnClose(writer.Close)), nil
}

func init() {

	/////////////////////////////////
	// Graph
	{
		pyGraphType.Dict["NumVerts"] = py.MustNewMethod("NumVerts", py_Graph_NumVerts, 0, "")
		pyGraphType.Dict["NumEdges"] = py.MustNewMethod("NumEdges", py_Graph_NumEdges, 0, "")
	}

	/////////////////////////////////
	// Pattern
	{
		pyPatternType.Dict["Matches"] = py.MustNewMethod("Matches", py_Pattern_Matches, 0, "reports if the pattern matches at any node of the given graph")
		pyPatternType.Dict["FindAll"] = py.MustNewMethod("FindAll", py_Pattern_FindAll, 0, "returns a dict of bindings for every match in the given graph")
		pyPatternType.Dict["Stream"] = py.MustNewMethod("Stream", py_Pattern_Stream, 0, "searches a list of graphs, returning a MatchStream")
	}

	/////////////////////////////////
	// MatchStream
	{
		pyMatchStreamType.Dict["Go"] = py.MustNewMethod("Go", py_MatchStream_Go, 0, "counts the number of matches output from the MatchStream")
		pyMatchStreamType.Dict["Print"] = py.MustNewMethod("Print", py_MatchStream_Print, 0, "prints each match from the MatchStream")
		pyMatchStreamType.Dict["DropDupes"] = py.MustNewMethod("DropDupes", py_MatchStream_DropDupes, 0, "")
		pyMatchStreamType.Dict["Results"] = py.MustNewMethod("Results", py_MatchStream_Results, 0, "")
	}

	{
		methods := []*py.Method{
			py.MustNewMethod("Compile", py_Compile, 0, ""),
			py.MustNewMethod("ParseGraph", py_ParseGraph, 0, ""),
			py.MustNewMethod("LoadGraphs", py_LoadGraphs, 0, ""),
		}

		globals := py.StringDict{
			"LIB_VERSION": py.String(LIB_VERSION),
		}

		py.RegisterModule(&py.ModuleImpl{
			Info: py.ModuleInfo{
				Name: "_semgrex",
				Doc:  "semgrex dependency graph pattern matching",
			},
			Methods: methods,
			Globals: globals,
		})
	}
}

// echoToWriter writes to stdout unless redirected to a file.
type echoToWriter struct {
	stdout *os.File
	to     *os.File
}

func (echo *echoToWriter) Write(buf []byte) (int, error) {
	if echo.to == nil {
		return echo.stdout.Write(buf)
	}
	return echo.to.Write(buf)
}

func (echo *echoToWriter) Close() {
	if echo.to != nil {
		echo.to.Close()
	}
}
