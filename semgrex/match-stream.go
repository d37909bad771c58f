package semgrex

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/2x3systems/semgrex/semgraph"
	"github.com/plan-systems/klog"
	"golang.org/x/sync/errgroup"
)

// MatchResult is a snapshot of one match: what matched where, and every name it bound.
type MatchResult struct {
	Pattern  *Pattern
	Graph    *semgraph.Graph
	GraphNum int // position of Graph in the batch input
	Match    *semgraph.Node
	Nodes    map[string]*semgraph.Node
	Relns    map[string]string
}

// Snapshot captures the current match of m.
func Snapshot(m *Matcher) *MatchResult {
	r := &MatchResult{
		Pattern: m.pattern,
		Graph:   m.anchorG,
		Match:   m.Match(),
		Nodes:   make(map[string]*semgraph.Node, len(m.st.env.nodes)),
		Relns:   make(map[string]string, len(m.st.env.relns)),
	}
	for name, n := range m.st.env.nodes {
		r.Nodes[name] = n
	}
	for name, label := range m.st.env.relns {
		r.Relns[name] = label
	}
	return r
}

// Signature identifies a match by pattern, graph, matched node, and named bindings.
func (r *MatchResult) Signature() []byte {
	b := strings.Builder{}
	b.WriteString(r.Pattern.text)
	b.WriteByte(0)
	b.WriteString(r.Graph.ID.String())
	b.WriteByte(0)
	r.writeBindings(&b)
	return []byte(b.String())
}

func (r *MatchResult) writeBindings(b *strings.Builder) {
	if r.Match != nil {
		b.WriteString(r.Match.String())
	}

	names := make([]string, 0, len(r.Nodes))
	for name := range r.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(b, " %s=%v", name, r.Nodes[name])
	}

	names = names[:0]
	for name := range r.Relns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(b, " %s=%s", name, r.Relns[name])
	}
}

func (r *MatchResult) String() string {
	b := strings.Builder{}
	r.writeBindings(&b)
	return b.String()
}

// MatchStream is a pipeline stage of match results.  Every stage closes its Outlet when its input is drained.
type MatchStream struct {
	Outlet chan *MatchResult
	err    error
}

func NewMatchStream() *MatchStream {
	return &MatchStream{
		Outlet: make(chan *MatchResult, 1),
	}
}

func (stream *MatchStream) Close() {
	if stream.Outlet != nil {
		close(stream.Outlet)
	}
}

// Err returns the error that ended the stream, valid once Outlet is drained.
func (stream *MatchStream) Err() error {
	return stream.err
}

// PullAll drains the stream, returning the number of results.
func (stream *MatchStream) PullAll() int {
	count := 0
	for range stream.Outlet {
		count++
	}
	return count
}

// Results drains the stream into a slice.
func (stream *MatchStream) Results() []*MatchResult {
	var results []*MatchResult
	for r := range stream.Outlet {
		results = append(results, r)
	}
	return results
}

// next starts a stage reading from stream; the error of stream carries over.
func (stream *MatchStream) next(stage func(next *MatchStream)) *MatchStream {
	next := NewMatchStream()
	go func() {
		stage(next)
		next.err = stream.err
		next.Close()
	}()
	return next
}

type PrintOpts struct {
	Label     string // prefixed to every line
	WithGraph bool   // append the graph in compact form
}

// Print writes one line per result and passes the result along.
func (stream *MatchStream) Print(out io.Writer, opts PrintOpts) *MatchStream {
	return stream.next(func(next *MatchStream) {
		buf := strings.Builder{}
		buf.Grow(256)

		count := 0
		for r := range stream.Outlet {
			count++
			if len(opts.Label) > 0 {
				buf.WriteString(opts.Label)
				buf.WriteByte(',')
			}
			fmt.Fprintf(&buf, "%06d,%d,", count, r.GraphNum)
			r.writeBindings(&buf)
			if opts.WithGraph {
				buf.WriteString(",")
				r.Graph.WriteCompact(&buf)
			}
			buf.WriteByte('\n')
			out.Write([]byte(buf.String()))
			buf.Reset()
			next.Outlet <- r
		}
	})
}

// DropDupes passes along only results whose signature has not been seen in this stream.
func (stream *MatchStream) DropDupes() *MatchStream {
	return stream.next(func(next *MatchStream) {
		seen := NewMatchSet()
		defer seen.Close()

		for r := range stream.Outlet {
			if seen.TryAdd(r) {
				next.Outlet <- r
			}
		}
	})
}

// OnClose passes every result along and calls onClose once the stream is drained.
func (stream *MatchStream) OnClose(onClose func()) *MatchStream {
	return stream.next(func(next *MatchStream) {
		for r := range stream.Outlet {
			next.Outlet <- r
		}
		onClose()
	})
}

type BatchOpts struct {
	Workers     int  // graphs searched concurrently; <= 0 means 1
	FirstOnly   bool // at most one match per pattern per graph
	UniqueNodes bool // use FindNextMatchingNode
	MatchOpts   []MatchOpt
}

// Batch runs every pattern over every graph, spreading graphs over a pool of workers.
//
// Results of one graph appear in pattern order; graphs are interleaved when Workers > 1.
// Canceling ctx stops the batch, and Err() reports the cancellation.
func Batch(ctx context.Context, patterns []*Pattern, graphs []*semgraph.Graph, opts BatchOpts) *MatchStream {
	stream := NewMatchStream()

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	go func() {
		grp, grpCtx := errgroup.WithContext(ctx)
		grp.SetLimit(workers)

		for i, g := range graphs {
			if grpCtx.Err() != nil {
				break
			}
			graphNum, g := i, g
			grp.Go(func() error {
				return searchGraph(grpCtx, patterns, g, graphNum, opts, stream.Outlet)
			})
		}

		stream.err = grp.Wait()
		if stream.err == nil {
			stream.err = ctx.Err()
		}
		klog.V(2).Infof("batch: %d patterns over %d graphs, err=%v", len(patterns), len(graphs), stream.err)
		stream.Close()
	}()

	return stream
}

func searchGraph(ctx context.Context, patterns []*Pattern, g *semgraph.Graph, graphNum int, opts BatchOpts, outlet chan<- *MatchResult) error {
	if g == nil {
		return ErrNilGraph
	}
	batchGraphs.Inc()

	for _, pat := range patterns {
		m := pat.Matcher(g, opts.MatchOpts...)
		for {
			var found bool
			if opts.UniqueNodes {
				found = m.FindNextMatchingNode()
			} else {
				found = m.Find()
			}
			if !found {
				break
			}

			r := Snapshot(m)
			r.GraphNum = graphNum
			select {
			case outlet <- r:
			case <-ctx.Done():
				return ctx.Err()
			}
			if opts.FirstOnly {
				break
			}
		}
	}
	return nil
}
