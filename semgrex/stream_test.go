package semgrex

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/2x3systems/semgrex/semgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamPatterns() []*Pattern {
	return []*Pattern{
		MustCompile("{}=d <nsubj {}=g"),
		MustCompile("{tag:/NN.*/}=n"),
	}
}

func TestBatch(t *testing.T) {
	g1 := semgraph.MustParse(muffinsText)
	g2 := semgraph.MustParse(sawText)

	stream := Batch(context.Background(), streamPatterns(), []*semgraph.Graph{g1, g2}, BatchOpts{Workers: 1})
	results := stream.Results()
	require.NoError(t, stream.Err())

	// g1: one subject, three nouns; g2: one subject, no tags
	require.Len(t, results, 5)
	assert.Equal(t, "Bill", results[0].Match.Word)
	assert.Equal(t, "ate", results[0].Nodes["g"].Word)
	assert.Equal(t, 0, results[0].GraphNum)
	assert.Equal(t, "I", results[4].Match.Word)
	assert.Equal(t, 1, results[4].GraphNum)
	assert.Equal(t, g2, results[4].Graph)
}

func TestBatchOptions(t *testing.T) {
	g := semgraph.MustParse(muffinsText)
	graphs := []*semgraph.Graph{g, g, g}

	first := Batch(context.Background(), streamPatterns(), graphs, BatchOpts{Workers: 3, FirstOnly: true})
	assert.Equal(t, 6, first.PullAll())
	assert.NoError(t, first.Err())

	unique := Batch(context.Background(), []*Pattern{MustCompile("{}=a >> {}")}, graphs[:1], BatchOpts{UniqueNodes: true})
	assert.Equal(t, 2, unique.PullAll())

	folded := Batch(context.Background(), []*Pattern{MustCompile("{word:bill}")}, graphs[:1], BatchOpts{
		MatchOpts: []MatchOpt{IgnoreCase()},
	})
	assert.Equal(t, 1, folded.PullAll())
}

func TestBatchNilGraph(t *testing.T) {
	stream := Batch(context.Background(), streamPatterns(), []*semgraph.Graph{nil}, BatchOpts{})
	stream.PullAll()
	assert.ErrorIs(t, stream.Err(), ErrNilGraph)
}

func TestBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := semgraph.MustParse(muffinsText)
	stream := Batch(ctx, streamPatterns(), []*semgraph.Graph{g, g}, BatchOpts{Workers: 2})
	stream.PullAll()
	assert.ErrorIs(t, stream.Err(), context.Canceled)
}

func TestDropDupesAndPrint(t *testing.T) {
	g := semgraph.MustParse(muffinsText)
	graphs := []*semgraph.Graph{g, g}

	var out bytes.Buffer
	stream := Batch(context.Background(), streamPatterns(), graphs, BatchOpts{Workers: 2}).
		DropDupes().
		Print(&out, PrintOpts{Label: "t", WithGraph: true})

	assert.Equal(t, 4, stream.PullAll())
	assert.NoError(t, stream.Err())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "t,00000"), line)
		assert.True(t, strings.HasSuffix(line, muffinsText), line)
	}
}

func TestMatchSet(t *testing.T) {
	g := semgraph.MustParse(sawText)
	m := MustCompile("{word:saw}=v >nsubj {}=s").Matcher(g)
	require.True(t, m.Find())

	r := Snapshot(m)
	assert.Equal(t, "saw-3 s=I-1 v=saw-3", r.String())

	set := NewMatchSet()
	defer set.Close()
	assert.True(t, set.TryAdd(r))
	assert.False(t, set.TryAdd(Snapshot(m)))

	other := semgraph.MustParse(sawText)
	m2 := MustCompile("{word:saw}=v >nsubj {}=s").Matcher(other)
	require.True(t, m2.Find())
	assert.True(t, set.TryAdd(Snapshot(m2)))
}
