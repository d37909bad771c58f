package semgrex

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	compileCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "semgrex_pattern_compiles_total",
		Help: "Patterns compiled, by result",
	}, []string{"result"})

	findCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "semgrex_find_calls_total",
		Help: "Calls to Matcher.Find",
	})

	matchCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "semgrex_matches_total",
		Help: "Successful matches",
	})

	anchorsScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "semgrex_anchors_scanned_total",
		Help: "Anchor nodes a Find visited",
	})

	batchGraphs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "semgrex_batch_graphs_total",
		Help: "Graphs searched by Batch",
	})
)
