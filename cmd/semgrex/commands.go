package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/2x3systems/semgrex/semgraph"
	"github.com/2x3systems/semgrex/semgrex"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"
)

var (
	ignoreCase  bool
	firstOnly   bool
	uniqueNodes bool
	dropDupes   bool
	withGraph   bool
	numWorkers  int

	rootCmd = &cobra.Command{
		Use:          "semgrex",
		Short:        "Search dependency graphs with semgrex patterns",
		SilenceUsage: true,
	}

	matchCmd = &cobra.Command{
		Use:   "match PATTERN FILE...",
		Short: "Prints every match of one pattern over the graphs in the given files",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runMatch,
	}

	batchCmd = &cobra.Command{
		Use:   "batch PATTERN_FILE FILE...",
		Short: "Runs every pattern of a batch file over the graphs in the given files",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runBatch,
	}

	pyCmd = &cobra.Command{
		Use:   "py [script.py]",
		Short: "Runs a python script with the _semgrex module available, or starts a REPL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pathname := ""
			if len(args) > 0 {
				pathname = args[0]
			}
			return goGpython(pathname)
		},
	}
)

func init() {
	for _, cmd := range []*cobra.Command{matchCmd, batchCmd} {
		cmd.Flags().BoolVarP(&ignoreCase, "ignore-case", "i", false, "match attribute values without regard to case")
		cmd.Flags().BoolVar(&firstOnly, "first", false, "report at most one match per pattern per graph")
		cmd.Flags().BoolVar(&uniqueNodes, "unique-nodes", false, "report each matched node once per graph")
		cmd.Flags().BoolVar(&dropDupes, "unique", false, "drop matches with identical bindings")
		cmd.Flags().BoolVar(&withGraph, "graph", false, "print the graph alongside each match")
		cmd.Flags().IntVarP(&numWorkers, "workers", "w", 1, "number of graphs searched concurrently")
	}
	rootCmd.AddCommand(matchCmd, batchCmd, pyCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	pat, err := semgrex.Compile(args[0])
	if err != nil {
		return err
	}
	graphs, err := loadGraphs(args[1:])
	if err != nil {
		return err
	}
	return searchAndPrint(cmd, []*semgrex.Pattern{pat}, []string{""}, graphs)
}

func runBatch(cmd *cobra.Command, args []string) error {
	entries, err := semgrex.ParseBatchFile(args[0], nil)
	if err != nil {
		return err
	}
	graphs, err := loadGraphs(args[1:])
	if err != nil {
		return err
	}

	patterns := make([]*semgrex.Pattern, len(entries))
	labels := make([]string, len(entries))
	for i, entry := range entries {
		patterns[i] = entry.Pattern
		labels[i] = filepath.Base(args[0]) + ":" + strconv.Itoa(entry.Line)
	}
	return searchAndPrint(cmd, patterns, labels, graphs)
}

// searchAndPrint runs each pattern as its own batch so every output line carries its pattern's label.
func searchAndPrint(cmd *cobra.Command, patterns []*semgrex.Pattern, labels []string, graphs []*semgraph.Graph) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := semgrex.BatchOpts{
		Workers:     numWorkers,
		FirstOnly:   firstOnly,
		UniqueNodes: uniqueNodes,
	}
	if ignoreCase {
		opts.MatchOpts = append(opts.MatchOpts, semgrex.IgnoreCase())
	}

	out := cmd.OutOrStdout()
	total := 0
	for i, pat := range patterns {
		stream := semgrex.Batch(ctx, []*semgrex.Pattern{pat}, graphs, opts)
		if dropDupes {
			stream = stream.DropDupes()
		}
		stream = stream.Print(out, semgrex.PrintOpts{
			Label:     labels[i],
			WithGraph: withGraph,
		})
		total += stream.PullAll()
		if err := stream.Err(); err != nil {
			return errors.Wrapf(err, "pattern %q", pat.Text())
		}
	}

	klog.V(1).Infof("%d matches from %d patterns over %d graphs", total, len(patterns), len(graphs))
	return nil
}

// loadGraphs reads .yaml/.yml files as YAML graph documents and any other file as one compact
// graph per line, skipping blank lines and '#' comments.
func loadGraphs(pathnames []string) ([]*semgraph.Graph, error) {
	var graphs []*semgraph.Graph
	for _, pathname := range pathnames {
		switch strings.ToLower(filepath.Ext(pathname)) {
		case ".yaml", ".yml":
			gs, err := semgraph.ReadYAMLFile(pathname)
			if err != nil {
				return nil, errors.Wrap(err, pathname)
			}
			graphs = append(graphs, gs...)
		default:
			gs, err := readGraphLines(pathname)
			if err != nil {
				return nil, err
			}
			graphs = append(graphs, gs...)
		}
	}
	klog.V(2).Infof("loaded %d graphs from %d files", len(graphs), len(pathnames))
	return graphs, nil
}

func readGraphLines(pathname string) ([]*semgraph.Graph, error) {
	file, err := os.Open(pathname)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var graphs []*semgraph.Graph
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		g, err := semgraph.Parse(line)
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", pathname, lineNum)
		}
		graphs = append(graphs, g)
	}
	return graphs, scanner.Err()
}
