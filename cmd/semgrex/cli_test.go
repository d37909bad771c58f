package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	pathname := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(pathname, []byte(body), 0600))
	return pathname
}

func execute(t *testing.T, args ...string) (string, error) {
	ignoreCase, firstOnly, uniqueNodes, dropDupes, withGraph, numWorkers = false, false, false, false, false, 1

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestMatchCommand(t *testing.T) {
	dir := t.TempDir()
	graphs := writeFile(t, dir, "graphs.txt", `# two sentences
[ate/VBD-2 nsubj>Bill/NNP-1 obj>[muffins/NNS-4 compound>blueberry/NN-3]]

[saw-3 nsubj>I-1 advmod>really-2 obj>it-4 obl>today-5]
`)

	out, err := execute(t, "match", "{}=g >nsubj {}=s", graphs)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "000001,0,ate-2 g=ate-2 s=Bill-1", lines[0])
	assert.Equal(t, "000002,1,saw-3 g=saw-3 s=I-1", lines[1])

	out, err = execute(t, "match", "--ignore-case", "{word:BILL}", graphs)
	require.NoError(t, err)
	assert.Equal(t, "000001,0,Bill-1\n", out)
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	graphs := writeFile(t, dir, "graphs.yaml", `
- text: "[ate/VBD-2 nsubj>Bill/NNP-1 obj>[muffins/NNS-4 compound>blueberry/NN-3]]"
- tokens:
    - {index: 1, word: cats, tag: NNS}
    - {index: 2, word: sleep, tag: VBP}
  edges:
    - {gov: 2, dep: 1, reln: nsubj}
`)
	patterns := writeFile(t, dir, "verbs.semgrex", `macro V = /VB.*/
{tag:${V}}=v
{tag:/NN.*/} >compound {}
`)

	out, err := execute(t, "batch", "--first", patterns, graphs)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "verbs.semgrex:2,000001,0,ate-2 v=ate-2", lines[0])
	assert.Equal(t, "verbs.semgrex:2,000002,1,sleep-2 v=sleep-2", lines[1])
	assert.Equal(t, "verbs.semgrex:3,000001,0,muffins-4", lines[2])
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	graphs := writeFile(t, dir, "graphs.txt", "[a-1 x>b-2]\n[broken\n")

	_, err := execute(t, "match", "{} >", graphs)
	assert.Error(t, err)

	_, err = execute(t, "match", "{}", graphs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graphs.txt:2")

	_, err = execute(t, "match", "{}", filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestPyCommand(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "check.py", `import _semgrex

pat = _semgrex.Compile("{}=g >nsubj {word:Bill}")
assert pat.Matches("[ate-2 nsubj>Bill-1]")
assert len(pat.FindAll("[ran-2 nsubj>Sue-1]")) == 0
`)
	_, err := execute(t, "py", script)
	assert.NoError(t, err)

	failing := writeFile(t, dir, "fail.py", `import _semgrex
_semgrex.Compile("{} >")
`)
	_, err = execute(t, "py", failing)
	assert.Error(t, err)

	_, err = execute(t, "py", filepath.Join(dir, "missing.py"))
	assert.Error(t, err)
}
