package semgrex

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// BatchEntry is one pattern read from a batch file.
type BatchEntry struct {
	Line    int    // 1-based line number in the batch file
	Source  string // pattern text after macro expansion
	Pattern *Pattern
}

// Batch file format, one pattern per line:
//
//	# comment
//	macro VERB = /VB.*/
//	{tag:${VERB}} >nsubj {}=subj
//
// Blank lines and lines starting with '#' are skipped.  "${NAME}" is replaced with the value of a
// macro defined on an earlier line; referencing an undefined macro fails the whole batch.
var macroRef = regexp.MustCompile(`\$\{(\w+)\}`)

const macroPrefix = "macro "

// ParseBatch reads and compiles every pattern in a batch file.
func ParseBatch(r io.Reader, env *Env) ([]BatchEntry, error) {
	macros := make(map[string]string)

	var entries []BatchEntry
	scanner := bufio.NewScanner(r)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		expanded, err := expandMacros(line, macros)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNum)
		}

		if strings.HasPrefix(expanded, macroPrefix) {
			name, val, ok := strings.Cut(expanded[len(macroPrefix):], "=")
			name = strings.TrimSpace(name)
			if !ok || name == "" {
				return nil, errors.Wrapf(ErrBadMacro, "line %d: %q", lineNum, line)
			}
			macros[name] = strings.TrimSpace(val)
			continue
		}

		pat, err := Compile(expanded, WithEnv(env))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNum)
		}
		entries = append(entries, BatchEntry{
			Line:    lineNum,
			Source:  expanded,
			Pattern: pat,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	klog.V(2).Infof("read %d patterns (%d macros)", len(entries), len(macros))
	return entries, nil
}

// ParseBatchFile reads and compiles every pattern in the given batch file.
func ParseBatchFile(pathname string, env *Env) ([]BatchEntry, error) {
	file, err := os.Open(pathname)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	entries, err := ParseBatch(file, env)
	if err != nil {
		return nil, errors.Wrap(err, pathname)
	}
	return entries, nil
}

func expandMacros(line string, macros map[string]string) (string, error) {
	var undefined string
	expanded := macroRef.ReplaceAllStringFunc(line, func(ref string) string {
		name := ref[2 : len(ref)-1]
		val, ok := macros[name]
		if !ok && undefined == "" {
			undefined = name
		}
		return val
	})
	if undefined != "" {
		return "", errors.Wrapf(ErrUndefinedMacro, "${%s}", undefined)
	}
	return expanded, nil
}
