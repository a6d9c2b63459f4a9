// Command sqllint checks the inline SQL constants. Every statement must open
// with a `--sql <uuid>` marker line and no two statements may share a marker,
// otherwise query attribution in the runner's logs breaks down.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	sqlKeyword = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with)\b`)
	markerLine = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)
)

type sqlConst struct {
	file   string
	line   int
	name   string
	marker string
}

func main() {
	flag.Parse()
	roots := flag.Args()
	if len(roots) == 0 {
		roots = []string{"internal/sqlinline"}
	}

	consts, err := collect(roots)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
		os.Exit(1)
	}

	failed := false
	seen := map[string]sqlConst{}
	for _, c := range consts {
		switch {
		case c.marker == "":
			fmt.Fprintf(os.Stderr, "%s:%d: %s lacks a --sql <uuid> marker\n", c.file, c.line, c.name)
			failed = true
		default:
			if prev, dup := seen[c.marker]; dup {
				fmt.Fprintf(os.Stderr, "%s:%d: %s reuses marker %s from %s\n", c.file, c.line, c.name, c.marker, prev.name)
				failed = true
			}
			seen[c.marker] = c
		}
	}
	if failed {
		os.Exit(1)
	}
}

func collect(roots []string) ([]sqlConst, error) {
	var consts []sqlConst
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") || d.Name() == "vendor" {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			found, err := lintFile(path)
			if err != nil {
				return err
			}
			consts = append(consts, found...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return consts, nil
}

func lintFile(path string) ([]sqlConst, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil, err
	}

	var consts []sqlConst
	ast.Inspect(file, func(n ast.Node) bool {
		spec, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range spec.Values {
			lit, ok := value.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			text, err := unquote(lit.Value)
			if err != nil || !sqlKeyword.MatchString(text) {
				continue
			}
			name := "_"
			if i < len(spec.Names) && spec.Names[i] != nil {
				name = spec.Names[i].Name
			}
			consts = append(consts, sqlConst{
				file:   path,
				line:   fset.Position(lit.Pos()).Line,
				name:   name,
				marker: extractedMarker(text),
			})
		}
		return true
	})
	return consts, nil
}

// extractedMarker returns the uuid from the statement's first line, or ""
// when the line is not a well-formed marker.
func extractedMarker(text string) string {
	head, _, _ := strings.Cut(strings.TrimLeft(text, "\n\r \t"), "\n")
	m := markerLine.FindStringSubmatch(strings.TrimSpace(head))
	if m == nil {
		return ""
	}
	return m[1]
}

func unquote(v string) (string, error) {
	if strings.HasPrefix(v, "`") {
		return strings.Trim(v, "`"), nil
	}
	return strconv.Unquote(v)
}
