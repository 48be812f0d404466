// Command sqllint enforces the SQL audit-marker convention: every SQL string
// constant starts with a `--sql <uuid>` line, markers are unique across the
// tree (the runner logs them, so a duplicate garbles the audit trail), and
// statement constants live only under internal/sqlinline.
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
	sqlHeadPattern    = regexp.MustCompile(`(?i)^(select|insert|update|delete|with)\b`)
	uuidMarkerPattern = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)
)

type finding struct {
	file    string
	name    string
	line    int
	message string
}

type markerUse struct {
	file string
	name string
	line int
}

func main() {
	flag.Parse()
	targets := flag.Args()
	if len(targets) == 0 {
		targets = []string{"."}
	}

	var findings []finding
	markers := map[string][]markerUse{}

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
			os.Exit(1)
		}
		if info.IsDir() {
			walkErr := filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					if strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") || d.Name() == "vendor" || d.Name() == "node_modules" {
						return filepath.SkipDir
					}
					return nil
				}
				if filepath.Ext(path) != ".go" {
					return nil
				}
				fs, err := lintFile(path, markers)
				if err != nil {
					return err
				}
				findings = append(findings, fs...)
				return nil
			})
			if walkErr != nil {
				fmt.Fprintf(os.Stderr, "sqllint: %v\n", walkErr)
				os.Exit(1)
			}
		} else if filepath.Ext(target) == ".go" {
			fs, err := lintFile(target, markers)
			if err != nil {
				fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
				os.Exit(1)
			}
			findings = append(findings, fs...)
		}
	}

	for marker, uses := range markers {
		if len(uses) < 2 {
			continue
		}
		for _, use := range uses[1:] {
			findings = append(findings, finding{
				file:    use.file,
				name:    use.name,
				line:    use.line,
				message: fmt.Sprintf("marker %s already used at %s:%d", marker, uses[0].file, uses[0].line),
			})
		}
	}

	if len(findings) > 0 {
		fmt.Fprintln(os.Stderr, "sqllint: SQL audit marker violations")
		for _, f := range findings {
			fmt.Fprintf(os.Stderr, "  %s:%d %s (%s)\n", f.file, f.line, f.message, f.name)
		}
		os.Exit(1)
	}
}

func lintFile(path string, markers map[string][]markerUse) ([]finding, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	inSQLHome := strings.Contains(filepath.ToSlash(path), "internal/sqlinline/")

	var findings []finding
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for _, value := range vs.Values {
			bl, ok := value.(*ast.BasicLit)
			if !ok || bl.Kind != token.STRING {
				continue
			}
			raw, err := unquote(bl.Value)
			if err != nil {
				continue
			}
			head := firstLine(raw)
			m := uuidMarkerPattern.FindStringSubmatch(head)
			pos := fset.Position(bl.Pos())
			name := joinNames(vs.Names)

			switch {
			case m != nil:
				markers[m[1]] = append(markers[m[1]], markerUse{file: path, name: name, line: pos.Line})
				if !inSQLHome {
					findings = append(findings, finding{
						file:    path,
						name:    name,
						line:    pos.Line,
						message: "sql constant outside internal/sqlinline",
					})
				}
			case looksLikeSQL(raw):
				findings = append(findings, finding{
					file:    path,
					name:    name,
					line:    pos.Line,
					message: "missing or invalid --sql <uuid> marker",
				})
			}
		}
		return true
	})
	return findings, nil
}

// looksLikeSQL reports whether the constant body reads as a statement. Only
// the leading token decides, so prose mentioning "with" or "update" in the
// middle of a message never trips the linter.
func looksLikeSQL(s string) bool {
	return sqlHeadPattern.MatchString(strings.TrimLeft(s, "\n\r \t"))
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if len(v) == 0 {
		return v, nil
	}
	if v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}

func joinNames(idents []*ast.Ident) string {
	parts := make([]string, 0, len(idents))
	for _, ident := range idents {
		if ident == nil {
			continue
		}
		parts = append(parts, ident.Name)
	}
	return strings.Join(parts, ",")
}
