// Package testutil holds helpers shared by layering tests.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// ImportRule rejects an import path, returning a non-empty reason when the
// path is not allowed.
type ImportRule func(importPath string) string

// ForbidPrefix rejects imports equal to or nested under prefix.
func ForbidPrefix(prefix, reason string) ImportRule {
	return func(ip string) string {
		if ip == prefix || strings.HasPrefix(ip, prefix+"/") {
			return reason
		}
		return ""
	}
}

// TransportForbidden keeps HTTP frameworks out of the service layer.
var TransportForbidden = ForbidPrefix("github.com/gin-gonic/gin", "service code must stay transport agnostic")

// APIForbidden keeps packages from reaching back into the HTTP adapter.
var APIForbidden = ForbidPrefix("staytrack/internal/api", "the api package sits on top of the stack")

// AssertImports parses the non-test Go files in dir and fails when any import
// is rejected by one of rules.
func AssertImports(t testing.TB, dir string, rules ...ImportRule) {
	t.Helper()
	viols, err := importViolations(dir, rules)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	if len(viols) > 0 {
		t.Fatalf("forbidden imports in %s:\n%s", dir, strings.Join(viols, "\n"))
	}
}

func importViolations(dir string, rules []ImportRule) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			ip := strings.Trim(imp.Path.Value, `"`)
			for _, rule := range rules {
				if reason := rule(ip); reason != "" {
					viols = append(viols, name+": "+ip+" ("+reason+")")
				}
			}
		}
	}
	sort.Strings(viols)
	return viols, nil
}
