package blob

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestInfraImportBoundaries ensures infra backends are only wired through
// their facade packages. Everything else depends on interfaces.
func TestInfraImportBoundaries(t *testing.T) {
	boundaries := []struct {
		infra   string
		allowed []string
	}{
		{infra: "staytrack/internal/infra/blob", allowed: []string{"staytrack/internal/blob"}},
		{infra: "staytrack/internal/infra/persistence", allowed: []string{"staytrack/internal/core"}},
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "staytrack/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	var violations []string
	for _, b := range boundaries {
		for _, pkg := range pkgs {
			if hasPathPrefix(pkg.PkgPath, b.infra) || allowedAny(pkg.PkgPath, b.allowed) {
				continue
			}
			for importPath := range pkg.Imports {
				if hasPathPrefix(importPath, b.infra) {
					violations = append(violations, pkg.PkgPath+": "+importPath)
				}
			}
		}
	}
	if len(violations) > 0 {
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden infra import: %s", v)
		}
		t.Fatalf("found %d forbidden infra imports", len(violations))
	}
}

func allowedAny(pkgPath string, prefixes []string) bool {
	for _, p := range prefixes {
		if hasPathPrefix(pkgPath, p) {
			return true
		}
	}
	return false
}

func hasPathPrefix(importPath, prefix string) bool {
	return importPath == prefix || strings.HasPrefix(importPath, prefix+"/")
}
