package domain

import (
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestDomainDoesNotImportInternal enforces the architectural rule that the domain
// layer must not depend on any internal implementation packages.
func TestDomainDoesNotImportInternal(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Dir: "."}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		t.Fatalf("load package: %v", err)
	}
	if len(pkgs) == 0 {
		t.Fatalf("no packages loaded")
	}
	violations := 0
	for _, pkg := range pkgs {
		for path := range pkg.Imports {
			if strings.Contains(path, "/internal/") || strings.HasPrefix(path, "staytrack/internal") {
				violations++
				t.Errorf("domain package must not import internal packages: %s", path)
			}
		}
	}
	if violations > 0 {
		t.Fatalf("found %d forbidden internal imports in domain package", violations)
	}
}
