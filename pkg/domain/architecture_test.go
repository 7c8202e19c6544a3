package domain

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestDomainImportsOnlyStandardLibrary keeps the shared value types free of
// module-internal and third-party dependencies so every layer can use them.
func TestDomainImportsOnlyStandardLibrary(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, "petcore/pkg/domain")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if len(pkgs) != 1 {
		t.Fatalf("expected one package, got %d", len(pkgs))
	}
	var violations []string
	for importPath := range pkgs[0].Imports {
		first, _, _ := strings.Cut(importPath, "/")
		if strings.Contains(first, ".") || first == "petcore" {
			violations = append(violations, importPath)
		}
	}
	sort.Strings(violations)
	for _, v := range violations {
		t.Errorf("domain package must only import the standard library: %s", v)
	}
}
