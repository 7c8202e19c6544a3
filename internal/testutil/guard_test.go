package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestPredicates(t *testing.T) {
	cases := []struct {
		pred func(string) bool
		in   string
		want bool
	}{
		{ThirdParty, "github.com/spf13/cobra", true},
		{ThirdParty, "net/http", false},
		{ThirdParty, "petcore/internal/slots", false},
		{Under("petcore/internal/server"), "petcore/internal/server", true},
		{Under("petcore/internal/server"), "petcore/internal/server/sub", true},
		{Under("petcore/internal/server"), "petcore/internal/serverless", false},
		{Either(ThirdParty, Under("net/http")), "net/http/httptest", true},
		{Either(ThirdParty, Under("net/http")), "net/url", false},
	}
	for i, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Fatalf("case %d (%q): got %v want %v", i, c.in, got, c.want)
		}
	}
}

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package tmp\n\nimport (\n\t\"fmt\"\n\t\"net/http\"\n)\n\nvar _ = fmt.Sprint\nvar _ = http.MethodGet\n")
	writeFile(t, dir, "a_test.go", "package tmp\n\nimport \"github.com/stretchr/testify/assert\"\n\nvar _ = assert.True\n")
	if err := os.Mkdir(filepath.Join(dir, "sub.go"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	viols, err := directImportViolations(dir, Either(ThirdParty, Under("net/http")))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "net/http (in a.go)" {
		t.Fatalf("violations = %v", viols)
	}

	AssertNoDirectImports(t, dir, ThirdParty, "test files and directories are skipped")
}

func TestDirectImportParseError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.go", "package tmp\nimport (\n")
	if _, err := directImportViolations(dir, ThirdParty); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := directImportViolations(filepath.Join(dir, "missing"), ThirdParty); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestFailIfViolations(t *testing.T) {
	var rec recordingFatal
	failIfViolations(&rec, "direct imports", "none", nil)
	if rec.msg != "" {
		t.Fatalf("unexpected failure %q", rec.msg)
	}
	failIfViolations(&rec, "direct imports", "core stays pure", []string{"net/http (in a.go)"})
	if !strings.Contains(rec.msg, "core stays pure") || !strings.Contains(rec.msg, "net/http (in a.go)") {
		t.Fatalf("message = %q", rec.msg)
	}
}

func TestTransitiveViolations(t *testing.T) {
	viols, err := transitiveViolations("petcore/internal/slots", Under("fmt"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(viols) == 0 || !strings.HasPrefix(viols[0], "fmt (via petcore/internal/slots") {
		t.Fatalf("expected fmt reachable from slots, got %v", viols)
	}
	AssertNoTransitiveDependency(t, "petcore/internal/slots", ThirdParty, "slots uses only the standard library")
}
