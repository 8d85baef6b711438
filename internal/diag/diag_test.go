package diag

import (
	"fmt"
	"strings"
	"testing"
)

func TestContext_ClampsAtEdges(t *testing.T) {
	src := "one\ntwo\nthree\nfour\nfive"
	got := Context(src, 1, 2)
	if !strings.Contains(got, ">   1 | one") {
		t.Errorf("missing marked first line in %q", got)
	}
	if strings.Contains(got, "four") {
		t.Errorf("context exceeds range: %q", got)
	}
	if n := strings.Count(got, "\n"); n != 3 {
		t.Errorf("lines = %d, want 3", n)
	}
}

func TestContext_CRLF(t *testing.T) {
	got := Context("a\r\nb\r\nc", 2, 0)
	if got != ">   2 | b\n" {
		t.Errorf("context = %q", got)
	}
}

func TestDiagnostic_ErrorsAs(t *testing.T) {
	d := New(PhaseParsing, KindStructural, 4, "unmatched %s", "brace")
	wrapped := fmt.Errorf("parse: %w", d)
	got, ok := As(wrapped)
	if !ok {
		t.Fatal("expected diagnostic in chain")
	}
	if got.Line != 4 || got.Kind != KindStructural {
		t.Errorf("diagnostic = %+v", got)
	}
	if got.Error() != "Parsing: line 4: unmatched brace" {
		t.Errorf("error = %q", got.Error())
	}
}

func TestCollector_Warnings(t *testing.T) {
	var c Collector
	c.Add(Warning(PhaseCompiling, KindMeta, 0, "missing Ort"))
	c.Add(nil)
	f := c.Add(New(PhaseCompiling, KindTagShape, 2, "bad tag"))
	if f == nil || !f.Fatal() {
		t.Fatalf("Add returned %+v", f)
	}
	if w := c.Warnings(); len(w) != 1 || w[0].Message != "missing Ort" {
		t.Errorf("warnings = %+v", w)
	}
}
