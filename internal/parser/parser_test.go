package parser

import (
	"strings"
	"testing"

	"github.com/protokoll/minutes/internal/diag"
)

const simpleMeeting = `#Datum;01.03.2024
#Beginn;18:00
#Ende;20:00
TOP Begrüßung {
  Es wird begrüßt.;
  [beschluss;Die Kaffeemaschine wird repariert.;Finanzen];
  [todo;Alice;Kaffeemaschine reparieren;ab;15.03.2024];
}
`

func TestParse_SimpleMeeting(t *testing.T) {
	tree, err := Parse(simpleMeeting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	remarks := tree.Remarks()
	if len(remarks) != 3 {
		t.Fatalf("remarks = %d, want 3", len(remarks))
	}
	if remarks[0].Key != "Datum" || remarks[0].Value != "01.03.2024" {
		t.Errorf("first remark = %q/%q", remarks[0].Key, remarks[0].Value)
	}
	tops := tree.TopForks()
	if len(tops) != 1 {
		t.Fatalf("tops = %d, want 1", len(tops))
	}
	if tops[0].Name != "Begrüßung" || !tops[0].Top || tops[0].Extra {
		t.Errorf("top = %+v", tops[0])
	}
	if tops[0].Line != 4 {
		t.Errorf("top line = %d, want 4", tops[0].Line)
	}
	tags := tree.Tags()
	if len(tags) != 2 {
		t.Fatalf("tags = %d, want 2", len(tags))
	}
	if tags[0].Kind != TagDecision || tags[0].Arg(0) != "Die Kaffeemaschine wird repariert." || tags[0].Arg(1) != "Finanzen" {
		t.Errorf("decision tag = %+v", tags[0])
	}
	if tags[1].Kind != TagTodo || len(tags[1].Args) != 4 || tags[1].Line != 7 {
		t.Errorf("todo tag = %+v", tags[1])
	}
	if tags[1].Fork != tops[0].ID {
		t.Errorf("todo fork = %d, want %d", tags[1].Fork, tops[0].ID)
	}
}

func TestParse_BraceTopSyntax(t *testing.T) {
	tree, err := Parse("{TOP Bericht\n  Alles gut;\n}\n{!TOP Haushalt\n  Zahlen;\n}\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tops := tree.TopForks()
	if len(tops) != 2 {
		t.Fatalf("tops = %d, want 2", len(tops))
	}
	if tops[0].Name != "Bericht" || tops[0].Extra {
		t.Errorf("first top = %+v", tops[0])
	}
	if tops[1].Name != "Haushalt" || !tops[1].Extra {
		t.Errorf("second top = %+v", tops[1])
	}
	if tree.TopNumber(tops[1].ID) != 2 {
		t.Errorf("top number = %d, want 2", tree.TopNumber(tops[1].ID))
	}
}

func TestParse_NestedTopIsPlainFork(t *testing.T) {
	tree, err := Parse("{TOP A\n  {TOP B\n    x;\n  }\n}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.TopForks()) != 1 {
		t.Fatalf("only root children may be agenda items")
	}
	inner := tree.Node(tree.TopForks()[0].Children[0])
	if inner.Top || inner.Name != "B" {
		t.Errorf("inner = %+v", inner)
	}
	if tree.Top(inner.ID) != tree.TopForks()[0].ID {
		t.Error("Top of nested fork should be its agenda item")
	}
	if tree.MaxDepth(tree.Root()) != 3 {
		t.Errorf("max depth = %d, want 3", tree.MaxDepth(tree.Root()))
	}
}

func TestParse_Empty(t *testing.T) {
	tree, err := Parse("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Node(tree.Root()).Children) != 0 {
		t.Error("empty source should give an empty root")
	}
}

func TestParse_UnclosedFork(t *testing.T) {
	_, err := Parse("Foo { bar;")
	d, ok := diag.As(err)
	if !ok {
		t.Fatalf("expected diagnostic, got %v", err)
	}
	if d.Kind != diag.KindStructural || d.Line != 1 {
		t.Errorf("diagnostic = %+v", d)
	}
	if d.Message != "you forgot to close a brace; the opening brace is at line 1" {
		t.Errorf("message = %q", d.Message)
	}
	if !strings.Contains(d.Tree, "fork: 'Foo'") {
		t.Errorf("partial tree missing: %q", d.Tree)
	}
}

func TestParse_UnmatchedClose(t *testing.T) {
	_, err := Parse("a;\n}\n")
	d, ok := diag.As(err)
	if !ok || d.Kind != diag.KindStructural || d.Line != 2 {
		t.Fatalf("diagnostic = %+v (%v)", d, err)
	}
}

func TestParse_NoMatchingElement(t *testing.T) {
	_, err := Parse("foo\n]bar")
	d, ok := diag.As(err)
	if !ok || d.Kind != diag.KindLexical {
		t.Fatalf("diagnostic = %+v (%v)", d, err)
	}
	if d.Line != 2 {
		t.Errorf("line = %d, want 2", d.Line)
	}
}

func TestParse_RemarkWithoutValue(t *testing.T) {
	_, err := Parse("#Datum\n")
	if _, ok := diag.As(err); !ok {
		t.Fatalf("expected diagnostic, got %v", err)
	}
}

func TestParse_UnknownTagIsRecorded(t *testing.T) {
	tree, err := Parse("Text [foo;bar] mehr;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tags := tree.Tags()
	if len(tags) != 1 || tags[0].Kind != TagUnknown || tags[0].Name != "foo" {
		t.Fatalf("tags = %+v", tags)
	}
	content := tree.Node(tree.Node(tree.Root()).Children[0])
	if len(content.Runs) != 3 || content.Runs[0].Text != "Text " || content.Runs[2].Text != " mehr" {
		t.Errorf("runs = %+v", content.Runs)
	}
}

func TestParse_CRLF(t *testing.T) {
	tree, err := Parse("#Datum;01.03.2024\r\nFoo {\r\n  bar;\r\n}\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Remarks()[0].Value != "01.03.2024" {
		t.Errorf("remark value = %q", tree.Remarks()[0].Value)
	}
	var names []string
	tree.Walk(func(n *Node, _ int) bool {
		if n.Kind == KindFork && n.ID != tree.Root() {
			names = append(names, n.Name)
		}
		return true
	})
	if len(names) != 1 || names[0] != "Foo" {
		t.Errorf("forks = %v", names)
	}
}

func TestPrivateKeywords_Match(t *testing.T) {
	kw := PrivateKeywords{"intern", "private"}
	cases := map[string]bool{
		"Intern":    true,
		" intern: ": true,
		"PRIVATE":   true,
		"internals": false,
		"":          false,
	}
	for name, want := range cases {
		if got := kw.Match(name); got != want {
			t.Errorf("Match(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDump(t *testing.T) {
	tree, err := Parse("{TOP A\n  x [url;http://a];\n}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "fork: ''\n-fork: TOP 'A'\n--content:\n---text: x \n---tag: url: http://a\n"
	if got := Dump(tree); got != want {
		t.Errorf("dump = %q, want %q", got, want)
	}
}
