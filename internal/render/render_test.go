package render

import (
	"strings"
	"testing"

	"github.com/protokoll/minutes/internal/models"
	"github.com/protokoll/minutes/internal/parser"
	"github.com/protokoll/minutes/internal/tags"
)

var keywords = parser.PrivateKeywords{"private", "internal", "privat", "intern"}

func mustParse(t *testing.T, src string) *parser.Tree {
	t.Helper()
	tree, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tree
}

func mustRender(t *testing.T, tree *parser.Tree, f Format, v Visibility) string {
	t.Helper()
	out, err := Render(tree, Options{Format: f, Visibility: v, PrivateKeywords: keywords})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return out
}

const greeting = "TOP Begrüßung {\n  Es wird begrüßt.;\n}\n"

func TestRender_Formats(t *testing.T) {
	tree := mustParse(t, greeting)
	tests := []struct {
		format Format
		want   string
	}{
		{FormatTypeset, "\\begin{itemize}\n\\item Begrüßung\n\\begin{itemize}\n\\item Es wird begrüßt.\n\\end{itemize}\n\\end{itemize}"},
		{FormatHypertext, "<h2>Begrüßung</h2>\n\n<p>Es wird begrüßt.</p>"},
		{FormatWiki, "=== Begrüßung ===\n\nEs wird begrüßt.\n\n"},
		{FormatDokuWiki, "==== Begrüßung ====\n\nEs wird begrüßt.\n\n"},
		{FormatPlaintext, "## Begrüßung\nEs wird begrüßt."},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if got := mustRender(t, tree, tt.format, Public); got != tt.want {
				t.Errorf("got:\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestRender_InternalSection(t *testing.T) {
	tree := mustParse(t, "TOP Kasse {\n  Alles gut.;\n}\nIntern { Geheimes. }\n")

	public := mustRender(t, tree, FormatTypeset, Public)
	if !strings.Contains(public, "[An dieser Stelle wurde intern protokolliert.]") {
		t.Errorf("public render lacks stub:\n%s", public)
	}
	if strings.Contains(public, "Geheimes") {
		t.Errorf("public render leaks internal content:\n%s", public)
	}

	internal := mustRender(t, tree, FormatTypeset, Internal)
	box := "\\begin{tcolorbox}[breakable,title=Interner Abschnitt]\n\\begin{itemize}\n\\item Geheimes.\n\\end{itemize}\n\\end{tcolorbox}"
	if !strings.Contains(internal, box) {
		t.Errorf("internal render lacks box:\n%s", internal)
	}

	for _, f := range []Format{FormatHypertext, FormatWiki, FormatDokuWiki, FormatPlaintext} {
		if out := mustRender(t, tree, f, Public); strings.Contains(out, "Geheimes") {
			t.Errorf("%s public render leaks internal content", f)
		}
		if out := mustRender(t, tree, f, Internal); !strings.Contains(out, "Geheimes") {
			t.Errorf("%s internal render lacks internal content", f)
		}
	}
}

func TestRender_EmptyFork(t *testing.T) {
	tree := mustParse(t, "TOP Leer {\n}\n")
	out := mustRender(t, tree, FormatTypeset, Public)
	if !strings.Contains(out, "\\item Leer\n\\begin{itemize}\n\\item Nichts\n\\end{itemize}") {
		t.Errorf("got:\n%s", out)
	}
}

func TestRender_TodoOnlyInternal(t *testing.T) {
	tree := mustParse(t, "[todo;Bob;Bericht;erledigt];\n")
	tree.Tags()[0].ActionItem = &models.ActionItem{ID: 7, Number: 42, Who: "Bob", Description: "Bericht", State: models.StateDone}

	if out := mustRender(t, tree, FormatPlaintext, Public); strings.TrimSpace(out) != "" {
		t.Errorf("public = %q", out)
	}
	out, err := Render(tree, Options{
		Format:          FormatPlaintext,
		Visibility:      Internal,
		PrivateKeywords: keywords,
		NewActionItems:  map[int64]bool{7: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "Neuer Todo: Bob: Bericht, erledigt" {
		t.Errorf("internal = %q", out)
	}
	if out := mustRender(t, tree, FormatTypeset, Internal); !strings.Contains(out, `\textbf{Todo:} Bob: Bericht, erledigt`) {
		t.Errorf("typeset = %q", out)
	}
}

func TestRender_Decision(t *testing.T) {
	tree := mustParse(t, "[beschluss;Kaffee für alle;Finanzen];\n")
	tree.Tags()[0].Decision = &models.Decision{
		ID:         3,
		Content:    "Kaffee für alle",
		Categories: []models.Category{{Name: "Finanzen"}},
	}
	tests := map[Format]string{
		FormatTypeset:   `\Beschluss[Finanzen]{Kaffee für alle}`,
		FormatHypertext: "<b>Beschluss:</b> Kaffee für alle <i>Finanzen</i>",
		FormatWiki:      "'''Beschluss:''' Kaffee für alle (Finanzen)",
		FormatDokuWiki:  "**Beschluss:** Kaffee für alle (Finanzen)",
		FormatPlaintext: "Beschluss: Kaffee für alle (Finanzen)",
	}
	for f, want := range tests {
		if out := mustRender(t, tree, f, Public); !strings.Contains(out, want) {
			t.Errorf("%s: %q lacks %q", f, out, want)
		}
	}
}

func TestRender_URLAndRemark(t *testing.T) {
	tree := mustParse(t, "#Ort;Raum 1\nSiehe [url;https://example.org];\n")
	tests := map[Format][]string{
		FormatTypeset:   {`\textbf{Ort}: Raum 1`, `\url{https://example.org}`},
		FormatHypertext: {"<p>Ort: Raum 1</p>", `<a href="https://example.org">https://example.org</a>`},
		FormatWiki:      {"Ort: Raum 1", "[https://example.org https://example.org]"},
		FormatDokuWiki:  {`Ort: Raum 1\\`, "Siehe https://example.org"},
		FormatPlaintext: {"Ort: Raum 1", "Siehe https://example.org"},
	}
	for f, wants := range tests {
		out := mustRender(t, tree, f, Public)
		for _, want := range wants {
			if !strings.Contains(out, want) {
				t.Errorf("%s: %q lacks %q", f, out, want)
			}
		}
	}
}

func TestRender_HypertextFootnotes(t *testing.T) {
	tree := mustParse(t, "TOP A {\n  Text[footnote;Quelle A].;\n  Intern {\n    Mehr[footnote;Quelle B];\n  }\n}\n")
	h := tags.FootnoteHash("Quelle A")

	out := mustRender(t, tree, FormatHypertext, Public)
	if !strings.Contains(out, `<sup id="fnref`+h+`"><a href="#fn`+h+`">Fn</a></sup>`) {
		t.Errorf("missing reference:\n%s", out)
	}
	if !strings.Contains(out, `<li id="fn`+h+`">Quelle A`) {
		t.Errorf("missing footnote list:\n%s", out)
	}
	if strings.Contains(out, "Quelle B") {
		t.Errorf("internal footnote leaked:\n%s", out)
	}

	if got := Footnotes(tree, keywords, Public); len(got) != 1 || got[0].Hash != h {
		t.Errorf("public footnotes = %+v", got)
	}
	if got := Footnotes(tree, keywords, Internal); len(got) != 2 {
		t.Errorf("internal footnotes = %+v", got)
	}
}

func TestRender_HTMLLevelOffset(t *testing.T) {
	tree := mustParse(t, greeting)
	out, err := Render(tree, Options{Format: FormatHypertext, Visibility: Public, HTMLLevelOffset: 3})
	if err != nil {
		t.Fatal(err)
	}
	if want := "Begrüßung\n<ul>\n<li>Es wird begrüßt.</li>\n</ul>"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestRender_ExtraTop(t *testing.T) {
	tree := mustParse(t, "!TOP Haushalt {\n  Zahlen;\n}\nTOP Sonstiges {\n  Nichts weiter;\n}\n")

	out := mustRender(t, tree, FormatTypeset, Public)
	if !strings.Contains(out, "eigenem PDF exportiert") || strings.Contains(out, "Zahlen") {
		t.Errorf("main render:\n%s", out)
	}

	extras := ExtraTops(tree, keywords, Public)
	if len(extras) != 1 || extras[0].Name != "Haushalt" {
		t.Fatalf("extras = %+v", extras)
	}
	body, err := Extra(tree, extras[0].ID, Options{Visibility: Public, PrivateKeywords: keywords})
	if err != nil {
		t.Fatal(err)
	}
	if body != "\\begin{itemize}\n\\item Zahlen\n\\end{itemize}" {
		t.Errorf("extra = %q", body)
	}

	if _, err := Extra(tree, tree.TopForks()[1].ID, Options{}); err == nil {
		t.Error("expected error for a regular agenda item")
	}
}

func TestDecisions_Visibility(t *testing.T) {
	tree := mustParse(t, "[beschluss;A];\nIntern {\n  [beschluss;B];\n}\n")
	all := tree.Tags()
	all[0].Decision = &models.Decision{ID: 1, Content: "A"}
	all[1].Decision = &models.Decision{ID: 2, Content: "B"}

	if got := Decisions(tree, keywords, Public); len(got) != 1 || got[0].ID != 1 {
		t.Errorf("public = %+v", got)
	}
	if got := Decisions(tree, keywords, Internal); len(got) != 2 {
		t.Errorf("internal = %+v", got)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(" HyperText "); err != nil || f != FormatHypertext {
		t.Errorf("got %q, %v", f, err)
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("expected error")
	}
}

func TestEscapeTeX(t *testing.T) {
	tests := []struct{ in, want string }{
		{`\`, `$\backslash$`},
		{`\in`, `$\in$`},
		{`50% & #1 5$`, `50\% \& \#1 5\$`},
		{`a_b {c}`, `a\_b \{c\}`},
		{`[x]`, `{[}x{]}`},
		{`~`, `$\sim{}$`},
		{`a -> b --> c`, `a $\rightarrow$ b $\longrightarrow$ c`},
		{`x => y ==> z`, `x $\Rightarrow$ y $\Longrightarrow$ z`},
		{`a >= b =< c`, `a $\geq$ b $\leq$ c`},
		{`a < b > c`, `a $<$ b $>$ c`},
		{`sagt "hallo" und "`, `sagt \enquote{hallo} und "'`},
		{`f(x)y`, `f (x) y`},
	}
	for _, tt := range tests {
		if got := EscapeTeX(tt.in); got != tt.want {
			t.Errorf("EscapeTeX(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
