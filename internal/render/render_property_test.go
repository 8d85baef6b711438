package render

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/protokoll/minutes/internal/parser"
)

// word is a unique marker placed in a generated source together with
// whether an internal fork encloses it.
type word struct {
	text   string
	hidden bool
}

func genForks(t *rapid.T, b *strings.Builder, depth int, hidden bool, words *[]word) {
	n := rapid.IntRange(0, 3).Draw(t, "children")
	for i := 0; i < n; i++ {
		if depth < 3 && rapid.Bool().Draw(t, "fork") {
			name := rapid.SampledFrom([]string{"Intern", "privat:", "Kasse", "Termine"}).Draw(t, "name")
			fmt.Fprintf(b, "%s {\n", name)
			genForks(t, b, depth+1, hidden || keywords.Match(name), words)
			b.WriteString("}\n")
			continue
		}
		w := fmt.Sprintf("w%dx", len(*words))
		*words = append(*words, word{text: w, hidden: hidden})
		fmt.Fprintf(b, "%s;\n", w)
	}
}

func TestProperty_VisibilityMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var b strings.Builder
		var words []word
		genForks(rt, &b, 0, false, &words)

		tree, err := parser.Parse(b.String())
		if err != nil {
			rt.Fatalf("parse %q: %v", b.String(), err)
		}
		for _, f := range Formats {
			public, err := Render(tree, Options{Format: f, Visibility: Public, PrivateKeywords: keywords})
			if err != nil {
				rt.Fatal(err)
			}
			internal, err := Render(tree, Options{Format: f, Visibility: Internal, PrivateKeywords: keywords})
			if err != nil {
				rt.Fatal(err)
			}
			for _, w := range words {
				inPublic := strings.Contains(public, w.text)
				if !strings.Contains(internal, w.text) {
					rt.Fatalf("%s: %s missing from internal render", f, w.text)
				}
				if inPublic == w.hidden {
					rt.Fatalf("%s: %s in public render = %v, hidden = %v\n%s", f, w.text, inPublic, w.hidden, public)
				}
			}
		}
	})
}
