package parser

import (
	"fmt"
	"strings"
)

const indentLetter = "-"

// Dump renders the tree structure for diagnostics, one node per line with
// "-" indentation per depth.
func Dump(t *Tree) string {
	var b strings.Builder
	t.Walk(func(n *Node, depth int) bool {
		indent := strings.Repeat(indentLetter, depth)
		switch n.Kind {
		case KindFork:
			top := ""
			if n.Top {
				top = "TOP "
			}
			fmt.Fprintf(&b, "%sfork: %s'%s'\n", indent, top, n.Name)
		case KindContent:
			fmt.Fprintf(&b, "%scontent:\n", indent)
			for _, r := range n.Runs {
				if r.Kind == RunTag {
					fmt.Fprintf(&b, "%s%stag: %s: %s\n", indent, indentLetter, r.Tag.Name, strings.Join(r.Tag.Args, "; "))
				} else {
					fmt.Fprintf(&b, "%s%stext: %s\n", indent, indentLetter, r.Text)
				}
			}
		case KindRemark:
			fmt.Fprintf(&b, "%sremark: %s: %s\n", indent, n.Key, n.Value)
		case KindEmpty:
			fmt.Fprintf(&b, "%sempty\n", indent)
		}
		return true
	})
	return b.String()
}

// Format serialises the tree back into canonical source text. Parsing the
// result yields the same fork structure, remarks and runs.
func Format(t *Tree) string {
	var b strings.Builder
	for _, c := range t.Node(t.Root()).Children {
		formatNode(&b, t, c, 0)
	}
	return b.String()
}

func formatNode(b *strings.Builder, t *Tree, id NodeID, depth int) {
	n := t.Node(id)
	indent := strings.Repeat("  ", depth)
	switch n.Kind {
	case KindFork:
		switch {
		case n.Top && n.Extra:
			fmt.Fprintf(b, "%s{!TOP %s\n", indent, n.Name)
		case n.Top:
			fmt.Fprintf(b, "%s{TOP %s\n", indent, n.Name)
		case n.Name != "":
			fmt.Fprintf(b, "%s%s {\n", indent, n.Name)
		default:
			fmt.Fprintf(b, "%s{\n", indent)
		}
		for _, c := range n.Children {
			formatNode(b, t, c, depth+1)
		}
		fmt.Fprintf(b, "%s}\n", indent)
	case KindContent:
		b.WriteString(indent)
		for _, r := range n.Runs {
			if r.Kind == RunTag {
				b.WriteString("[" + strings.Join(append([]string{r.Tag.Name}, r.Tag.Args...), ";") + "]")
			} else {
				b.WriteString(r.Text)
			}
		}
		b.WriteString(";\n")
	case KindRemark:
		fmt.Fprintf(b, "%s#%s;%s\n", indent, n.Key, n.Value)
	}
}
