package render

import (
	"fmt"
	"strings"

	"github.com/protokoll/minutes/internal/parser"
)

// hypertext emits headings down to <h4>, then nested lists.
type hypertext struct{}

func (hypertext) fork(r *renderer, n *parser.Node, level int) string {
	if r.isInternal(n) && !r.opts.internal() {
		return ""
	}
	depth := level + 1 + r.opts.HTMLLevelOffset
	parts := r.parts(n, level)
	lines := make([]string, len(parts))

	if depth < 5 {
		for i, p := range parts {
			if p.node.Kind == parser.KindFork {
				lines[i] = p.text
			} else {
				lines[i] = "<p>" + p.text + "</p>"
			}
		}
		body := strings.Join(lines, "\n")
		if level == 0 {
			return body
		}
		return fmt.Sprintf("<h%d>%s</h%d>\n\n%s", depth, n.Name, depth, body)
	}

	for i, p := range parts {
		lines[i] = "<li>" + p.text + "</li>"
	}
	list := "<ul>\n" + strings.Join(lines, "\n") + "\n</ul>"
	if level == 0 {
		return list
	}
	return n.Name + "\n" + list
}

func (hypertext) text(s string) string { return s }

func (hypertext) tag(r *renderer, t *parser.Tag) string {
	switch t.Kind {
	case parser.TagURL:
		return fmt.Sprintf(`<a href="%s">%s</a>`, t.Arg(0), t.Arg(0))
	case parser.TagTodo:
		if !r.opts.internal() {
			return ""
		}
		if t.ActionItem != nil {
			return fmt.Sprintf("<b>%s:</b> %s", r.todoLabel(t.ActionItem), todoText(t.ActionItem))
		}
		return "<b>Todo:</b> " + strings.Join(t.Args, ";")
	case parser.TagDecision:
		if t.Decision == nil {
			return "<b>Beschluss:</b> " + t.Arg(0)
		}
		out := "<b>Beschluss:</b> " + t.Decision.Content
		if len(t.Decision.Categories) > 0 {
			out += " <i>" + t.Decision.CategoriesString() + "</i>"
		}
		return out
	case parser.TagFootnote:
		h := r.footnote(t.Arg(0))
		return fmt.Sprintf(`<sup id="fnref%s"><a href="#fn%s">Fn</a></sup>`, h, h)
	}
	return fmt.Sprintf("[%s: %s]", t.Name, strings.Join(t.Args, ";"))
}

func (hypertext) remark(n *parser.Node) string {
	return n.Key + ": " + n.Value
}

// footnoteList renders the back-referenced list appended after the body.
func footnoteList(fns []Footnote) string {
	seen := make(map[string]bool)
	var b strings.Builder
	b.WriteString("\n<hr>\n<ol class=\"footnotes\">\n")
	for _, fn := range fns {
		if seen[fn.Hash] {
			continue
		}
		seen[fn.Hash] = true
		fmt.Fprintf(&b, "<li id=\"fn%s\">%s <a href=\"#fnref%s\">&#8617;</a></li>\n", fn.Hash, fn.Text, fn.Hash)
	}
	b.WriteString("</ol>\n")
	return b.String()
}
