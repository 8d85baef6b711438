package render

import (
	"fmt"
	"strings"

	"github.com/protokoll/minutes/internal/parser"
)

// wiki is the MediaWiki dialect.
type wiki struct{}

func (wiki) fork(r *renderer, n *parser.Node, level int) string {
	return wikiFork(r, n, level, level+2)
}

func (wiki) text(s string) string { return s }

func (wiki) tag(r *renderer, t *parser.Tag) string {
	switch t.Kind {
	case parser.TagURL:
		return fmt.Sprintf("[%s %s]", t.Arg(0), t.Arg(0))
	case parser.TagTodo:
		if !r.opts.internal() {
			return ""
		}
		if t.ActionItem != nil {
			return fmt.Sprintf("'''%s:''' %s", r.todoLabel(t.ActionItem), todoText(t.ActionItem))
		}
	case parser.TagDecision:
		if t.Decision != nil {
			return "'''Beschluss:''' " + decisionText(t)
		}
	case parser.TagFootnote:
		return "<ref>" + t.Arg(0) + "</ref>"
	}
	name, values := genericTag(t)
	return fmt.Sprintf("'''%s:''' %s", name, values)
}

func (wiki) remark(n *parser.Node) string {
	return n.Key + ": " + n.Value
}

// dokuwiki is the DokuWiki dialect, whose headings shrink with more equal signs.
type dokuwiki struct{}

func (dokuwiki) fork(r *renderer, n *parser.Node, level int) string {
	return wikiFork(r, n, level, max(1, 5-level))
}

func (dokuwiki) text(s string) string { return s }

func (dokuwiki) tag(r *renderer, t *parser.Tag) string {
	switch t.Kind {
	case parser.TagURL:
		return t.Arg(0)
	case parser.TagTodo:
		if !r.opts.internal() {
			return ""
		}
		if t.ActionItem != nil {
			return fmt.Sprintf("**%s:** %s", r.todoLabel(t.ActionItem), todoText(t.ActionItem))
		}
	case parser.TagDecision:
		if t.Decision != nil {
			return "**Beschluss:** " + decisionText(t)
		}
	case parser.TagFootnote:
		return "((" + t.Arg(0) + "))"
	}
	name, values := genericTag(t)
	return fmt.Sprintf("**%s:** %s", name, values)
}

func (dokuwiki) remark(n *parser.Node) string {
	return n.Key + ": " + n.Value + `\\`
}

func wikiFork(r *renderer, n *parser.Node, level, equals int) string {
	if r.isInternal(n) && !r.opts.internal() {
		return ""
	}
	body := strings.Join(r.children(n, level), "\n\n")
	if level == 0 {
		return body + "\n"
	}
	marks := strings.Repeat("=", equals)
	return fmt.Sprintf("%s %s %s\n\n%s\n", marks, n.Name, marks, body)
}

func decisionText(t *parser.Tag) string {
	if len(t.Decision.Categories) == 0 {
		return t.Decision.Content
	}
	return t.Decision.Content + " (" + t.Decision.CategoriesString() + ")"
}
