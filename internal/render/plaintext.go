package render

import (
	"strings"

	"github.com/protokoll/minutes/internal/parser"
)

// plaintext uses markdown-like "#" headings and no escaping.
type plaintext struct{}

func (plaintext) fork(r *renderer, n *parser.Node, level int) string {
	if r.isInternal(n) && !r.opts.internal() {
		return ""
	}
	body := strings.Join(r.children(n, level), "\n")
	if level == 0 {
		return body
	}
	return strings.Repeat("#", level+1) + " " + n.Name + "\n" + body
}

func (plaintext) text(s string) string { return s }

func (plaintext) tag(r *renderer, t *parser.Tag) string {
	switch t.Kind {
	case parser.TagURL:
		return t.Arg(0)
	case parser.TagTodo:
		if !r.opts.internal() {
			return ""
		}
		if t.ActionItem != nil {
			return r.todoLabel(t.ActionItem) + ": " + todoText(t.ActionItem)
		}
	case parser.TagDecision:
		if t.Decision != nil {
			return "Beschluss: " + decisionText(t)
		}
	case parser.TagFootnote:
		return "[^](" + t.Arg(0) + ")"
	}
	name, values := genericTag(t)
	return name + ": " + values
}

func (plaintext) remark(n *parser.Node) string {
	return n.Key + ": " + n.Value
}
