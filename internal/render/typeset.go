package render

import (
	"fmt"
	"strings"

	"github.com/protokoll/minutes/internal/parser"
)

const (
	typesetExtraStub    = `\textit{[Dieser Tagesordnungspunkt wird in einem eigenem PDF exportiert.]}`
	typesetInternalStub = `\textit{[An dieser Stelle wurde intern protokolliert.]}`
)

// typeset emits LaTeX itemize lists.
type typeset struct{}

func (t typeset) fork(r *renderer, n *parser.Node, level int) string {
	if n.Extra {
		return typesetExtraStub
	}
	if level > 0 && r.isInternal(n) {
		if !r.opts.internal() {
			return typesetInternalStub
		}
		return `\begin{tcolorbox}[breakable,title=Interner Abschnitt]` + "\n" +
			t.body(r, n, level) + "\n" +
			`\end{tcolorbox}`
	}
	if level == 0 {
		return t.body(r, n, level)
	}
	return EscapeTeX(n.Name) + "\n" + t.body(r, n, level)
}

func (typeset) body(r *renderer, n *parser.Node, level int) string {
	parts := r.children(n, level)
	for i, p := range parts {
		if !strings.HasPrefix(p, `\item`) {
			parts[i] = `\item ` + p
		}
	}
	content := strings.Join(parts, "\n")
	if strings.TrimSpace(content) == "" {
		content = `\item Nichts`
	}
	return `\begin{itemize}` + "\n" + content + "\n" + `\end{itemize}`
}

func (typeset) text(s string) string { return EscapeTeX(s) }

func (typeset) tag(r *renderer, t *parser.Tag) string {
	switch t.Kind {
	case parser.TagURL:
		return `\url{` + t.Arg(0) + `}`
	case parser.TagTodo:
		if !r.opts.internal() {
			return ""
		}
		if t.ActionItem != nil {
			return fmt.Sprintf(`\textbf{%s:} %s`, r.todoLabel(t.ActionItem), EscapeTeX(todoText(t.ActionItem)))
		}
	case parser.TagDecision:
		if t.Decision != nil {
			if len(t.Decision.Categories) > 0 {
				return fmt.Sprintf(`\Beschluss[%s]{%s}`, EscapeTeX(t.Decision.CategoriesString()), EscapeTeX(t.Decision.Content))
			}
			return fmt.Sprintf(`\Beschluss{%s}`, EscapeTeX(t.Decision.Content))
		}
	case parser.TagFootnote:
		r.footnote(t.Arg(0))
		return `\footnote{` + EscapeTeX(t.Arg(0)) + `}`
	}
	name, values := genericTag(t)
	return fmt.Sprintf(`\textbf{%s:} %s`, EscapeTeX(name), EscapeTeX(values))
}

func (typeset) remark(n *parser.Node) string {
	return `\textbf{` + EscapeTeX(n.Key) + `}: ` + EscapeTeX(n.Value)
}
