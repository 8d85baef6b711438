package render

import (
	"regexp"
	"strings"
)

// texReplacements are applied one after another. The backslash rule runs
// first and its marker is resolved last, so no rule re-escapes the output of
// an earlier one.
var texReplacements = [][2]string{
	{`\`, `\backslash`},
	{`$`, `\$`},
	{`%`, `\%`},
	{`&`, `\&`},
	{`#`, `\#`},
	{`_`, `\_`},
	{`{`, `\{`},
	{`}`, `\}`},
	{`[`, `{[}`},
	{`]`, `{]}`},
	{`~`, `$\sim{}$`},
	{`^`, `\textasciicircum{}`},
	{`˄`, `\textasciicircum{}`},
	{"`", "{}`"},
	{`-->`, `$\longrightarrow$`},
	{`->`, `$\rightarrow$`},
	{`==>`, `$\Longrightarrow$`},
	{`=>`, `$\Rightarrow$`},
	{`>=`, `$\geq$`},
	{`=<`, `$\leq$`},
	{`<`, `$<$`},
	{`>`, `$>$`},
	{`\backslashin`, `$\in$`},
	{`\backslash`, `$\backslash$`},
}

var (
	parenBeforeRe = regexp.MustCompile(`([a-z])\(`)
	parenAfterRe  = regexp.MustCompile(`\)([a-z])`)
)

// EscapeTeX makes text safe for the typeset body. Double quotes are paired
// into \enquote{...}; an unpaired quote is left as "'.
func EscapeTeX(text string) string {
	out := text
	for _, r := range texReplacements {
		out = strings.ReplaceAll(out, r[0], r[1])
	}

	var b strings.Builder
	for {
		open := strings.IndexByte(out, '"')
		if open < 0 {
			b.WriteString(out)
			break
		}
		b.WriteString(out[:open])
		rest := out[open+1:]
		end := strings.IndexByte(rest, '"')
		if end < 0 {
			b.WriteString(`"'`)
			b.WriteString(rest)
			break
		}
		b.WriteString(`\enquote{`)
		b.WriteString(rest[:end])
		b.WriteString("}")
		out = rest[end+1:]
	}

	res := parenBeforeRe.ReplaceAllString(b.String(), "$1 (")
	return parenAfterRe.ReplaceAllString(res, ") $1")
}
