// Package parser turns protocol source text into a document tree of forks,
// content lines, remarks and inline tags.
package parser

import (
	"strings"

	"github.com/protokoll/minutes/internal/diag"
)

// Parse parses source into a tree. Failures are returned as *diag.Diagnostic
// carrying the line number and a dump of the partial tree.
func Parse(source string) (*Tree, error) {
	p := &parser{
		src:     source,
		tree:    NewTree(),
		line:    1,
		current: 0,
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.tree, nil
}

type parser struct {
	src     string
	pos     int
	line    int
	tree    *Tree
	current NodeID
}

func (p *parser) run() error {
	for p.pos < len(p.src) {
		rest := p.src[p.pos:]
		matched := false
		for _, bp := range blockPatterns {
			idx := bp.re.FindStringSubmatchIndex(rest)
			if idx == nil || idx[1] == 0 {
				continue
			}
			text := rest[:idx[1]]
			p.pos += idx[1]
			p.line += strings.Count(text, "\n")
			if err := p.apply(bp, rest, idx); err != nil {
				return err
			}
			matched = true
			break
		}
		if !matched {
			return p.fail(diag.KindLexical, p.line, "no matching syntax element found")
		}
	}
	if p.current != p.tree.Root() {
		open := p.tree.Node(p.current)
		return p.fail(diag.KindStructural, open.Line,
			"you forgot to close a brace; the opening brace is at line %d", open.Line)
	}
	return nil
}

func (p *parser) apply(bp blockPattern, src string, idx []int) error {
	switch bp.kind {
	case blockForkOpen:
		p.openFork(src, idx)
	case blockForkClose:
		if p.tree.IsRoot(p.current) {
			return p.fail(diag.KindStructural, p.line, "found closing brace without an open block")
		}
		p.current = p.tree.Node(p.current).Parent
	case blockRemark:
		content, _ := group(remarkRe, src, idx, "content")
		key, value, ok := strings.Cut(content, ";")
		if !ok {
			return p.fail(diag.KindLexical, p.line, "remark %q has no value; expected #key;value", strings.TrimSpace(content))
		}
		p.tree.add(p.current, &Node{
			Kind:  KindRemark,
			Line:  p.line,
			Key:   strings.TrimSpace(key),
			Value: strings.TrimSpace(value),
		})
	case blockContent:
		content, _ := group(contentRe, src, idx, "content")
		content = strings.TrimRight(content, " \t")
		if content == "" {
			return nil
		}
		runs, err := p.inline(content)
		if err != nil {
			return err
		}
		p.tree.add(p.current, &Node{Kind: KindContent, Line: p.line, Runs: runs})
	case blockEmpty:
		p.tree.add(p.current, &Node{Kind: KindEmpty, Line: p.line})
	}
	return nil
}

func (p *parser) openFork(src string, idx []int) {
	name, _ := group(forkOpenRe, src, idx, "name")
	name = strings.TrimSpace(name)
	topName, isTop := group(forkOpenRe, src, idx, "topname")
	_, isExtra := group(forkOpenRe, src, idx, "extra")
	if isTop {
		name = strings.TrimSpace(topName)
	} else if m := namedTopRe.FindStringSubmatch(name); m != nil {
		isTop = true
		isExtra = m[1] != ""
		name = strings.TrimSpace(m[2])
	}
	// Agenda items only exist directly below the root.
	if !p.tree.IsRoot(p.current) {
		isTop, isExtra = false, false
	}
	p.current = p.tree.add(p.current, &Node{
		Kind:  KindFork,
		Line:  p.line,
		Name:  name,
		Top:   isTop,
		Extra: isTop && isExtra,
	})
}

// inline splits a content payload into text and tag runs.
func (p *parser) inline(content string) ([]Run, error) {
	var runs []Run
	for len(content) > 0 {
		if m := tagRe.FindStringSubmatch(content); m != nil {
			runs = append(runs, Run{Kind: RunTag, Tag: p.newTag(m[1])})
			content = content[len(m[0]):]
			continue
		}
		if m := textRe.FindString(content); m != "" {
			runs = append(runs, Run{Kind: RunText, Text: m})
			content = content[len(m):]
			continue
		}
		return nil, p.fail(diag.KindLexical, p.line,
			"this is not a valid tag (known tags: %s)", strings.Join(KnownTags, ", "))
	}
	return runs, nil
}

func (p *parser) newTag(payload string) *Tag {
	parts := strings.Split(payload, ";")
	name := strings.TrimSpace(parts[0])
	args := make([]string, 0, len(parts)-1)
	for _, a := range parts[1:] {
		args = append(args, strings.TrimSpace(a))
	}
	return &Tag{
		Kind: LookupTagKind(name),
		Name: name,
		Args: args,
		Line: p.line,
		Fork: p.current,
	}
}

func (p *parser) fail(kind diag.Kind, line int, format string, args ...any) error {
	return diag.New(diag.PhaseParsing, kind, line, format, args...).WithTree(Dump(p.tree))
}
