// Package render turns a compiled protocol tree into the typeset, hypertext,
// wiki and plaintext outputs, for either the public or the internal audience.
package render

import (
	"fmt"
	"strings"

	"github.com/protokoll/minutes/internal/models"
	"github.com/protokoll/minutes/internal/parser"
	"github.com/protokoll/minutes/internal/tags"
)

// Format selects the output dialect.
type Format string

const (
	FormatTypeset   Format = "typeset"
	FormatHypertext Format = "hypertext"
	FormatWiki      Format = "wiki"
	FormatDokuWiki  Format = "dokuwiki"
	FormatPlaintext Format = "plaintext"
)

// Formats lists every format in a stable order.
var Formats = []Format{FormatTypeset, FormatHypertext, FormatWiki, FormatDokuWiki, FormatPlaintext}

// ParseFormat resolves a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == strings.ToLower(strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("render: unknown format %q", s)
}

// Visibility is the audience of a render.
type Visibility string

const (
	Public   Visibility = "public"
	Internal Visibility = "internal"
)

// Visibilities lists both audiences, public first.
var Visibilities = []Visibility{Public, Internal}

// Options parameterise one render.
type Options struct {
	Format          Format
	Visibility      Visibility
	PrivateKeywords parser.PrivateKeywords
	// HTMLLevelOffset shifts hypertext heading depth.
	HTMLLevelOffset int
	// NewActionItems marks items rendered with the "new" label.
	NewActionItems map[int64]bool
}

func (o Options) internal() bool { return o.Visibility == Internal }

// dialect is implemented once per format.
type dialect interface {
	fork(r *renderer, n *parser.Node, level int) string
	text(s string) string
	tag(r *renderer, t *parser.Tag) string
	remark(n *parser.Node) string
}

type renderer struct {
	tree      *parser.Tree
	opts      Options
	d         dialect
	footnotes []Footnote
}

// Render renders the whole tree.
func Render(tree *parser.Tree, opts Options) (string, error) {
	r, err := newRenderer(tree, opts)
	if err != nil {
		return "", err
	}
	out := r.d.fork(r, tree.Node(tree.Root()), 0)
	if opts.Format == FormatHypertext && len(r.footnotes) > 0 {
		out += footnoteList(r.footnotes)
	}
	return out, nil
}

// Extra renders one extra-flagged agenda item as a standalone typeset body,
// the way it would appear in the main document if it were not exported separately.
func Extra(tree *parser.Tree, id parser.NodeID, opts Options) (string, error) {
	n := tree.Node(id)
	if n.Kind != parser.KindFork || !n.Extra {
		return "", fmt.Errorf("render: node %d is not an extra agenda item", id)
	}
	opts.Format = FormatTypeset
	r, err := newRenderer(tree, opts)
	if err != nil {
		return "", err
	}
	if !r.visible(n) {
		return "", fmt.Errorf("render: agenda item %q is internal", n.Name)
	}
	return typeset{}.body(r, n, 1), nil
}

func newRenderer(tree *parser.Tree, opts Options) (*renderer, error) {
	var d dialect
	switch opts.Format {
	case FormatTypeset:
		d = typeset{}
	case FormatHypertext:
		d = hypertext{}
	case FormatWiki:
		d = wiki{}
	case FormatDokuWiki:
		d = dokuwiki{}
	case FormatPlaintext:
		d = plaintext{}
	default:
		return nil, fmt.Errorf("render: unknown format %q", opts.Format)
	}
	return &renderer{tree: tree, opts: opts, d: d}, nil
}

// part is the rendering of one child node.
type part struct {
	node *parser.Node
	text string
}

// parts renders the children of a fork at level+1, dropping blank ones.
func (r *renderer) parts(n *parser.Node, level int) []part {
	var out []part
	for _, id := range n.Children {
		c := r.tree.Node(id)
		text := r.node(c, level+1)
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, part{node: c, text: text})
	}
	return out
}

func (r *renderer) children(n *parser.Node, level int) []string {
	ps := r.parts(n, level)
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.text
	}
	return out
}

func (r *renderer) node(n *parser.Node, level int) string {
	switch n.Kind {
	case parser.KindFork:
		return r.d.fork(r, n, level)
	case parser.KindContent:
		var b strings.Builder
		for _, run := range n.Runs {
			if run.Kind == parser.RunTag {
				b.WriteString(r.d.tag(r, run.Tag))
			} else {
				b.WriteString(r.d.text(run.Text))
			}
		}
		return b.String()
	case parser.KindRemark:
		return r.d.remark(n)
	}
	return ""
}

func (r *renderer) isInternal(n *parser.Node) bool {
	return r.tree.IsInternal(n.ID, r.opts.PrivateKeywords)
}

func (r *renderer) visible(n *parser.Node) bool {
	return r.tree.Visible(n.ID, r.opts.PrivateKeywords, r.opts.internal())
}

// footnote records a rendered footnote and returns its anchor hash.
func (r *renderer) footnote(text string) string {
	h := tags.FootnoteHash(text)
	r.footnotes = append(r.footnotes, Footnote{Hash: h, Text: text})
	return h
}

// todoLabel is "Neuer Todo" in the item's first meeting, else "Todo".
func (r *renderer) todoLabel(item *models.ActionItem) string {
	if r.opts.NewActionItems[item.ID] {
		return "Neuer Todo"
	}
	return "Todo"
}

func todoText(item *models.ActionItem) string {
	return item.Who + ": " + item.Description + ", " + item.StateText()
}

// genericTag is the fallback rendering of tags without a dedicated form.
func genericTag(t *parser.Tag) (name, values string) {
	name = t.Name
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return name, strings.Join(t.Args, ";")
}

// Footnote is a footnote visible in a render.
type Footnote struct {
	Hash string `json:"hash"`
	Text string `json:"text"`
}

// Footnotes returns the footnotes visible under the given visibility, in document order.
func Footnotes(tree *parser.Tree, keywords parser.PrivateKeywords, v Visibility) []Footnote {
	var out []Footnote
	for _, t := range visibleTags(tree, keywords, v) {
		if t.Kind == parser.TagFootnote {
			out = append(out, Footnote{Hash: tags.FootnoteHash(t.Arg(0)), Text: t.Arg(0)})
		}
	}
	return out
}

// Decisions returns the decisions attached to tags visible under the given visibility.
func Decisions(tree *parser.Tree, keywords parser.PrivateKeywords, v Visibility) []*models.Decision {
	var out []*models.Decision
	for _, t := range visibleTags(tree, keywords, v) {
		if t.Kind == parser.TagDecision && t.Decision != nil {
			out = append(out, t.Decision)
		}
	}
	return out
}

// ExtraTops returns the extra-flagged agenda items visible under the given visibility.
func ExtraTops(tree *parser.Tree, keywords parser.PrivateKeywords, v Visibility) []*parser.Node {
	var out []*parser.Node
	for _, n := range tree.TopForks() {
		if n.Extra && tree.Visible(n.ID, keywords, v == Internal) {
			out = append(out, n)
		}
	}
	return out
}

func visibleTags(tree *parser.Tree, keywords parser.PrivateKeywords, v Visibility) []*parser.Tag {
	var out []*parser.Tag
	for _, t := range tree.Tags() {
		if tree.Visible(t.Fork, keywords, v == Internal) {
			out = append(out, t)
		}
	}
	return out
}
