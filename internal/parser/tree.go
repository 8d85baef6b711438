package parser

import (
	"strings"

	"github.com/protokoll/minutes/internal/models"
)

// NodeID indexes a node inside its Tree. Back-edges (parent, enclosing fork)
// are stored as ids, never as pointers.
type NodeID int

// NoNode marks the missing parent of the root.
const NoNode NodeID = -1

// NodeKind discriminates the node variants.
type NodeKind int

const (
	KindFork NodeKind = iota
	KindContent
	KindRemark
	KindEmpty
)

func (k NodeKind) String() string {
	switch k {
	case KindFork:
		return "fork"
	case KindContent:
		return "content"
	case KindRemark:
		return "remark"
	case KindEmpty:
		return "empty"
	}
	return "unknown"
}

// Node is one element of the document tree. Which fields are meaningful
// depends on Kind.
type Node struct {
	ID     NodeID
	Kind   NodeKind
	Line   int
	Parent NodeID

	// Fork.
	Name     string
	Top      bool
	Extra    bool
	Children []NodeID

	// Content.
	Runs []Run

	// Remark.
	Key   string
	Value string
}

// RunKind discriminates inline runs.
type RunKind int

const (
	RunText RunKind = iota
	RunTag
)

// Run is a piece of a content line: literal text or a bracketed tag.
type Run struct {
	Kind RunKind
	Text string
	Tag  *Tag
}

// TagKind is the closed set of recognised tags plus an unknown arm.
type TagKind int

const (
	TagUnknown TagKind = iota
	TagTodo
	TagURL
	TagDecision
	TagFootnote
	TagMeeting
)

// KnownTags lists the accepted tag names in documentation order.
var KnownTags = []string{"todo", "url", "beschluss", "footnote", "sitzung"}

var tagKinds = map[string]TagKind{
	"todo":      TagTodo,
	"url":       TagURL,
	"beschluss": TagDecision,
	"footnote":  TagFootnote,
	"sitzung":   TagMeeting,
}

// LookupTagKind maps a tag name to its kind.
func LookupTagKind(name string) TagKind {
	if k, ok := tagKinds[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k
	}
	return TagUnknown
}

// Tag is a bracketed "[name;arg;...]" instance. ActionItem and Decision are
// attached by the semantic pass.
type Tag struct {
	Kind TagKind
	Name string
	Args []string
	Line int
	Fork NodeID

	ActionItem *models.ActionItem
	Decision   *models.Decision
}

// Arg returns the i-th argument or "".
func (t *Tag) Arg(i int) string {
	if i < len(t.Args) {
		return t.Args[i]
	}
	return ""
}

// Tree owns all nodes of one parse. The root is always node 0.
type Tree struct {
	nodes []*Node
}

// NewTree returns a tree holding only the root fork.
func NewTree() *Tree {
	t := &Tree{}
	t.nodes = append(t.nodes, &Node{ID: 0, Kind: KindFork, Parent: NoNode})
	return t
}

// Root returns the id of the root fork.
func (t *Tree) Root() NodeID { return 0 }

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) *Node { return t.nodes[id] }

// Len returns the number of nodes including the root.
func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) add(parent NodeID, n *Node) NodeID {
	n.ID = NodeID(len(t.nodes))
	n.Parent = parent
	t.nodes = append(t.nodes, n)
	p := t.nodes[parent]
	p.Children = append(p.Children, n.ID)
	return n.ID
}

// IsRoot reports whether id is the root.
func (t *Tree) IsRoot(id NodeID) bool { return t.nodes[id].Parent == NoNode }

// Top returns the top-level fork enclosing id (a child of the root), the
// root itself for the root, and the node itself when it is a top-level fork.
func (t *Tree) Top(id NodeID) NodeID {
	for {
		n := t.nodes[id]
		if n.Parent == NoNode || t.nodes[n.Parent].Parent == NoNode {
			return id
		}
		id = n.Parent
	}
}

// TopNumber returns the 1-based position of the enclosing top-level fork among
// the fork children of the root.
func (t *Tree) TopNumber(id NodeID) int {
	if t.IsRoot(id) {
		return 1
	}
	top := t.Top(id)
	n := 0
	for _, c := range t.nodes[t.Root()].Children {
		if t.nodes[c].Kind != KindFork {
			continue
		}
		n++
		if c == top {
			return n
		}
	}
	return n
}

// MaxDepth returns 1 for a fork without fork children, else 1 + the deepest child.
func (t *Tree) MaxDepth(id NodeID) int {
	depth := 0
	for _, c := range t.nodes[id].Children {
		if t.nodes[c].Kind == KindFork {
			depth = max(depth, t.MaxDepth(c))
		}
	}
	return depth + 1
}

// Walk visits every node in pre-order with its depth (root = 0). Returning
// false from fn skips the node's children.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	t.walk(t.Root(), 0, fn)
}

func (t *Tree) walk(id NodeID, depth int, fn func(*Node, int) bool) {
	n := t.nodes[id]
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		t.walk(c, depth+1, fn)
	}
}

// Tags returns all tag runs in document order.
func (t *Tree) Tags() []*Tag {
	var out []*Tag
	t.Walk(func(n *Node, _ int) bool {
		for _, r := range n.Runs {
			if r.Kind == RunTag {
				out = append(out, r.Tag)
			}
		}
		return true
	})
	return out
}

// Remarks returns the remarks that are direct children of the root.
func (t *Tree) Remarks() []*Node {
	var out []*Node
	for _, c := range t.nodes[t.Root()].Children {
		if n := t.nodes[c]; n.Kind == KindRemark {
			out = append(out, n)
		}
	}
	return out
}

// TopForks returns the top-level agenda forks in source order.
func (t *Tree) TopForks() []*Node {
	var out []*Node
	for _, c := range t.nodes[t.Root()].Children {
		if n := t.nodes[c]; n.Kind == KindFork && n.Top {
			out = append(out, n)
		}
	}
	return out
}

// PrivateKeywords are fork names that mark a subtree as internal.
type PrivateKeywords []string

// Match reports whether name, trimmed and with colons removed, equals one of
// the keywords ignoring case.
func (k PrivateKeywords) Match(name string) bool {
	stripped := strings.TrimSpace(strings.ReplaceAll(name, ":", ""))
	if stripped == "" {
		return false
	}
	for _, kw := range k {
		if strings.EqualFold(stripped, strings.TrimSpace(kw)) {
			return true
		}
	}
	return false
}

// IsInternal reports whether id is a fork whose name is a private keyword.
func (t *Tree) IsInternal(id NodeID, keywords PrivateKeywords) bool {
	n := t.nodes[id]
	return n.Kind == KindFork && keywords.Match(n.Name)
}

// Visible reports whether id is shown in a render: in internal mode every
// node is, in public mode only nodes without an internal fork on their path
// to the root (the node itself included).
func (t *Tree) Visible(id NodeID, keywords PrivateKeywords, showInternal bool) bool {
	if showInternal {
		return true
	}
	for id != NoNode {
		if t.IsInternal(id, keywords) {
			return false
		}
		id = t.nodes[id].Parent
	}
	return true
}
