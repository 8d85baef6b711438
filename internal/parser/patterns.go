package parser

import "regexp"

// Block patterns, tried in order at the cursor. The first match wins.
var (
	forkOpenRe  = regexp.MustCompile(`^\s*(?P<name>[^{};\n]+)?\n?\s*\{(?:(?P<extra>!)?TOP[ \t]*(?P<topname>[^;{}\n]+))?`)
	forkCloseRe = regexp.MustCompile(`^\s*\};?`)
	remarkRe    = regexp.MustCompile(`^\s*#(?P<content>[^\n]+)`)
	contentRe   = regexp.MustCompile(`^\s*(?P<content>(?:(?:[^\[\];\r\n{}]+)|(?:[^\[\];\r\n{}]+)?(?:\[[^\]\r\n{}]+\][^;\[\]\r\n{}]*)+)+);?`)
	emptyRe     = regexp.MustCompile(`^(?:\s|;)+`)
)

// Inline patterns inside a content payload.
var (
	tagRe  = regexp.MustCompile(`^\[(?P<content>[^\]]*)\]`)
	textRe = regexp.MustCompile(`^\[?[^\[{}]+`)
)

// "TOP Name {" is accepted as an alternative spelling of "{TOP Name".
var namedTopRe = regexp.MustCompile(`^(!)?TOP\s+(.+)$`)

type blockKind int

const (
	blockForkOpen blockKind = iota
	blockForkClose
	blockRemark
	blockContent
	blockEmpty
)

type blockPattern struct {
	kind blockKind
	re   *regexp.Regexp
}

var blockPatterns = []blockPattern{
	{blockForkOpen, forkOpenRe},
	{blockForkClose, forkCloseRe},
	{blockRemark, remarkRe},
	{blockContent, contentRe},
	{blockEmpty, emptyRe},
}

// group returns the named submatch or "" with ok=false when it did not participate.
func group(re *regexp.Regexp, src string, idx []int, name string) (string, bool) {
	i := re.SubexpIndex(name)
	if i < 0 || idx[2*i] < 0 {
		return "", false
	}
	return src[idx[2*i]:idx[2*i+1]], true
}
