package semantic

import (
	"time"

	"github.com/protokoll/minutes/internal/parser"
)

// Options configure one compile run. They are passed by value to every call.
type Options struct {
	PrivateKeywords        parser.PrivateKeywords
	FuzzyMinScore          int
	ErrorContextLines      int
	Lax                    bool
	EmptySourcePlaceholder string

	// Now supplies the current time for dates without year. Nil means time.Now.
	Now func() time.Time
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		PrivateKeywords:   parser.PrivateKeywords{"private", "internal", "privat", "intern"},
		FuzzyMinScore:     90,
		ErrorContextLines: 3,
	}
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
