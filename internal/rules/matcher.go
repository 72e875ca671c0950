package rules

import "regexp"

// ExprMatcher decides whether an expression rendering is of interest to a
// rule. Keeping it behind an interface lets a structural matcher replace the
// lexical one later without touching traversal code.
type ExprMatcher interface {
	Match(expr string) bool
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) Match(expr string) bool { return m.re.MatchString(expr) }

func NewRegexMatcher(pattern string) (ExprMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return regexMatcher{re: re}, nil
}

func mustMatcher(pattern string) ExprMatcher {
	m, err := NewRegexMatcher(pattern)
	if err != nil {
		panic(err)
	}
	return m
}
