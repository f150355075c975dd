package document

import (
	"regexp"
	"strings"
)

// DefaultStyles are structural rules emitted ahead of any collected rules.
const DefaultStyles = `.docx-table { width: 100%; border-collapse: collapse; margin: 1em 0; }
.docx-td, .docx-th { border: 1px solid; padding: 0.5em; }
.heading1 { font-size: 2em; font-weight: bold; margin: 1em 0; }
.heading2 { font-size: 1.5em; font-weight: bold; margin: 0.83em 0; }
.heading3 { font-size: 1.17em; font-weight: bold; margin: 0.67em 0; }`

// StyleRule is a selector and its declarations.
type StyleRule struct {
	Selector     string
	Declarations string
}

// StyleSheet maps selectors to declarations in first-insertion order.
// Setting an existing selector replaces its declarations wholesale.
type StyleSheet struct {
	index map[string]int
	rules []StyleRule
}

// NewStyleSheet returns an empty style sheet.
func NewStyleSheet() *StyleSheet {
	return &StyleSheet{index: make(map[string]int)}
}

// Set records declarations for selector. Last write wins.
func (s *StyleSheet) Set(selector, declarations string) {
	if i, ok := s.index[selector]; ok {
		s.rules[i].Declarations = declarations
		return
	}
	s.index[selector] = len(s.rules)
	s.rules = append(s.rules, StyleRule{Selector: selector, Declarations: declarations})
}

// Get returns the declarations recorded for selector.
func (s *StyleSheet) Get(selector string) (string, bool) {
	i, ok := s.index[selector]
	if !ok {
		return "", false
	}
	return s.rules[i].Declarations, true
}

// Rules returns the rules in insertion order.
func (s *StyleSheet) Rules() []StyleRule {
	out := make([]StyleRule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Len returns the number of selectors.
func (s *StyleSheet) Len() int {
	return len(s.rules)
}

// String flattens the sheet to CSS text, one rule per line.
func (s *StyleSheet) String() string {
	lines := make([]string, 0, len(s.rules))
	for _, r := range s.rules {
		lines = append(lines, r.Selector+" { "+r.Declarations+" }")
	}
	return strings.Join(lines, "\n")
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// StyleSlug lower-cases a style name and replaces whitespace runs with "-".
func StyleSlug(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(name), "-")
}

// StyleClass is the class attached to elements produced from a named style.
func StyleClass(name string) string {
	return "docx-style-" + StyleSlug(name)
}
