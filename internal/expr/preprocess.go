package expr

import (
	"fmt"
	"sort"
	"strings"
)

// prepared is the output of the preprocessor: the cleaned expression text
// with every bound variable name replaced by a placeholder token, plus the
// mapping needed to resolve placeholders back.
type prepared struct {
	expr string
	vars map[string]string // placeholder -> original name
}

// prepare strips whitespace, validates parenthesis nesting, and substitutes
// bound variable names with placeholder tokens.
//
// Names are substituted longest-first so that a name that is a substring of
// another never matches inside it. This preserves the legacy substitution
// scheme; it remains ambiguous when two distinct names are both substrings
// of a third.
func prepare(expression string, names []string) (*prepared, error) {
	var b strings.Builder
	for i := 0; i < len(expression); i++ {
		switch expression[i] {
		case ' ', '\t', '\r', '\n':
		default:
			b.WriteByte(expression[i])
		}
	}
	clean := b.String()
	if clean == "" {
		return nil, &SyntaxError{Msg: "empty expression"}
	}

	depth := 0
	for i := 0; i < len(clean); i++ {
		switch clean[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, &SyntaxError{Expr: clean, Msg: "unmatched closing parenthesis"}
			}
		}
	}
	if depth != 0 {
		return nil, &SyntaxError{Expr: clean, Msg: "unbalanced parentheses"}
	}

	p := &prepared{vars: make(map[string]string)}
	ordered := make([]string, len(names))
	copy(ordered, names)
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i]) != len(ordered[j]) {
			return len(ordered[i]) > len(ordered[j])
		}
		return ordered[i] < ordered[j]
	})
	for i, name := range ordered {
		if !strings.Contains(clean, name) {
			continue
		}
		ph := fmt.Sprintf("~%d~", i)
		clean = strings.ReplaceAll(clean, name, ph)
		p.vars[ph] = name
	}
	p.expr = clean
	return p, nil
}

// variable returns the original name behind a placeholder token.
func (p *prepared) variable(token string) (string, bool) {
	name, ok := p.vars[token]
	return name, ok
}

// restore maps placeholders in text back to the original variable names, for
// debug output and provenance metadata.
func (p *prepared) restore(text string) string {
	for ph, name := range p.vars {
		text = strings.ReplaceAll(text, ph, name)
	}
	return text
}
