package interp

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/vk/idfcalc/internal/expr"
	"github.com/vk/idfcalc/internal/fsutil"
)

// forFrame is one active FOR loop: the loop variable and the ordered values
// it takes. Values come from a literal integer range or from counting files
// matching a glob.
type forFrame struct {
	loopVar string
	values  []string
}

var (
	forHeaderRe = regexp.MustCompile(`(?i)^FOR\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(\S+)\s+TO\s+(.+)$`)
	countRe     = regexp.MustCompile(`(?i)^count\(\s*"([^"]+)"\s*\)$`)
)

// parseForHeader recognizes a "FOR var = start TO end" header. The end
// bound is a literal integer or count("glob"), resolved against basePath.
func parseForHeader(line, basePath string) (forFrame, bool, error) {
	m := forHeaderRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return forFrame{}, false, nil
	}
	start, err := strconv.Atoi(m[2])
	if err != nil {
		return forFrame{}, true, &expr.SyntaxError{Expr: line, Msg: "FOR start bound must be an integer"}
	}

	var end int
	endText := strings.TrimSpace(m[3])
	if cm := countRe.FindStringSubmatch(endText); cm != nil {
		pattern := cm[1]
		if !filepath.IsAbs(pattern) && basePath != "" {
			pattern = filepath.Join(basePath, pattern)
		}
		end, err = fsutil.CountMatches(pattern)
		if err != nil {
			return forFrame{}, true, fmt.Errorf("resolving %s: %w", endText, err)
		}
	} else if end, err = strconv.Atoi(endText); err != nil {
		return forFrame{}, true, &expr.SyntaxError{Expr: line, Msg: "FOR end bound must be an integer or count(\"glob\")"}
	}

	frame := forFrame{loopVar: m[1]}
	for v := start; v <= end; v++ {
		frame.values = append(frame.values, strconv.Itoa(v))
	}
	return frame, true, nil
}

// findEndFor locates the ENDFOR matching the FOR header at index start,
// honoring nesting.
func findEndFor(stmts []statement, start int) (int, error) {
	depth := 0
	for i := start + 1; i < len(stmts); i++ {
		line := strings.ToUpper(strings.TrimSpace(stmts[i].text))
		switch {
		case strings.HasPrefix(line, "FOR "):
			depth++
		case line == "ENDFOR":
			if depth == 0 {
				return i, nil
			}
			depth--
		}
	}
	return 0, &expr.SyntaxError{Expr: stmts[start].text, Msg: "FOR without matching ENDFOR"}
}

// execLoop runs the loop body once per value, substituting the loop
// variable textually. Nested FOR headers inside the body are expanded by
// the recursive execBlock call, stacking naturally.
func (in *Interpreter) execLoop(ctx context.Context, frame forFrame, body []statement) error {
	for _, val := range frame.values {
		expanded := make([]statement, len(body))
		for i, s := range body {
			expanded[i] = statement{num: s.num, text: substituteLoopVar(s.text, frame.loopVar, val)}
		}
		if err := in.execBlock(ctx, expanded); err != nil {
			return err
		}
	}
	return nil
}

// substituteLoopVar replaces standalone occurrences of name in text with val.
// An occurrence is standalone when it is not flanked by letters or digits, so
// the I in A_I substitutes while the L in LAYER does not.
func substituteLoopVar(text, name, val string) string {
	isAlnum := func(b byte) bool {
		return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
	}
	var b strings.Builder
	for i := 0; i < len(text); {
		if strings.HasPrefix(text[i:], name) && (i == 0 || !isAlnum(text[i-1])) {
			j := i + len(name)
			if j == len(text) || !isAlnum(text[j]) {
				b.WriteString(val)
				i = j
				continue
			}
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String()
}
