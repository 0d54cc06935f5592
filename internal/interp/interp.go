package interp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/idfcalc/internal/ctxlog"
	"github.com/vk/idfcalc/internal/expr"
	"github.com/vk/idfcalc/internal/grid"
)

// Options configures one interpreter instance. Zero values mean: write next
// to the script, no fixed extent, no rounding, default depth limit.
type Options struct {
	OutputPath string
	BasePath   string

	Debug    bool
	Quiet    bool
	Verbose  bool
	Metadata bool

	// RoundDecimals, when set, rounds every persisted result.
	RoundDecimals *int
	// FixedExtent, when set, overrides every reconciliation target.
	FixedExtent *grid.Extent
	// NoDataValue, when set, fixes what the NoData literal evaluates to.
	NoDataValue *float64

	MaxDepth int
}

// LineError annotates a failure with the 1-based script line it happened on.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Interpreter executes calculator scripts. Each instance owns its variable
// table and expression context, so concurrent test instances stay isolated.
type Interpreter struct {
	opts     Options
	bindings *Bindings
	ec       *expr.Context
}

// New returns an interpreter using the given function registry.
func New(opts Options, funcs *expr.Registry) *Interpreter {
	bindings := NewBindings()
	ec := expr.NewContext(funcs, bindings)
	ec.BasePath = opts.BasePath
	ec.OutputPath = opts.OutputPath
	ec.FixedExtent = opts.FixedExtent
	ec.NoDataValue = opts.NoDataValue
	ec.Debug = opts.Debug
	ec.Quiet = opts.Quiet
	if opts.MaxDepth > 0 {
		ec.MaxDepth = opts.MaxDepth
	}
	return &Interpreter{opts: opts, bindings: bindings, ec: ec}
}

// Bindings exposes the variable table, primarily for tests.
func (in *Interpreter) Bindings() *Bindings { return in.bindings }

// RunScript executes the script file at path. Only .ini files are accepted.
func (in *Interpreter) RunScript(ctx context.Context, path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".ini") {
		return fmt.Errorf("script file must have the .ini extension, got %q", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return in.RunLines(ctx, strings.Split(string(raw), "\n"))
}

// RunLines executes the given script lines. A quiet stop terminates the run
// cleanly; every other failure aborts it, annotated with its line.
func (in *Interpreter) RunLines(ctx context.Context, lines []string) error {
	stmts := joinContinuations(lines)
	if err := in.execBlock(ctx, stmts); err != nil {
		if errors.Is(err, expr.ErrQuietStop) {
			ctxlog.FromContext(ctx).Info("Quiet stop; terminating run successfully.")
			return nil
		}
		return err
	}
	return nil
}

// statement is one logical script line after continuation joining, tagged
// with the physical line number it started on.
type statement struct {
	num  int
	text string
}

// joinContinuations merges physical lines ending in '_' into one logical
// statement, numbered by the first physical line.
func joinContinuations(lines []string) []statement {
	var stmts []statement
	acc := ""
	start := 0
	for i, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		if acc == "" {
			start = i + 1
		}
		if strings.HasSuffix(trimmed, "_") {
			acc += strings.TrimSuffix(trimmed, "_")
			continue
		}
		stmts = append(stmts, statement{num: start, text: acc + trimmed})
		acc = ""
	}
	if acc != "" {
		stmts = append(stmts, statement{num: start, text: acc})
	}
	return stmts
}

// isComment reports whether a trimmed line is a comment, returning the
// comment body with the prefix stripped.
func isComment(line string) (string, bool) {
	switch {
	case strings.HasPrefix(line, "//"):
		return strings.TrimSpace(line[2:]), true
	case strings.HasPrefix(line, "'"):
		return strings.TrimSpace(line[1:]), true
	}
	upper := strings.ToUpper(line)
	if upper == "REM" || strings.HasPrefix(upper, "REM ") {
		return strings.TrimSpace(line[3:]), true
	}
	return "", false
}

// execBlock runs a sequence of statements, expanding FOR loops as it goes.
func (in *Interpreter) execBlock(ctx context.Context, stmts []statement) error {
	logger := ctxlog.FromContext(ctx)
	i := 0
	for i < len(stmts) {
		s := stmts[i]
		line := strings.TrimSpace(s.text)

		if line == "" {
			i++
			continue
		}
		if body, ok := isComment(line); ok {
			if in.opts.Verbose {
				logger.Info(body)
			}
			i++
			continue
		}
		if frame, ok, err := parseForHeader(line, in.opts.BasePath); ok {
			if err != nil {
				return &LineError{Line: s.num, Text: s.text, Err: err}
			}
			end, err := findEndFor(stmts, i)
			if err != nil {
				return &LineError{Line: s.num, Text: s.text, Err: err}
			}
			if err := in.execLoop(ctx, frame, stmts[i+1:end]); err != nil {
				return err
			}
			i = end + 1
			continue
		}

		if err := in.execAssignment(ctx, line); err != nil {
			return &LineError{Line: s.num, Text: s.text, Err: err}
		}
		i++
	}
	return nil
}

// execAssignment parses and executes one "name = expression" line.
func (in *Interpreter) execAssignment(ctx context.Context, line string) error {
	logger := ctxlog.FromContext(ctx)
	line = expandEnv(line)

	lhs, rhs, err := splitAssignment(line)
	if err != nil {
		return err
	}
	name, subdir := splitTargetName(lhs)
	if name == "" {
		return &expr.SyntaxError{Expr: line, Msg: "missing variable name"}
	}
	if in.opts.Verbose {
		logger.Info("Executing assignment.", "name", name, "expression", rhs)
	}

	g, typ, err := in.evalRHS(ctx, rhs)
	if err != nil {
		return err
	}

	// Never let two bindings share one grid: a result that is (or embeds) an
	// already bound grid gets its own copy before it is bound again.
	if in.bindings.Owns(g) {
		if g, err = g.Copy(ctx, name); err != nil {
			return err
		}
	}

	// Constants and direct file loads count as already persisted.
	persisted := !typ.Computed() || g.IsConstant()
	if typ.Computed() {
		if in.opts.RoundDecimals != nil {
			if g, err = g.Round(ctx, *in.opts.RoundDecimals); err != nil {
				return err
			}
		}
		if !g.IsConstant() {
			out := filepath.Join(in.opts.OutputPath, subdir, name+".idf")
			var meta *grid.Metadata
			if in.opts.Metadata {
				meta = &grid.Metadata{Source: rhs, CreatedBy: "idfcalc"}
			}
			if err := g.Write(ctx, out, meta); err != nil {
				return err
			}
			logger.Debug("Result persisted.", "name", name, "file", out, "type", typ.String())
			persisted = true
		}
	}

	g.Name = name
	in.bindings.Bind(&Binding{Name: name, Grid: g, Type: typ, Subdir: subdir, Persisted: persisted})

	// Bound values are dropped after every line to cap peak memory; they
	// reload lazily from their backing files when referenced again.
	in.bindings.ReleaseAll()
	return nil
}

// evalRHS evaluates the right-hand side of an assignment. A bare grid
// filename is loaded directly, bypassing the expression engine.
func (in *Interpreter) evalRHS(ctx context.Context, rhs string) (*grid.Grid, expr.Type, error) {
	if isBareGridFile(rhs) {
		g, err := in.ec.OpenGridFile(ctx, strings.TrimSpace(rhs))
		if err != nil {
			return nil, expr.TypeUndefined, err
		}
		return g, expr.TypeFile, nil
	}
	return expr.Evaluate(ctx, in.ec, rhs)
}

// isBareGridFile reports whether rhs is a plain .idf filename rather than
// an expression.
func isBareGridFile(rhs string) bool {
	rhs = strings.TrimSpace(rhs)
	if !strings.HasSuffix(strings.ToLower(rhs), ".idf") {
		return false
	}
	return !strings.ContainsAny(rhs, "()+*/^,&|<>=!")
}

// protected maps the two-character comparison operators to placeholder
// bytes while an assignment is split on its single '='.
var protected = [...]struct{ op, tmp string }{
	{"==", "\x01"},
	{"!=", "\x02"},
	{">=", "\x03"},
	{"<=", "\x04"},
}

// splitAssignment splits "name = expression" on the single unprotected '='.
func splitAssignment(line string) (string, string, error) {
	masked := line
	for _, p := range protected {
		masked = strings.ReplaceAll(masked, p.op, p.tmp)
	}
	if strings.Count(masked, "=") != 1 {
		return "", "", &expr.SyntaxError{Expr: line, Msg: "statement must be an assignment with exactly one ="}
	}
	eq := strings.IndexByte(masked, '=')
	lhs, rhs := masked[:eq], masked[eq+1:]
	for _, p := range protected {
		lhs = strings.ReplaceAll(lhs, p.tmp, p.op)
		rhs = strings.ReplaceAll(rhs, p.tmp, p.op)
	}
	return strings.TrimSpace(lhs), strings.TrimSpace(rhs), nil
}

// splitTargetName separates an optional subdirectory prefix from the
// assignment target.
func splitTargetName(lhs string) (name, subdir string) {
	lhs = strings.ReplaceAll(lhs, "\\", "/")
	if i := strings.LastIndexByte(lhs, '/'); i >= 0 {
		return strings.TrimSpace(lhs[i+1:]), strings.TrimSpace(lhs[:i])
	}
	return lhs, ""
}
