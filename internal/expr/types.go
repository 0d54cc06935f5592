package expr

// Type tags how a value came to be. The script interpreter uses it to decide
// whether a result must be persisted: only genuinely computed results are
// written to disk, while constants and plain file loads already have a home.
type Type int

const (
	TypeUndefined Type = iota
	TypeConstant
	TypeFile
	TypeVariable
	TypeFunction
	TypeIfThenElse
	TypeArithmetic
	TypeComplex
)

// String returns a short lowercase tag for logging.
func (t Type) String() string {
	switch t {
	case TypeUndefined:
		return "undefined"
	case TypeConstant:
		return "constant"
	case TypeFile:
		return "file"
	case TypeVariable:
		return "variable"
	case TypeFunction:
		return "function"
	case TypeIfThenElse:
		return "ifthenelse"
	case TypeArithmetic:
		return "arithmetic"
	case TypeComplex:
		return "complex"
	}
	return "unknown"
}

// Computed reports whether a result of this type must be written to the
// output directory. Constants and direct file loads are exempt.
func (t Type) Computed() bool {
	switch t {
	case TypeUndefined, TypeConstant, TypeFile:
		return false
	}
	return true
}
