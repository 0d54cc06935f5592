package interp

import (
	"regexp"

	"github.com/xyproto/env/v2"
)

var envRefRe = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)%`)

// expandEnv replaces %NAME% references with the value of the environment
// variable NAME. Unset variables are left as-is, so a literal percent pair
// does not silently vanish.
func expandEnv(line string) string {
	return envRefRe.ReplaceAllStringFunc(line, func(ref string) string {
		name := ref[1 : len(ref)-1]
		if !env.Has(name) {
			return ref
		}
		return env.Str(name)
	})
}
