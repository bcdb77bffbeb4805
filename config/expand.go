package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv replaces $VAR and ${VAR} in s with values from the process
// environment. See ExpandWith.
func ExpandEnv(s string) (string, error) {
	return ExpandWith(s, os.LookupEnv)
}

// ExpandWith replaces $VAR and ${VAR} using lookup. Every ${VAR} must be
// defined; $$ yields a literal $.
func ExpandWith(s string, lookup func(string) (string, bool)) (string, error) {
	const dollar = "\x00BREAKER_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	var missing []string
	for _, m := range envVarPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := lookup(m[1]); !ok && !slices.Contains(missing, m[1]) {
			missing = append(missing, m[1])
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	s = os.Expand(s, func(key string) string {
		v, _ := lookup(key)
		return v
	})
	return strings.ReplaceAll(s, dollar, "$"), nil
}
