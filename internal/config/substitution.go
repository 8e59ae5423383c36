package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// envVarPattern matches ${env://VAR} and ${env://VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{env://([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// MissingEnvError lists the variables referenced without a default that are
// not set.
type MissingEnvError struct {
	Names []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("environment variable substitution failed: %s not set", strings.Join(e.Names, ", "))
}

// ExpandEnv replaces ${env://VAR} and ${env://VAR:-default} in content with
// the value of VAR. An empty or unset variable falls back to its default;
// without a default it is reported in a *MissingEnvError and the reference
// is left untouched.
func ExpandEnv(content string) (string, error) {
	return expand(content, os.Getenv)
}

func expand(content string, lookup func(string) string) (string, error) {
	missing := map[string]struct{}{}

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		name, hasDefault, def := sub[1], sub[2] != "", sub[3]

		if v := lookup(name); v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		missing[name] = struct{}{}
		return match
	})

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for n := range missing {
			names = append(names, n)
		}
		sort.Strings(names)
		return "", &MissingEnvError{Names: names}
	}
	return result, nil
}
