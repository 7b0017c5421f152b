package utils

import (
	"regexp"
	"strings"
)

// Patterns is a compiled list of URL filters
type Patterns []*regexp.Regexp

// CompilePatterns compiles the regex strings under a config key. Blank entries are skipped.
func CompilePatterns(key string, patterns []string) (Patterns, error) {
	compiled := make(Patterns, 0, len(patterns))
	for i, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, WrapErrorf(ErrConfigValidation, "%s[%d] is not a valid regex ('%s'): %v", key, i, pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// MatchAny reports whether s matches at least one pattern
func (p Patterns) MatchAny(s string) bool {
	for _, re := range p {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
