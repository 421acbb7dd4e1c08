// Package globmatch implements the "**"/"*" glob semantics shared by
// the scope tracker and the policy gate: "**" matches any sequence
// including "/"; "*" matches any sequence excluding "/". Grounded on
// the teacher's internal/infra exec-approval glob matcher.
package globmatch

import (
	"regexp"
	"strings"
	"sync"
)

var cache sync.Map // pattern string -> *regexp.Regexp

// Match reports whether target matches pattern under the repo's glob
// semantics. Patterns are compiled once and cached.
func Match(pattern, target string) bool {
	return compile(pattern).MatchString(target)
}

func compile(pattern string) *regexp.Regexp {
	if cached, ok := cache.Load(pattern); ok {
		return cached.(*regexp.Regexp)
	}
	re := toRegexp(pattern)
	cache.Store(pattern, re)
	return re
}

// toRegexp converts a glob pattern to an anchored regexp.
func toRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")

	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch ch {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString(".")
		case '.', '+', '^', '$', '{', '}', '(', ')', '[', ']', '|', '\\':
			b.WriteString("\\")
			b.WriteByte(ch)
		default:
			b.WriteByte(ch)
		}
	}

	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		// An unmatchable pattern never falsely matches.
		return regexp.MustCompile(`$^`)
	}
	return re
}
