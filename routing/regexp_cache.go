package routing

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// regexpCache caches compiled route patterns by their Go expression. The
// number of unique patterns is bounded by the route tables loaded, so the
// cache grows to a fixed size and stays there.
var regexpCache sync.Map

// compileRegexp returns a cached *regexp.Regexp for the given expression,
// compiling and caching it on first use.
func compileRegexp(expr string) (*regexp.Regexp, error) {
	if v, ok := regexpCache.Load(expr); ok {
		return v.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}

	actual, _ := regexpCache.LoadOrStore(expr, re)

	return actual.(*regexp.Regexp), nil
}

// patternDelimiters are the characters accepted around a delimited pattern
// such as "#^/page/(.*)$#i". "/" is left out: a Go expression starting and
// ending with a slash is a common literal path match.
const patternDelimiters = "#|~!%@,;"

// goExpr converts a route pattern into a Go regular expression. Delimited
// patterns have their delimiters removed and their trailing flags turned
// into a (?flags) prefix. A pattern whose text after the last delimiter is
// not made of letters is not delimited and is used as is.
func goExpr(pattern string) (string, error) {
	if len(pattern) < 2 || !strings.ContainsRune(patternDelimiters, rune(pattern[0])) {
		return pattern, nil
	}

	delim := pattern[0]
	end := strings.LastIndexByte(pattern, delim)
	if end == 0 {
		return pattern, nil
	}

	body, flags := pattern[1:end], pattern[end+1:]
	if !isFlagText(flags) {
		return pattern, nil
	}

	var goFlags strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's', 'U':
			if !strings.ContainsRune(goFlags.String(), f) {
				goFlags.WriteRune(f)
			}
		case 'u', 'D':
			// UTF-8 matching and a strict "$" are the Go defaults.
		default:
			return "", fmt.Errorf("unsupported pattern modifier %q in %q", f, pattern)
		}
	}

	if goFlags.Len() == 0 {
		return body, nil
	}
	return "(?" + goFlags.String() + ")" + body, nil
}

// compilePattern translates and compiles a route pattern.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	expr, err := goExpr(pattern)
	if err != nil {
		return nil, err
	}
	return compileRegexp(expr)
}

// goReplacement converts a redirect template using $1 or \1 backreferences
// into the ${1} form understood by Regexp.Expand. Any other "$" is kept
// literal.
func goReplacement(tmpl string) string {
	var b strings.Builder
	b.Grow(len(tmpl) + 8)

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '$' && c != '\\' {
			b.WriteByte(c)
			continue
		}

		if c == '$' && i+1 < len(tmpl) && tmpl[i+1] == '{' {
			if end := strings.IndexByte(tmpl[i:], '}'); end > 0 && isDigits(tmpl[i+2:i+end]) {
				b.WriteString(tmpl[i : i+end+1])
				i += end
				continue
			}
		}

		j := i + 1
		for j < len(tmpl) && tmpl[j] >= '0' && tmpl[j] <= '9' {
			j++
		}
		if j > i+1 {
			b.WriteString("${" + tmpl[i+1:j] + "}")
			i = j - 1
			continue
		}

		if c == '$' {
			b.WriteString("$$")
		} else {
			b.WriteByte(c)
		}
	}

	return b.String()
}

func isFlagText(s string) bool {
	for i := 0; i < len(s); i++ {
		if (s[i] < 'a' || s[i] > 'z') && (s[i] < 'A' || s[i] > 'Z') {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
