package services

import (
	"strings"
	"unicode"
)

// isBrowserSpace reports whether r is white space or a line terminator as
// browsers define them for trim and parseFloat. Unlike unicode.IsSpace it
// includes U+FEFF and excludes U+0085.
func isBrowserSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\uFEFF', '\u2028', '\u2029':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func trimBrowserSpace(s string) string {
	return strings.TrimFunc(s, isBrowserSpace)
}
