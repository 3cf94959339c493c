package sms

import (
	"regexp"
	"strings"
)

var placeholderRegex = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render substitutes {{name}} placeholders with vars. Unknown placeholders
// are replaced with an empty string.
func Render(body string, vars map[string]string) string {
	return placeholderRegex.ReplaceAllStringFunc(body, func(match string) string {
		key := placeholderRegex.FindStringSubmatch(match)[1]
		return vars[key]
	})
}

// Placeholders lists the distinct placeholder names used in body, in order of first use.
func Placeholders(body string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, m := range placeholderRegex.FindAllStringSubmatch(body, -1) {
		key := strings.TrimSpace(m[1])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
