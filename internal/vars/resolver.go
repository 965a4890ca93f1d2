package vars

import (
	"regexp"
	"strings"
)

// Placeholders are matched non-greedily up to the first closing brace; an
// unterminated "{{" never matches.
var templateVarPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Resolve substitutes every {{name}} in text with values[name]. Names are
// trimmed before lookup. Placeholders with no value are kept verbatim.
func Resolve(text string, values map[string]string) string {
	if text == "" || !strings.Contains(text, "{{") {
		return text
	}
	return templateVarPattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := templateVarPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		if value, ok := values[strings.TrimSpace(sub[1])]; ok {
			return value
		}
		return match
	})
}

// ResolveMap applies Resolve to every value of in. Keys are left untouched.
func ResolveMap(in map[string]string, values map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = Resolve(value, values)
	}
	return out
}

// FindNames lists the trimmed placeholder names in order of appearance,
// duplicates included.
func FindNames(text string) []string {
	if text == "" {
		return nil
	}
	matches := templateVarPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSpace(m[1]))
	}
	return names
}
