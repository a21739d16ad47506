// Package ini implements the runtime's wire configuration format
// (spec.md §6.6): a flat, dotted-key INI dialect with bracketed section
// prefixes, `key[]` array folding, and quote-aware comment stripping.
// Grounded on _examples/original_source/src/runtime/ini/{parse,serialize}.cc.
package ini

import "strings"

// KeyPathSeparator joins bracketed section prefixes into a flat dotted
// key, matching the original's default ("_").
const KeyPathSeparator = "_"

// Map is a flattened settings table: dotted key -> value.
type Map map[string]string

// Parse reads the INI-dialect source into a flat Map using the default
// key-path separator.
func Parse(source string) Map {
	return ParseWithSeparator(source, KeyPathSeparator)
}

// ParseWithSeparator is Parse with an explicit separator for bracketed
// section prefixes.
func ParseWithSeparator(source, sep string) Map {
	settings := Map{}
	prefix := ""

	for _, rawEntry := range strings.Split(source, "\n") {
		entry := strings.TrimSpace(rawEntry)
		if entry == "" {
			continue
		}
		if entry[0] == ';' || entry[0] == '#' {
			continue
		}

		if strings.HasPrefix(entry, "[") && strings.HasSuffix(entry, "]") {
			if strings.HasPrefix(entry, "[.") {
				prefix += entry[2 : len(entry)-1]
			} else {
				prefix = entry[1 : len(entry)-1]
			}
			prefix = strings.ReplaceAll(prefix, "\\.", sep)
			if prefix != "" {
				prefix += sep
			}
			continue
		}

		idx := strings.IndexByte(entry, '=')
		if idx < 0 {
			continue
		}

		key := strings.TrimSpace(prefix + entry[:idx])
		value := strings.TrimSpace(entry[idx+1:])
		value, quoted := stripQuotes(value)
		if !quoted {
			value = stripComment(value)
		}

		if strings.HasSuffix(key, "[]") {
			key = strings.TrimSpace(key[:len(key)-2])
			if strings.HasSuffix(key, "_headers") {
				value += "\n"
			}
			if existing, ok := settings[key]; ok && existing != "" {
				settings[key] = existing + " " + value
			} else {
				settings[key] = value
			}
			continue
		}

		settings[key] = value
	}

	return settings
}

// stripQuotes trims a leading/trailing matching quote pair, reporting
// whether the value was quoted (in which case interior comment markers
// are preserved verbatim).
func stripQuotes(value string) (string, bool) {
	if value == "" {
		return value, false
	}
	var q byte
	switch value[0] {
	case '"', '\'':
		q = value[0]
	default:
		return value, false
	}
	closing := strings.IndexByte(value[1:], q)
	if closing < 0 {
		return value, false
	}
	return strings.TrimSpace(value[1 : 1+closing]), true
}

// stripComment cuts a value at the first unquoted ';' or '#', whichever
// appears first (matching the original's pick-the-earlier-index quirk).
func stripComment(value string) string {
	i := strings.IndexByte(value, ';')
	j := strings.IndexByte(value, '#')
	switch {
	case i >= 0 && (j < 0 || i < j):
		return strings.TrimSpace(value[:i])
	case j >= 0:
		return strings.TrimSpace(value[:j])
	default:
		return value
	}
}

// Serialize renders a Map back to the flat "key = value" form, one entry
// per line, trimmed.
func Serialize(m Map) string {
	var b strings.Builder
	for k, v := range m {
		b.WriteString(k)
		b.WriteString(" = ")
		b.WriteString(v)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
