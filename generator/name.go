package generator

import (
	"strconv"
	"strings"
	"unicode"
)

// exportedName converts a BPMN element or process ID into an exported Go identifier, e.g. "approve-order" into
// "ApproveOrder".
func exportedName(id string) string {
	parts := strings.FieldsFunc(id, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var sb strings.Builder
	for _, part := range parts {
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		sb.WriteString(string(runes))
	}

	name := sb.String()
	if name == "" || !unicode.IsUpper([]rune(name)[0]) {
		name = "X" + name
	}
	return name
}

// identifier replaces all runes of a path key, which are not allowed in a Go identifier, with an underscore.
func identifier(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return '_'
	}, s)
}

// fieldNames keeps track of the field names of a struct type.
type fieldNames map[string]bool

// next returns the name, if not yet taken, or the name with the first free numeric suffix.
func (n fieldNames) next(name string) string {
	candidate := name
	for i := 2; n[candidate]; i++ {
		candidate = name + strconv.Itoa(i)
	}
	n[candidate] = true
	return candidate
}
