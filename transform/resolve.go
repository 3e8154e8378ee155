package transform

import (
	"regexp"
	"strings"
)

// Field identifies one of the canonical semantic columns a raw header can
// map to.
type Field int

const (
	FieldNumber Field = iota
	FieldQuantity
	FieldWho
	FieldReason
	FieldItin
)

// Cell is a single header/value pair from a source row.
type Cell struct {
	Header string
	Value  string
}

// RawRecord is one source row with its column order preserved. Header names
// are whatever the sheet happens to use; nothing upstream controls them.
type RawRecord []Cell

// Alias lists are ordered most-specific-first so that a substring pass cannot
// claim a header that a longer alias describes better ("phone number called
// from" before "phone", "number-called" before "number").
var fieldAliases = map[Field][]string{
	FieldNumber: {
		"number-called",
		"number called",
		"phone-number-called-from",
		"phone number called from",
		"phone",
		"list",
		"number",
	},
	FieldQuantity: {"calls#", "calls", "quantity", "qty"},
	FieldWho:      {"who called", "who_called", "who"},
	FieldReason:   {"reason", "reasons"},
	FieldItin:     {"itin#"},
}

var headerSpaceRE = regexp.MustCompile(`\s+`)

func normHeader(s string) string {
	return headerSpaceRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// Resolve finds the raw value for a canonical field in one record. Headers
// are matched case- and space-insensitively against the field's alias list:
// a full exact pass runs before any substring matching, so a literal
// "Number Called" column always wins over a column that merely contains
// "number" somewhere in its name. The second return is false when no header
// matches at all.
func Resolve(raw RawRecord, field Field) (string, bool) {
	aliases := fieldAliases[field]
	for _, alias := range aliases {
		for _, cell := range raw {
			if normHeader(cell.Header) == alias {
				return cell.Value, true
			}
		}
	}
	for _, alias := range aliases {
		for _, cell := range raw {
			if strings.Contains(normHeader(cell.Header), alias) {
				return cell.Value, true
			}
		}
	}
	return "", false
}

func resolveValue(raw RawRecord, field Field) string {
	v, _ := Resolve(raw, field)
	return v
}
