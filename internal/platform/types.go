// internal/platform/types.go
package platform

import (
	"regexp"
)

// Field names a single extractable value on a result page.
type Field string

const (
	FieldRaceName        Field = "race_name"
	FieldParticipantName Field = "participant_name"
	FieldCategory        Field = "category"
	FieldFinishTime      Field = "finish_time"
	FieldBibNumber       Field = "bib_number"
	FieldOverallRank     Field = "overall_rank"
	FieldCategoryRank    Field = "category_rank"
	FieldPace            Field = "pace"
)

// AllFields is the canonical extraction order. Fields are independent; the
// order only keeps logs and tests deterministic.
var AllFields = []Field{
	FieldRaceName,
	FieldParticipantName,
	FieldCategory,
	FieldFinishTime,
	FieldBibNumber,
	FieldOverallRank,
	FieldCategoryRank,
	FieldPace,
}

// CoerceKind selects how a captured string becomes a typed value.
type CoerceKind int

const (
	// CoerceString cleans whitespace and unicode and keeps the text.
	CoerceString CoerceKind = iota
	// CoerceInt parses base-10; a non-numeric capture yields null, never an
	// error.
	CoerceInt
)

// Pattern is one fallback alternative in a field's chain: a compiled
// expression plus the capture group holding the value.
type Pattern struct {
	Expr  *regexp.Regexp
	Group int // capture group index, 0 means default group 1
}

// Chain is the ordered fallback sequence for one field. Earlier patterns are
// tried first; the first non-empty capture wins. Appending new layout
// variants never disturbs existing ones.
type Chain []Pattern

// Profile describes one timing vendor: a URL predicate and the per-field
// pattern chains tuned against that vendor's page layouts.
type Profile struct {
	// Name is the stable platform identifier stored with results.
	Name string
	// URLPattern matches URLs served by this vendor.
	URLPattern *regexp.Regexp
	// Chains holds the fallback pattern chain per field. A field with no
	// chain extracts as null for this vendor.
	Chains map[Field]Chain
}

// Matches reports whether this profile handles the given URL.
func (p *Profile) Matches(url string) bool {
	return p.URLPattern.MatchString(url)
}

// pat builds a chain entry with the default capture group.
func pat(expr string) Pattern {
	return Pattern{Expr: regexp.MustCompile(expr)}
}

// patGroup builds a chain entry with an explicit capture group.
func patGroup(expr string, group int) Pattern {
	return Pattern{Expr: regexp.MustCompile(expr), Group: group}
}
