// internal/platform/extractor.go
package platform

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/racepull/racepull/pkg/types"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// foldDiacritics strips combining marks so "José" and "Jose" normalize to
// the same stored name regardless of how the vendor encoded it.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Extract applies a profile's pattern chains to rendered page text and
// produces a normalized result. Each field is extracted independently: a
// field whose chain never matches becomes null without affecting the others,
// and the function itself never fails.
func Extract(text string, profile *Profile) *types.ExtractionResult {
	result := &types.ExtractionResult{
		Platform: types.StringPtr(profile.Name),
	}

	for _, field := range AllFields {
		raw, ok := firstMatch(text, profile.Chains[field])
		if !ok {
			continue
		}
		switch coerceKindFor(field) {
		case CoerceInt:
			if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
				assignInt(result, field, n)
			}
		default:
			if cleaned := CleanText(raw); cleaned != "" {
				assignString(result, field, cleaned)
			}
		}
	}

	return result
}

// firstMatch walks the chain in order and returns the first non-empty
// capture. Later patterns are never consulted once an earlier one matches.
func firstMatch(text string, chain Chain) (string, bool) {
	for _, p := range chain {
		m := p.Expr.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		group := p.Group
		if group == 0 {
			group = 1
		}
		if group >= len(m) {
			continue
		}
		if capture := strings.TrimSpace(m[group]); capture != "" {
			return capture, true
		}
	}
	return "", false
}

// coerceKindFor returns the value coercion for a field. Ranks are the only
// numeric fields; finish time and pace stay textual since vendors disagree
// on precision and units.
func coerceKindFor(field Field) CoerceKind {
	switch field {
	case FieldOverallRank, FieldCategoryRank:
		return CoerceInt
	default:
		return CoerceString
	}
}

// CleanText collapses whitespace and normalizes unicode in a captured value.
func CleanText(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if folded, _, err := transform.String(foldDiacritics, s); err == nil {
		s = folded
	}
	return s
}

func assignString(r *types.ExtractionResult, field Field, value string) {
	switch field {
	case FieldRaceName:
		r.RaceName = &value
	case FieldParticipantName:
		r.ParticipantName = &value
	case FieldCategory:
		r.Category = &value
	case FieldFinishTime:
		r.FinishTime = &value
	case FieldBibNumber:
		r.BibNumber = &value
	case FieldPace:
		r.Pace = &value
	}
}

func assignInt(r *types.ExtractionResult, field Field, value int) {
	switch field {
	case FieldOverallRank:
		r.OverallRank = &value
	case FieldCategoryRank:
		r.CategoryRank = &value
	}
}
