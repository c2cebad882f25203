package employee

import (
	"strings"

	"github.com/flexprice/staffdesk/internal/types"
)

// FilterRecords is the client-side search used by every backend without a
// native operator for the requested mode. Comparison is case-insensitive and
// surrounding whitespace is ignored. An empty query matches every record
// except in exact mode, where it matches only empty fields.
func FilterRecords(records []*Employee, filter *types.SearchFilter) []*Employee {
	out := make([]*Employee, 0, len(records))
	if filter == nil {
		return append(out, records...)
	}
	for _, r := range records {
		if r != nil && Matches(r.Field(filter.Field), filter.Value, filter.Mode) {
			out = append(out, r)
		}
	}
	return out
}

// Matches compares a single field value against query using mode
func Matches(value, query string, mode types.MatchMode) bool {
	v := normalize(value)
	q := normalize(query)
	switch mode {
	case types.MatchExact:
		return v == q
	case types.MatchStartsWith:
		return strings.HasPrefix(v, q)
	case types.MatchEndsWith:
		return strings.HasSuffix(v, q)
	case types.MatchContains:
		return strings.Contains(v, q)
	default:
		return false
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
