package types

import (
	"strings"

	"github.com/samber/lo"

	ierr "github.com/flexprice/staffdesk/internal/errors"
)

// MatchMode is the comparison strategy used when searching records
type MatchMode string

const (
	MatchExact      MatchMode = "exact"
	MatchContains   MatchMode = "contains"
	MatchStartsWith MatchMode = "starts_with"
	MatchEndsWith   MatchMode = "ends_with"
)

// MatchModes lists every supported match mode
var MatchModes = []MatchMode{MatchExact, MatchContains, MatchStartsWith, MatchEndsWith}

// ParseMatchMode accepts the canonical names as well as the hyphenated and
// wildcard spellings used by older clients (starts-with, prefix, suffix ...)
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "contains", "like", "substring":
		return MatchContains, nil
	case "exact", "eq", "equals":
		return MatchExact, nil
	case "starts_with", "starts-with", "startswith", "prefix":
		return MatchStartsWith, nil
	case "ends_with", "ends-with", "endswith", "suffix":
		return MatchEndsWith, nil
	}
	return "", ierr.NewErrorf("unknown match mode %q", s).
		WithHintf("Match mode must be one of %v", MatchModes).
		Mark(ierr.ErrValidation)
}

// SearchField is a record attribute that can be searched
type SearchField string

const (
	FieldName       SearchField = "name"
	FieldEmail      SearchField = "email"
	FieldPhone      SearchField = "phone"
	FieldDepartment SearchField = "department"
	FieldPosition   SearchField = "position"
)

// SearchableFields lists every field accepted by SearchFilter
var SearchableFields = []SearchField{FieldName, FieldEmail, FieldPhone, FieldDepartment, FieldPosition}

func (f SearchField) Validate() error {
	if !lo.Contains(SearchableFields, f) {
		return ierr.NewErrorf("field %q is not searchable", f).
			WithHintf("Field must be one of %v", SearchableFields).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SearchFilter is a single field/value/mode query
type SearchFilter struct {
	Field SearchField `json:"field" form:"field"`
	Value string      `json:"value" form:"value"`
	Mode  MatchMode   `json:"mode" form:"mode"`
}

// NewSearchFilter builds a validated filter, defaulting the mode to contains
func NewSearchFilter(field, value, mode string) (*SearchFilter, error) {
	m, err := ParseMatchMode(mode)
	if err != nil {
		return nil, err
	}
	f := &SearchFilter{
		Field: SearchField(strings.ToLower(strings.TrimSpace(field))),
		Value: value,
		Mode:  m,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *SearchFilter) Validate() error {
	if f == nil {
		return ierr.NewError("search filter is required").
			WithHint("Search filter is required").
			Mark(ierr.ErrValidation)
	}

	if f.Field == "" {
		return ierr.NewError("field is required").
			WithHint("Field is required").
			Mark(ierr.ErrValidation)
	}

	if err := f.Field.Validate(); err != nil {
		return err
	}

	if f.Mode == "" {
		f.Mode = MatchContains
	}

	if !lo.Contains(MatchModes, f.Mode) {
		return ierr.NewErrorf("mode %q is invalid", f.Mode).
			WithHintf("Match mode must be one of %v", MatchModes).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// IsEmpty reports whether the filter carries no query value
func (f *SearchFilter) IsEmpty() bool {
	return f == nil || strings.TrimSpace(f.Value) == ""
}
