package employee

import (
	"strings"
	"time"

	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/flexprice/staffdesk/internal/validator"
)

// Employee is the canonical record exchanged between the API and every backend
type Employee struct {
	// ID is numeric text for the sheet, relational and document store backends
	// and an opaque ULID for the cloud backend. Never reused after deletion.
	ID string `db:"id" json:"id"`

	Name       string `db:"name" json:"name"`
	Email      string `db:"email" json:"email"`
	Phone      string `db:"phone" json:"phone"`
	Department string `db:"department" json:"department"`
	Position   string `db:"position" json:"position"`

	// ProfileImage is the file id assigned by the image store, or empty
	ProfileImage string `db:"profile_image" json:"profile_image"`

	Status types.Status `db:"status" json:"status"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Field returns the value of a searchable field
func (e *Employee) Field(f types.SearchField) string {
	switch f {
	case types.FieldName:
		return e.Name
	case types.FieldEmail:
		return e.Email
	case types.FieldPhone:
		return e.Phone
	case types.FieldDepartment:
		return e.Department
	case types.FieldPosition:
		return e.Position
	}
	return ""
}

// Clone returns a shallow copy, all fields are values
func (e *Employee) Clone() *Employee {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// CreateInput carries the caller supplied fields of a new record
type CreateInput struct {
	Name         string        `json:"name" validate:"required"`
	Email        string        `json:"email" validate:"required,email"`
	Phone        string        `json:"phone" validate:"omitempty,max=50"`
	Department   string        `json:"department" validate:"omitempty,max=200"`
	Position     string        `json:"position" validate:"omitempty,max=200"`
	ProfileImage string        `json:"profile_image"`
	Status       *types.Status `json:"status" validate:"omitempty,oneof=0 1"`
}

func (in *CreateInput) Validate() error {
	if in == nil {
		return ierr.NewError("employee is required").
			WithHint("Employee details are required").
			Mark(ierr.ErrValidation)
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	return validator.ValidateRequest(in)
}

// NewEmployee builds the stored form of a create request. Every backend
// goes through here so defaults are identical: status 1 unless supplied,
// created_at == updated_at == now. Text fields are stored trimmed.
func NewEmployee(id string, in *CreateInput, now time.Time) *Employee {
	status := types.DefaultStatus
	if in.Status != nil {
		status = *in.Status
	}
	now = now.UTC()
	return &Employee{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		Department:   strings.TrimSpace(in.Department),
		Position:     strings.TrimSpace(in.Position),
		ProfileImage: strings.TrimSpace(in.ProfileImage),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Patch is a partial update. A nil field is left unchanged, a non-nil empty
// string clears the field.
type Patch struct {
	Name         *string       `json:"name" validate:"omitempty,min=1"`
	Email        *string       `json:"email" validate:"omitempty,email"`
	Phone        *string       `json:"phone" validate:"omitempty,max=50"`
	Department   *string       `json:"department" validate:"omitempty,max=200"`
	Position     *string       `json:"position" validate:"omitempty,max=200"`
	ProfileImage *string       `json:"profile_image"`
	Status       *types.Status `json:"status" validate:"omitempty,oneof=0 1"`
}

func (p *Patch) Validate() error {
	if p == nil || p.IsEmpty() {
		return ierr.NewError("nothing to update").
			WithHint("At least one field must be provided").
			Mark(ierr.ErrValidation)
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return ierr.NewError("name cannot be cleared").
			WithHint("Name is required").
			Mark(ierr.ErrValidation)
	}
	if p.Email != nil && strings.TrimSpace(*p.Email) == "" {
		return ierr.NewError("email cannot be cleared").
			WithHint("Email is required").
			Mark(ierr.ErrValidation)
	}
	return validator.ValidateRequest(p)
}

func (p *Patch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Department == nil &&
		p.Position == nil && p.ProfileImage == nil && p.Status == nil
}

// ApplyTo returns a copy of e with the patch merged in and updated_at bumped
func (p *Patch) ApplyTo(e *Employee, now time.Time) *Employee {
	out := e.Clone()
	setText(&out.Name, p.Name)
	setText(&out.Email, p.Email)
	setText(&out.Phone, p.Phone)
	setText(&out.Department, p.Department)
	setText(&out.Position, p.Position)
	setText(&out.ProfileImage, p.ProfileImage)
	if p.Status != nil {
		out.Status = *p.Status
	}
	out.UpdatedAt = now.UTC()
	return out
}

// Columns returns the changed columns keyed by their storage name
func (p *Patch) Columns() map[string]any {
	cols := make(map[string]any)
	for col, v := range map[string]*string{
		"name":          p.Name,
		"email":         p.Email,
		"phone":         p.Phone,
		"department":    p.Department,
		"position":      p.Position,
		"profile_image": p.ProfileImage,
	} {
		if v != nil {
			cols[col] = strings.TrimSpace(*v)
		}
	}
	if p.Status != nil {
		cols["status"] = int(*p.Status)
	}
	return cols
}

func setText(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// NewNotFoundError is returned by every backend when id is absent
func NewNotFoundError(id string) error {
	return ierr.NewErrorf("employee %s not found", id).
		WithHint("Employee not found").
		WithReportableDetails(map[string]any{"id": id}).
		Mark(ierr.ErrNotFound)
}
