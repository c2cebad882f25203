package employee

import (
	"testing"
	"time"

	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInputValidate(t *testing.T) {
	testCases := []struct {
		name    string
		input   *CreateInput
		wantErr bool
	}{
		{name: "valid", input: &CreateInput{Name: "Jane Doe", Email: "jane@x.com"}},
		{name: "missing_name", input: &CreateInput{Email: "jane@x.com"}, wantErr: true},
		{name: "blank_name", input: &CreateInput{Name: "   ", Email: "jane@x.com"}, wantErr: true},
		{name: "missing_email", input: &CreateInput{Name: "Jane"}, wantErr: true},
		{name: "bad_email", input: &CreateInput{Name: "Jane", Email: "nope"}, wantErr: true},
		{name: "bad_status", input: &CreateInput{Name: "Jane", Email: "jane@x.com", Status: lo.ToPtr(types.Status(7))}, wantErr: true},
		{name: "nil", input: nil, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.input.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, ierr.IsValidation(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewEmployeeDefaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	e := NewEmployee("7", &CreateInput{Name: "Jane", Email: "jane@x.com"}, now)
	assert.Equal(t, "7", e.ID)
	assert.Equal(t, types.StatusActive, e.Status)
	assert.Equal(t, now, e.CreatedAt)
	assert.Equal(t, now, e.UpdatedAt)

	inactive := NewEmployee("8", &CreateInput{Name: "Jo", Email: "jo@x.com", Status: lo.ToPtr(types.StatusInactive)}, now)
	assert.Equal(t, types.StatusInactive, inactive.Status)
}

func TestNewEmployeeTrimsText(t *testing.T) {
	e := NewEmployee("1", &CreateInput{
		Name:         " Jane ",
		Email:        "jane@x.com ",
		Phone:        " 555-1 ",
		Department:   "  Eng",
		Position:     "Dev\t",
		ProfileImage: " img.png",
	}, time.Now())

	assert.Equal(t, "Jane", e.Name)
	assert.Equal(t, "jane@x.com", e.Email)
	assert.Equal(t, "555-1", e.Phone)
	assert.Equal(t, "Eng", e.Department)
	assert.Equal(t, "Dev", e.Position)
	assert.Equal(t, "img.png", e.ProfileImage)
}

func TestPatchTrimsText(t *testing.T) {
	patch := &Patch{Department: lo.ToPtr(" Sales "), Position: lo.ToPtr("  ")}
	out := patch.ApplyTo(&Employee{ID: "1", Name: "Jane", Email: "jane@x.com", Position: "Dev"}, time.Now())

	assert.Equal(t, "Sales", out.Department)
	assert.Equal(t, "", out.Position)
	assert.Equal(t, map[string]any{"department": "Sales", "position": ""}, patch.Columns())
}

func TestPatchApplyTo(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)
	e := &Employee{ID: "1", Name: "Jane", Email: "jane@x.com", Phone: "555-1", Position: "Dev", CreatedAt: created, UpdatedAt: created}

	patch := &Patch{Position: lo.ToPtr("Lead"), Phone: lo.ToPtr("")}
	require.NoError(t, patch.Validate())

	out := patch.ApplyTo(e, later)
	assert.Equal(t, "Lead", out.Position)
	assert.Equal(t, "", out.Phone, "empty string clears the field")
	assert.Equal(t, "Jane", out.Name)
	assert.Equal(t, created, out.CreatedAt)
	assert.Equal(t, later, out.UpdatedAt)
	assert.Equal(t, "Dev", e.Position, "original is not mutated")

	assert.Equal(t, map[string]any{"position": "Lead", "phone": ""}, patch.Columns())
}

func TestPatchValidate(t *testing.T) {
	assert.Error(t, (&Patch{}).Validate())
	assert.Error(t, (&Patch{Name: lo.ToPtr(" ")}).Validate())
	assert.Error(t, (&Patch{Email: lo.ToPtr("")}).Validate())
	assert.Error(t, (&Patch{Email: lo.ToPtr("bad")}).Validate())
	assert.NoError(t, (&Patch{Department: lo.ToPtr("")}).Validate())
}

func TestCapabilitiesSupportsNative(t *testing.T) {
	caps := Capabilities{NativeSearch: []types.MatchMode{types.MatchExact}}
	assert.True(t, caps.SupportsNative(types.MatchExact))
	assert.False(t, caps.SupportsNative(types.MatchContains))
}
