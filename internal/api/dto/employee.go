package dto

import (
	"strings"

	"github.com/flexprice/staffdesk/internal/domain/employee"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/service"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/flexprice/staffdesk/internal/validator"
)

// CreateEmployeeRequest is the body of POST /v1/employees
type CreateEmployeeRequest struct {
	Name         string        `json:"name" validate:"required"`
	Email        string        `json:"email" validate:"required,email"`
	Phone        string        `json:"phone" validate:"omitempty,max=50"`
	Department   string        `json:"department" validate:"omitempty,max=200"`
	Position     string        `json:"position" validate:"omitempty,max=200"`
	ProfileImage string        `json:"profile_image,omitempty"`
	Status       *types.Status `json:"status,omitempty" validate:"omitempty,oneof=0 1"`
}

func (r *CreateEmployeeRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	return validator.ValidateRequest(r)
}

func (r *CreateEmployeeRequest) ToCreateInput() *employee.CreateInput {
	return &employee.CreateInput{
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		Department:   r.Department,
		Position:     r.Position,
		ProfileImage: r.ProfileImage,
		Status:       r.Status,
	}
}

// UpdateEmployeeRequest is the body of PATCH /v1/employees/:id. Omitted
// fields keep their stored value.
type UpdateEmployeeRequest struct {
	Name         *string       `json:"name,omitempty"`
	Email        *string       `json:"email,omitempty"`
	Phone        *string       `json:"phone,omitempty"`
	Department   *string       `json:"department,omitempty"`
	Position     *string       `json:"position,omitempty"`
	ProfileImage *string       `json:"profile_image,omitempty"`
	Status       *types.Status `json:"status,omitempty"`
}

func (r *UpdateEmployeeRequest) ToPatch() *employee.Patch {
	return &employee.Patch{
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		Department:   r.Department,
		Position:     r.Position,
		ProfileImage: r.ProfileImage,
		Status:       r.Status,
	}
}

// SearchEmployeesRequest binds the query of GET /v1/employees/search
type SearchEmployeesRequest struct {
	Field string `form:"field"`
	Value string `form:"value"`
	Mode  string `form:"mode"`
}

// ToFilter returns nil when there is nothing to search for
func (r *SearchEmployeesRequest) ToFilter() (*types.SearchFilter, error) {
	if strings.TrimSpace(r.Value) == "" {
		return nil, nil
	}
	if strings.TrimSpace(r.Field) == "" {
		return nil, ierr.NewError("field is required").
			WithHint("Choose a field to search").
			Mark(ierr.ErrValidation)
	}
	return types.NewSearchFilter(r.Field, r.Value, r.Mode)
}

// EmployeeResponse wraps a single record
type EmployeeResponse struct {
	*employee.Employee
}

// EmployeeListResponse is the screen state after a list, search or mutation
type EmployeeListResponse struct {
	service.State
	Total int `json:"total"`
}

func NewEmployeeListResponse(state service.State) *EmployeeListResponse {
	return &EmployeeListResponse{State: state, Total: len(state.Records)}
}

// MutationResponse carries the changed record and the reloaded screen state
type MutationResponse struct {
	Employee *employee.Employee    `json:"employee"`
	State    *EmployeeListResponse `json:"state"`
}

// ExportSheetResponse reports how many rows were written to the spreadsheet
type ExportSheetResponse struct {
	Rows int `json:"rows"`
}
