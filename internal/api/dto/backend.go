package dto

import (
	"github.com/flexprice/staffdesk/internal/domain/employee"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/flexprice/staffdesk/internal/validator"
)

// SwitchBackendRequest is the body of PUT /v1/backends/active
type SwitchBackendRequest struct {
	Backend types.BackendKind `json:"backend" validate:"required"`
}

func (r *SwitchBackendRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.Backend.Validate()
}

// BackendsResponse lists the configured backends and the one the session uses
type BackendsResponse struct {
	Available    []types.BackendKind   `json:"available"`
	Active       types.BackendKind     `json:"active"`
	Capabilities employee.Capabilities `json:"capabilities"`
}

// SetupBackendResponse is returned once the active backend's storage exists
type SetupBackendResponse struct {
	Backend types.BackendKind `json:"backend"`
	Ready   bool              `json:"ready"`
}

// UploadImageResponse carries the id to store in profile_image
type UploadImageResponse struct {
	FileID string `json:"file_id"`
}

// ImageURLResponse is a time limited download link
type ImageURLResponse struct {
	FileID string `json:"file_id"`
	URL    string `json:"url"`
}
