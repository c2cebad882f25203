package errors

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

const defaultDisplayMessage = "An unexpected error occurred"

// DisplayMessage returns the first non-empty hint attached to err
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}
	// GetAllHints is a post-order traversal
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return defaultDisplayMessage
}

// SafeDetails collects the reportable details attached with WithReportableDetails
func SafeDetails(err error) map[string]any {
	details := make(map[string]any)
	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			jsonStr, ok := strings.CutPrefix(payload, "__json__:")
			if !ok {
				continue
			}
			var jsonDetails map[string]any
			if err := json.Unmarshal([]byte(jsonStr), &jsonDetails); err == nil {
				for k, v := range jsonDetails {
					details[k] = v
				}
			}
		}
	}
	return details
}

// NewErrorResponse renders err the way every handler reports failures
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Display: DisplayMessage(err),
			Details: SafeDetails(err),
		},
	}
}
