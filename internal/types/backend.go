package types

import (
	"github.com/samber/lo"

	ierr "github.com/flexprice/staffdesk/internal/errors"
)

// BackendKind identifies one of the interchangeable record backends
type BackendKind string

const (
	// BackendSheet is the script-backed spreadsheet backend
	BackendSheet BackendKind = "sheet"
	// BackendRelational is the serverless Postgres backend reached over REST
	BackendRelational BackendKind = "relational"
	// BackendDocStore is the document store backend (DynamoDB)
	BackendDocStore BackendKind = "docstore"
	// BackendCloud is the cloud document and file storage backend (S3 compatible)
	BackendCloud BackendKind = "cloud"
)

var BackendKinds = []BackendKind{BackendSheet, BackendRelational, BackendDocStore, BackendCloud}

func (k BackendKind) String() string {
	return string(k)
}

func (k BackendKind) Validate() error {
	if !lo.Contains(BackendKinds, k) {
		return ierr.NewErrorf("unknown backend %q", k).
			WithHintf("Backend must be one of %v", BackendKinds).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IDScheme describes how a backend allocates record identifiers
type IDScheme string

const (
	// IDSchemeNumeric ids are decimal integers allocated by the backend
	IDSchemeNumeric IDScheme = "numeric"
	// IDSchemeOpaque ids are backend generated strings
	IDSchemeOpaque IDScheme = "opaque"
)
