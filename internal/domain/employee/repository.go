package employee

import (
	"context"

	"github.com/flexprice/staffdesk/internal/types"
	"github.com/samber/lo"
)

// Repository is the record contract every backend implements.
// Implementations own their id allocation; ids from different
// backends are never compared.
type Repository interface {
	List(ctx context.Context) ([]*Employee, error)
	Get(ctx context.Context, id string) (*Employee, error)
	Create(ctx context.Context, in *CreateInput) (*Employee, error)
	Update(ctx context.Context, id string, patch *Patch) (*Employee, error)
	Delete(ctx context.Context, id string) (*Employee, error)
	Search(ctx context.Context, filter *types.SearchFilter) ([]*Employee, error)
	Capabilities() Capabilities
}

// StorageInitializer is implemented by backends that can create their
// own storage (header row, table, bucket)
type StorageInitializer interface {
	EnsureStorage(ctx context.Context) error
}

// ImageStore stores profile images separately from records. The form flow
// uploads first and then references the returned file id in the record.
type ImageStore interface {
	UploadImage(ctx context.Context, data []byte, filename string) (string, error)
	ImageURL(ctx context.Context, fileID string) (string, error)
	DeleteImage(ctx context.Context, fileID string) error
}

// Capabilities describes what a backend supports natively
type Capabilities struct {
	Backend      types.BackendKind `json:"backend"`
	IDScheme     types.IDScheme    `json:"id_scheme"`
	NativeSearch []types.MatchMode `json:"native_search"`
	Images       bool              `json:"images"`
	Mock         bool              `json:"mock"`
}

// SupportsNative reports whether mode is evaluated by the backend itself
func (c Capabilities) SupportsNative(mode types.MatchMode) bool {
	return lo.Contains(c.NativeSearch, mode)
}
