package testutil

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flexprice/staffdesk/internal/domain/employee"
	"github.com/flexprice/staffdesk/internal/types"
)

// InMemoryEmployeeStore is an employee.Repository backed by InMemoryStore.
// Hooks let tests hold a read until they release it.
type InMemoryEmployeeStore struct {
	*InMemoryStore[*employee.Employee]
	kind   types.BackendKind
	native []types.MatchMode
	seq    atomic.Int64

	mu         sync.Mutex
	listHook   func(ctx context.Context) error
	searchHook func(ctx context.Context, filter *types.SearchFilter) error
	listCalls  int
	searchCall int
}

// NewInMemoryEmployeeStore creates a store reporting itself as kind, with
// native search for the given modes
func NewInMemoryEmployeeStore(kind types.BackendKind, native ...types.MatchMode) *InMemoryEmployeeStore {
	return &InMemoryEmployeeStore{
		InMemoryStore: NewInMemoryStore[*employee.Employee](),
		kind:          kind,
		native:        native,
	}
}

// SetListHook installs fn to run at the start of every List call
func (s *InMemoryEmployeeStore) SetListHook(fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listHook = fn
}

// SetSearchHook installs fn to run at the start of every native Search call
func (s *InMemoryEmployeeStore) SetSearchHook(fn func(ctx context.Context, filter *types.SearchFilter) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchHook = fn
}

// ListCalls returns how many times List was called
func (s *InMemoryEmployeeStore) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

// SearchCalls returns how many times Search was called
func (s *InMemoryEmployeeStore) SearchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchCall
}

// Seed stores records as-is and advances the id sequence past them
func (s *InMemoryEmployeeStore) Seed(records ...*employee.Employee) {
	for _, e := range records {
		_ = s.InMemoryStore.Create(context.Background(), e.ID, e.Clone())
		if n, err := strconv.ParseInt(e.ID, 10, 64); err == nil && n > s.seq.Load() {
			s.seq.Store(n)
		}
	}
}

func (s *InMemoryEmployeeStore) List(ctx context.Context) ([]*employee.Employee, error) {
	s.mu.Lock()
	hook := s.listHook
	s.listCalls++
	s.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}
	return s.InMemoryStore.List(ctx, nil, byNumericID)
}

func (s *InMemoryEmployeeStore) Get(ctx context.Context, id string) (*employee.Employee, error) {
	e, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, employee.NewNotFoundError(id)
	}
	return e.Clone(), nil
}

func (s *InMemoryEmployeeStore) Create(ctx context.Context, in *employee.CreateInput) (*employee.Employee, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	id := strconv.FormatInt(s.seq.Add(1), 10)
	e := employee.NewEmployee(id, in, time.Now())
	if err := s.InMemoryStore.Create(ctx, id, e); err != nil {
		return nil, err
	}
	return e.Clone(), nil
}

func (s *InMemoryEmployeeStore) Update(ctx context.Context, id string, patch *employee.Patch) (*employee.Employee, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := patch.ApplyTo(current, time.Now())
	if err := s.InMemoryStore.Update(ctx, id, updated); err != nil {
		return nil, employee.NewNotFoundError(id)
	}
	return updated.Clone(), nil
}

func (s *InMemoryEmployeeStore) Delete(ctx context.Context, id string) (*employee.Employee, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.InMemoryStore.Delete(ctx, id); err != nil {
		return nil, employee.NewNotFoundError(id)
	}
	return current, nil
}

func (s *InMemoryEmployeeStore) Search(ctx context.Context, filter *types.SearchFilter) ([]*employee.Employee, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	hook := s.searchHook
	s.searchCall++
	s.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, filter); err != nil {
			return nil, err
		}
	}

	all, err := s.InMemoryStore.List(ctx, nil, byNumericID)
	if err != nil {
		return nil, err
	}
	return employee.FilterRecords(all, filter), nil
}

func (s *InMemoryEmployeeStore) Capabilities() employee.Capabilities {
	return employee.Capabilities{
		Backend:      s.kind,
		IDScheme:     types.IDSchemeNumeric,
		NativeSearch: s.native,
		Mock:         true,
	}
}

func byNumericID(a, b *employee.Employee) bool {
	x, errA := strconv.ParseInt(a.ID, 10, 64)
	y, errB := strconv.ParseInt(b.ID, 10, 64)
	if errA != nil || errB != nil {
		return a.ID < b.ID
	}
	return x < y
}
