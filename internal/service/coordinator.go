package service

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/staffdesk/internal/domain/employee"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/types"
)

const (
	msgCreated = "Employee created successfully"
	msgUpdated = "Employee updated successfully"
	msgDeleted = "Employee deleted successfully"
)

// State is a point-in-time copy of what the employee screen shows
type State struct {
	Backend  types.BackendKind    `json:"backend"`
	Records  []*employee.Employee `json:"records"`
	Loading  bool                 `json:"loading"`
	Error    string               `json:"error,omitempty"`
	Success  string               `json:"success,omitempty"`
	Revision int64                `json:"revision"`
	Query    *types.SearchFilter  `json:"query,omitempty"`
}

// Coordinator drives the employee screen for one session. At most one
// list or search is live at a time: starting a new one cancels the previous
// request and any result that arrives for an older generation is dropped.
type Coordinator struct {
	logger *logger.Logger

	mu         sync.Mutex
	kind       types.BackendKind
	repo       employee.Repository
	state      State
	generation uint64
	cancel     context.CancelFunc
}

// NewCoordinator creates a coordinator bound to repo
func NewCoordinator(kind types.BackendKind, repo employee.Repository, log *logger.Logger) *Coordinator {
	return &Coordinator{
		logger: log,
		kind:   kind,
		repo:   repo,
		state:  State{Backend: kind, Records: []*employee.Employee{}},
	}
}

// Backend returns the active backend kind and adapter
func (c *Coordinator) Backend() (types.BackendKind, employee.Repository) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kind, c.repo
}

// Snapshot returns a copy of the current state
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Coordinator) snapshot() State {
	s := c.state
	s.Records = append([]*employee.Employee(nil), c.state.Records...)
	if c.state.Query != nil {
		q := *c.state.Query
		s.Query = &q
	}
	return s
}

// Records returns the record set currently held by the coordinator
func (c *Coordinator) Records() []*employee.Employee {
	return c.Snapshot().Records
}

// Load replaces the record set with a fresh listing
func (c *Coordinator) Load(ctx context.Context) (State, error) {
	return c.run(ctx, nil)
}

// Search replaces the record set with the records matching filter. An empty
// value is the same as Load.
func (c *Coordinator) Search(ctx context.Context, filter *types.SearchFilter) (State, error) {
	if filter.IsEmpty() {
		return c.Load(ctx)
	}
	if err := filter.Validate(); err != nil {
		return c.Snapshot(), err
	}
	q := *filter
	return c.run(ctx, &q)
}

func (c *Coordinator) run(ctx context.Context, filter *types.SearchFilter) (State, error) {
	reqCtx, cancel, gen, repo := c.begin(ctx)
	defer cancel()

	records, err := fetch(reqCtx, repo, filter)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debugw("discarding superseded result", "generation", gen, "current", c.generation)
		return c.snapshot(), nil
	}
	c.cancel = nil
	c.state.Loading = false

	if err != nil {
		if isCancellation(err) {
			c.logger.Debugw("list request cancelled", "generation", gen)
			return c.snapshot(), nil
		}
		c.fail(err)
		c.logger.Errorw("failed to load employees", "backend", c.kind, "error", err)
		return c.snapshot(), err
	}

	c.state.Records = records
	c.state.Query = filter
	c.state.Error = ""
	c.state.Success = ""
	c.state.Revision++
	return c.snapshot(), nil
}

// begin supersedes any in-flight request and returns the context for the new one
func (c *Coordinator) begin(ctx context.Context) (context.Context, context.CancelFunc, uint64, employee.Repository) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.supersede()
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state.Loading = true
	return reqCtx, cancel, c.generation, c.repo
}

// supersede cancels the live request and invalidates its generation.
// Callers hold c.mu.
func (c *Coordinator) supersede() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
}

// Close cancels any in-flight list or search. Later results are discarded.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supersede()
	c.state.Loading = false
}

func (c *Coordinator) fail(err error) {
	c.state.Error = ierr.DisplayMessage(err)
	c.state.Success = ""
}

// Switch replaces the active adapter, clears the record set and loads from
// the new backend. An in-flight list or search is cancelled.
func (c *Coordinator) Switch(ctx context.Context, kind types.BackendKind, repo employee.Repository) (State, error) {
	c.mu.Lock()
	c.supersede()
	c.kind = kind
	c.repo = repo
	c.state = State{Backend: kind, Records: []*employee.Employee{}, Revision: c.state.Revision}
	c.mu.Unlock()

	c.logger.Infow("switched backend", "backend", kind, "session_id", types.GetSessionID(ctx))
	return c.Load(ctx)
}

// Get reads a single record from the active adapter
func (c *Coordinator) Get(ctx context.Context, id string) (*employee.Employee, error) {
	_, repo := c.Backend()
	return repo.Get(ctx, id)
}

// Create stores a new record and reloads the list
func (c *Coordinator) Create(ctx context.Context, in *employee.CreateInput) (*employee.Employee, State, error) {
	return c.mutate(ctx, msgCreated, func(ctx context.Context, repo employee.Repository) (*employee.Employee, error) {
		if err := in.Validate(); err != nil {
			return nil, err
		}
		return repo.Create(ctx, in)
	})
}

// Update applies a partial change and reloads the list
func (c *Coordinator) Update(ctx context.Context, id string, patch *employee.Patch) (*employee.Employee, State, error) {
	return c.mutate(ctx, msgUpdated, func(ctx context.Context, repo employee.Repository) (*employee.Employee, error) {
		if err := patch.Validate(); err != nil {
			return nil, err
		}
		return repo.Update(ctx, id, patch)
	})
}

// Delete removes a record and reloads the list
func (c *Coordinator) Delete(ctx context.Context, id string) (*employee.Employee, State, error) {
	return c.mutate(ctx, msgDeleted, func(ctx context.Context, repo employee.Repository) (*employee.Employee, error) {
		return repo.Delete(ctx, id)
	})
}

// mutate runs op on a context that ignores the caller's cancellation so a
// write is never abandoned halfway, then refreshes the record set.
func (c *Coordinator) mutate(
	ctx context.Context,
	success string,
	op func(ctx context.Context, repo employee.Repository) (*employee.Employee, error),
) (*employee.Employee, State, error) {
	detached := context.WithoutCancel(ctx)
	_, repo := c.Backend()

	record, err := op(detached, repo)
	if err != nil {
		c.mu.Lock()
		c.fail(err)
		c.mu.Unlock()
		c.logger.Errorw("employee mutation failed", "error", err)
		return nil, c.Snapshot(), err
	}

	// reload failures are already reflected in the state
	state, _ := c.Load(detached)

	c.mu.Lock()
	if c.state.Error == "" {
		c.state.Success = success
	}
	state.Success = c.state.Success
	c.mu.Unlock()

	return record, state, nil
}

func fetch(ctx context.Context, repo employee.Repository, filter *types.SearchFilter) ([]*employee.Employee, error) {
	if filter == nil {
		return repo.List(ctx)
	}
	if repo.Capabilities().SupportsNative(filter.Mode) {
		return repo.Search(ctx, filter)
	}
	records, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return employee.FilterRecords(records, filter), nil
}

func isCancellation(err error) bool {
	return ierr.IsCancelled(err) || errors.Is(err, context.Canceled)
}
