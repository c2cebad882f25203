package service

import (
	"context"
	"testing"
	"time"

	"github.com/flexprice/staffdesk/internal/cache"
	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/domain/employee"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/testutil"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type staticBackends map[types.BackendKind]employee.Repository

func (b staticBackends) Get(_ context.Context, kind types.BackendKind) (employee.Repository, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	repo, ok := b[kind]
	if !ok {
		return nil, ierr.NewErrorf("backend %s is not configured", kind).
			WithHintf("Backend %s is not configured", kind).
			Mark(ierr.ErrInvalidOperation)
	}
	return repo, nil
}

func (b staticBackends) Available() []types.BackendKind {
	return lo.Filter(types.BackendKinds, func(k types.BackendKind, _ int) bool {
		_, ok := b[k]
		return ok
	})
}

type SessionSuite struct {
	suite.Suite
	ctx      context.Context
	cache    *cache.InMemoryCache
	sheet    *testutil.InMemoryEmployeeStore
	docstore *testutil.InMemoryEmployeeStore
	manager  *SessionManager
}

func TestSessionManager(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.ctx = testutil.SetupContext()
	s.cache = cache.NewInMemoryCache(time.Minute)
	s.sheet = testutil.NewInMemoryEmployeeStore(types.BackendSheet)
	s.sheet.Seed(&employee.Employee{ID: "1", Name: "John Doe", Email: "john@x.com"})
	s.docstore = testutil.NewInMemoryEmployeeStore(types.BackendDocStore)

	cfg := config.GetDefaultConfig()
	cfg.Session.TTL = time.Minute
	s.manager = NewSessionManager(cfg, s.cache, staticBackends{
		types.BackendSheet:    s.sheet,
		types.BackendDocStore: s.docstore,
	}, logger.NewNopLogger())
}

func (s *SessionSuite) TestSessionsAreIsolated() {
	a, err := s.manager.Coordinator(s.ctx, "sess-a")
	s.Require().NoError(err)
	again, err := s.manager.Coordinator(s.ctx, "sess-a")
	s.Require().NoError(err)
	s.Same(a, again)

	b, err := s.manager.Coordinator(s.ctx, "sess-b")
	s.Require().NoError(err)
	s.NotSame(a, b)

	kind, _ := a.Backend()
	s.Equal(types.BackendSheet, kind)
}

func (s *SessionSuite) TestMissingSessionID() {
	_, err := s.manager.Coordinator(s.ctx, "")
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SessionSuite) TestSwitch() {
	state, err := s.manager.Switch(s.ctx, "sess-a", types.BackendDocStore)
	s.Require().NoError(err)
	s.Equal(types.BackendDocStore, state.Backend)
	s.Empty(state.Records)

	coord, err := s.manager.Coordinator(s.ctx, "sess-a")
	s.Require().NoError(err)
	kind, repo := coord.Backend()
	s.Equal(types.BackendDocStore, kind)
	s.Same(s.docstore, repo)

	other, err := s.manager.Coordinator(s.ctx, "sess-b")
	s.Require().NoError(err)
	kind, _ = other.Backend()
	s.Equal(types.BackendSheet, kind)
}

func (s *SessionSuite) TestSwitchToUnconfiguredBackend() {
	_, err := s.manager.Switch(s.ctx, "sess-a", types.BackendCloud)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))

	coord, err := s.manager.Coordinator(s.ctx, "sess-a")
	s.Require().NoError(err)
	kind, _ := coord.Backend()
	s.Equal(types.BackendSheet, kind)
}

func (s *SessionSuite) TestEnd() {
	first, err := s.manager.Coordinator(s.ctx, "sess-a")
	s.Require().NoError(err)

	s.manager.End(s.ctx, "sess-a")

	second, err := s.manager.Coordinator(s.ctx, "sess-a")
	s.Require().NoError(err)
	s.NotSame(first, second)
}

func (s *SessionSuite) TestEndCancelsInFlightLoad() {
	coord, err := s.manager.Coordinator(s.ctx, "sess-slow")
	s.Require().NoError(err)

	entered := make(chan struct{})
	s.sheet.SetListHook(func(ctx context.Context) error {
		close(entered)
		<-ctx.Done()
		return ctx.Err()
	})

	done := make(chan error, 1)
	go func() {
		_, err := coord.Load(s.ctx)
		done <- err
	}()
	<-entered

	s.manager.End(s.ctx, "sess-slow")

	s.NoError(<-done)
	s.False(coord.Snapshot().Loading)
}
