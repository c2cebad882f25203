package sheet

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/domain/employee"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/httpclient"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/testutil"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/stretchr/testify/suite"
)

// MockSheetSuite runs the shared repository behaviour against the in-process sheet
type MockSheetSuite struct {
	testutil.RepositorySuite
}

func TestMockSheet(t *testing.T) {
	suite.Run(t, new(MockSheetSuite))
}

func (s *MockSheetSuite) SetupTest() {
	s.Ctx = testutil.SetupContext()
	s.NewRepo = func() employee.Repository {
		return New(config.SheetConfig{}, nil, logger.NewNopLogger())
	}
}

// RemoteSheetSuite runs the same behaviour over HTTP against the emulated script
type RemoteSheetSuite struct {
	testutil.RepositorySuite
	servers []*httptest.Server
}

func TestRemoteSheet(t *testing.T) {
	suite.Run(t, new(RemoteSheetSuite))
}

func (s *RemoteSheetSuite) SetupTest() {
	s.Ctx = testutil.SetupContext()
	s.NewRepo = func() employee.Repository {
		srv := httptest.NewServer(NewSheet())
		s.servers = append(s.servers, srv)
		return New(
			config.SheetConfig{URL: srv.URL, NativeSearch: true},
			httpclient.NewClient(httpclient.ClientConfig{Timeout: 5 * time.Second}),
			logger.NewNopLogger(),
		)
	}
}

func (s *RemoteSheetSuite) TearDownTest() {
	for _, srv := range s.servers {
		srv.Close()
	}
	s.servers = nil
}

type SheetStoreSuite struct {
	suite.Suite
	ctx   context.Context
	sheet *Sheet
	store *Store
}

func TestSheetStore(t *testing.T) {
	suite.Run(t, new(SheetStoreSuite))
}

func (s *SheetStoreSuite) SetupTest() {
	s.ctx = testutil.SetupContext()
	s.sheet = NewSheet()
	s.store = NewMock(s.sheet, logger.NewNopLogger())
}

func (s *SheetStoreSuite) TestEnsureStorageWritesHeaderOnce() {
	s.False(s.sheet.HasHeader())

	s.Require().NoError(s.store.EnsureStorage(s.ctx))
	s.True(s.sheet.HasHeader())

	env := s.sheet.Do(&Request{Action: ActionSetup})
	s.True(env.Success)
	s.JSONEq(`{"created":false}`, string(env.Data))
}

func (s *SheetStoreSuite) TestIDsFollowLastRow() {
	a, err := s.store.Create(s.ctx, &employee.CreateInput{Name: "A", Email: "a@x.com"})
	s.Require().NoError(err)
	b, err := s.store.Create(s.ctx, &employee.CreateInput{Name: "B", Email: "b@x.com"})
	s.Require().NoError(err)

	s.Equal("1", a.ID)
	s.Equal("2", b.ID)
	s.Len(s.sheet.Rows(), 2)
	s.Equal("B", s.sheet.Rows()[1][1])
}

func (s *SheetStoreSuite) TestSearchFallsBackToFilterWhenNotNative() {
	s.Empty(s.store.Capabilities().NativeSearch)

	_, err := s.store.Create(s.ctx, &employee.CreateInput{Name: "Jane Doe", Email: "jane@x.com"})
	s.Require().NoError(err)

	got, err := s.store.Search(s.ctx, &types.SearchFilter{Field: types.FieldName, Value: "doe"})
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *SheetStoreSuite) TestUnknownActionIsTransportError() {
	err := s.store.call(s.ctx, &Request{Action: "bogus"}, nil)
	s.Require().Error(err)
	s.True(ierr.IsTransport(err))
}

func (s *SheetStoreSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.store.List(ctx)
	s.Require().Error(err)
	s.True(ierr.IsCancelled(err))
}

func (s *SheetStoreSuite) TestExportWritesExportTab() {
	old, err := s.store.Create(s.ctx, &employee.CreateInput{Name: "Old", Email: "old@x.com"})
	s.Require().NoError(err)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []*employee.Employee{
		{ID: "10", Name: "Jane", Email: "jane@x.com", Status: types.StatusActive, CreatedAt: now, UpdatedAt: now},
		{ID: "01HZXKQ7Y3C1M8V0S5J2T9N4PB", Name: "John", Email: "john@x.com", Status: types.StatusInactive, CreatedAt: now, UpdatedAt: now},
	}

	n, err := s.store.Export(s.ctx, records)
	s.Require().NoError(err)
	s.Equal(2, n)

	tab := s.sheet.Tab(config.DefaultSheetExportTab)
	s.Require().Len(tab, 3)
	s.Equal(Header, tab[0])
	s.Equal([]string{"10", "Jane", "jane@x.com", "", "", "", "", "1", "2024-03-01T09:00:00Z", "2024-03-01T09:00:00Z"}, tab[1])
	s.Equal("01HZXKQ7Y3C1M8V0S5J2T9N4PB", tab[2][0])

	rows := s.sheet.Rows()
	s.Require().Len(rows, 1)
	s.Equal(old.ID, rows[0][0])

	next, err := s.store.Create(s.ctx, &employee.CreateInput{Name: "Next", Email: "next@x.com"})
	s.Require().NoError(err)
	s.Equal("2", next.ID)
}

func (s *SheetStoreSuite) TestExportOverwritesPreviousExport() {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	first := []*employee.Employee{
		{ID: "1", Name: "A", Email: "a@x.com", CreatedAt: now, UpdatedAt: now},
		{ID: "2", Name: "B", Email: "b@x.com", CreatedAt: now, UpdatedAt: now},
	}
	_, err := s.store.Export(s.ctx, first)
	s.Require().NoError(err)

	n, err := s.store.Export(s.ctx, first[:1])
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Len(s.sheet.Tab(config.DefaultSheetExportTab), 2)
}
