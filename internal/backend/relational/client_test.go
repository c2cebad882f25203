package relational

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flexprice/staffdesk/internal/cache"
	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/domain/employee"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/httpclient"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/testutil"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/stretchr/testify/suite"
)

func newTestStore(srv *httptest.Server) *Store {
	client := httpclient.NewClient(httpclient.ClientConfig{Timeout: 5 * time.Second})
	log := logger.NewNopLogger()
	tokens := NewTokenProvider(
		NewHTTPTokenSource(client, srv.URL+"/auth/token", "svc", "secret"),
		cache.NewInMemoryCache(time.Hour),
		log,
	)
	return New(config.RelationalConfig{
		RestURL: srv.URL + "/rest/v1/",
		Table:   "employees",
	}, client, tokens, log)
}

type RelationalRepositorySuite struct {
	testutil.RepositorySuite
	servers []*httptest.Server
}

func TestRelationalRepository(t *testing.T) {
	suite.Run(t, new(RelationalRepositorySuite))
}

func (s *RelationalRepositorySuite) SetupTest() {
	s.Ctx = testutil.SetupContext()
	s.NewRepo = func() employee.Repository {
		srv := httptest.NewServer(newFakeREST())
		s.servers = append(s.servers, srv)
		return newTestStore(srv)
	}
}

func (s *RelationalRepositorySuite) TearDownTest() {
	for _, srv := range s.servers {
		srv.Close()
	}
	s.servers = nil
}

type RelationalStoreSuite struct {
	suite.Suite
	ctx   context.Context
	fake  *fakeREST
	srv   *httptest.Server
	store *Store
}

func TestRelationalStore(t *testing.T) {
	suite.Run(t, new(RelationalStoreSuite))
}

func (s *RelationalStoreSuite) SetupTest() {
	s.ctx = testutil.SetupContext()
	s.fake = newFakeREST()
	s.srv = httptest.NewServer(s.fake)
	s.store = newTestStore(s.srv)
}

func (s *RelationalStoreSuite) TearDownTest() {
	s.srv.Close()
}

func (s *RelationalStoreSuite) TestTokenIsCached() {
	_, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	_, err = s.store.List(s.ctx)
	s.Require().NoError(err)

	tokens, rest := s.fake.counts()
	s.Equal(1, tokens)
	s.Equal(2, rest)
}

func (s *RelationalStoreSuite) TestUnauthorizedRefreshesOnceAndRetries() {
	_, err := s.store.List(s.ctx)
	s.Require().NoError(err)

	// the cached tok-1 is revoked, the next token issued is tok-2
	s.fake.setValidToken("tok-2")

	_, err = s.store.List(s.ctx)
	s.Require().NoError(err)

	tokens, rest := s.fake.counts()
	s.Equal(2, tokens)
	s.Equal(3, rest)
}

func (s *RelationalStoreSuite) TestSecondUnauthorizedIsAuthFailed() {
	s.fake.setValidToken("never")

	_, err := s.store.List(s.ctx)
	s.Require().Error(err)
	s.True(ierr.IsAuthFailed(err))

	tokens, rest := s.fake.counts()
	s.Equal(2, tokens, "exactly one refresh")
	s.Equal(2, rest, "exactly one retry")
}

func (s *RelationalStoreSuite) TestTokenEndpointFailureIsAuthFailed() {
	client := httpclient.NewClient(httpclient.ClientConfig{Timeout: time.Second})
	log := logger.NewNopLogger()
	tokens := NewTokenProvider(
		NewHTTPTokenSource(client, s.srv.URL+"/missing", "svc", "secret"),
		cache.NewInMemoryCache(time.Hour),
		log,
	)
	store := New(config.RelationalConfig{RestURL: s.srv.URL + "/rest/v1", Table: "employees"}, client, tokens, log)

	_, err := store.List(s.ctx)
	s.Require().Error(err)
	s.True(ierr.IsAuthFailed(err))
}

func (s *RelationalStoreSuite) TestSearchUsesIlike() {
	_, err := s.store.Create(s.ctx, &employee.CreateInput{Name: "Jane Doe", Email: "jane@x.com"})
	s.Require().NoError(err)

	got, err := s.store.Search(s.ctx, &types.SearchFilter{Field: types.FieldName, Value: " doe ", Mode: types.MatchEndsWith})
	s.Require().NoError(err)
	s.Len(got, 1)
	s.Equal([]string{"ilike.*doe"}, s.fake.lastQuery["name"])
}

func (s *RelationalStoreSuite) TestSearchWithPatternCharactersFallsBack() {
	_, err := s.store.Create(s.ctx, &employee.CreateInput{Name: "Jane_Doe", Email: "jane@x.com"})
	s.Require().NoError(err)
	_, err = s.store.Create(s.ctx, &employee.CreateInput{Name: "JaneXDoe", Email: "janex@x.com"})
	s.Require().NoError(err)

	got, err := s.store.Search(s.ctx, &types.SearchFilter{Field: types.FieldName, Value: "_", Mode: types.MatchContains})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("Jane_Doe", got[0].Name)
	s.NotContains(s.fake.lastQuery, "name")
}

func (s *RelationalStoreSuite) TestSearchWithBackslashFallsBack() {
	_, err := s.store.Create(s.ctx, &employee.CreateInput{Name: `Jane\Doe`, Email: "jane@x.com"})
	s.Require().NoError(err)

	got, err := s.store.Search(s.ctx, &types.SearchFilter{Field: types.FieldName, Value: `e\d`, Mode: types.MatchContains})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.NotContains(s.fake.lastQuery, "name")
}

func (s *RelationalStoreSuite) TestExactSearchIgnoresSurroundingSpaces() {
	created, err := s.store.Create(s.ctx, &employee.CreateInput{Name: "Jane Doe", Email: "jane@x.com", Department: "  Eng  "})
	s.Require().NoError(err)
	s.Equal("Eng", created.Department)

	got, err := s.store.Search(s.ctx, &types.SearchFilter{Field: types.FieldDepartment, Value: " eng ", Mode: types.MatchExact})
	s.Require().NoError(err)
	s.Len(got, 1)
	s.Equal([]string{"ilike.eng"}, s.fake.lastQuery["department"])

	local := employee.FilterRecords([]*employee.Employee{created}, &types.SearchFilter{Field: types.FieldDepartment, Value: " eng ", Mode: types.MatchExact})
	s.Len(local, 1)
}

func (s *RelationalStoreSuite) TestNonNumericIDIsNotFound() {
	_, err := s.store.Get(s.ctx, "abc")
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *RelationalStoreSuite) TestEnsureStorageWithoutDSN() {
	err := s.store.EnsureStorage(s.ctx)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *RelationalStoreSuite) TestDDL() {
	stmts := DDL("employees")
	s.Require().Len(stmts, 3)
	s.True(strings.HasPrefix(stmts[0], `CREATE TABLE IF NOT EXISTS "employees"`))
	s.Contains(stmts[0], "GENERATED BY DEFAULT AS IDENTITY")
	s.Contains(stmts[1], `"idx_employees_email_lower"`)

	s.NoError(ValidateTableName("employees"))
	s.Error(ValidateTableName("employees; drop table x"))
}
