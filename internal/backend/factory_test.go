package backend

import (
	"context"
	"testing"

	"github.com/flexprice/staffdesk/internal/cache"
	"github.com/flexprice/staffdesk/internal/config"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/testutil"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/stretchr/testify/suite"
)

type FactorySuite struct {
	suite.Suite
	ctx     context.Context
	cfg     *config.Configuration
	factory *Factory
}

func TestFactory(t *testing.T) {
	suite.Run(t, new(FactorySuite))
}

func (s *FactorySuite) SetupTest() {
	s.ctx = testutil.SetupContext()
	s.cfg = config.GetDefaultConfig()
	s.cfg.Sheet.URL = ""
	s.cfg.Relational = config.RelationalConfig{}
	s.cfg.DocStore = config.DocStoreConfig{}
	s.cfg.Cloud = config.CloudConfig{}
	s.factory = NewFactory(s.cfg, cache.NewInMemoryCache(0), logger.NewNopLogger())
}

func (s *FactorySuite) TestSheetFallsBackToMock() {
	repo, err := s.factory.Get(s.ctx, types.BackendSheet)
	s.Require().NoError(err)
	s.True(repo.Capabilities().Mock)

	again, err := s.factory.Get(s.ctx, types.BackendSheet)
	s.Require().NoError(err)
	s.Same(repo, again)
}

func (s *FactorySuite) TestUnconfiguredBackendIsInvalidOperation() {
	for _, kind := range []types.BackendKind{types.BackendRelational, types.BackendDocStore, types.BackendCloud} {
		_, err := s.factory.Get(s.ctx, kind)
		s.Require().Error(err, kind)
		s.True(ierr.IsInvalidOperation(err), kind)
	}
}

func (s *FactorySuite) TestUnknownBackend() {
	_, err := s.factory.Get(s.ctx, types.BackendKind("mainframe"))
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *FactorySuite) TestAvailable() {
	s.Equal([]types.BackendKind{types.BackendSheet}, s.factory.Available())

	s.cfg.Relational = config.RelationalConfig{RestURL: "https://db.example.com/rest/v1", AuthURL: "https://auth.example.com/token", Table: "employees"}
	s.factory.Register(types.BackendCloud, testutil.NewInMemoryEmployeeStore(types.BackendCloud))

	s.Equal([]types.BackendKind{types.BackendSheet, types.BackendRelational, types.BackendCloud}, s.factory.Available())
}

func (s *FactorySuite) TestRelationalBuildsWithoutNetwork() {
	s.cfg.Relational = config.RelationalConfig{RestURL: "https://db.example.com/rest/v1", AuthURL: "https://auth.example.com/token", Table: "employees"}

	repo, err := s.factory.Get(s.ctx, types.BackendRelational)
	s.Require().NoError(err)
	s.Equal(types.BackendRelational, repo.Capabilities().Backend)
}
