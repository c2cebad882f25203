package backend

import (
	"context"
	"strings"
	"sync"

	"github.com/flexprice/staffdesk/internal/backend/cloud"
	"github.com/flexprice/staffdesk/internal/backend/docstore"
	"github.com/flexprice/staffdesk/internal/backend/relational"
	"github.com/flexprice/staffdesk/internal/backend/sheet"
	"github.com/flexprice/staffdesk/internal/cache"
	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/domain/employee"
	ddb "github.com/flexprice/staffdesk/internal/dynamodb"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/httpclient"
	"github.com/flexprice/staffdesk/internal/logger"
	s3client "github.com/flexprice/staffdesk/internal/s3"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/samber/lo"
)

// Factory builds the adapter for a backend kind on first use and reuses it
// afterwards. Adapters are safe for concurrent use, so every session shares
// the same instance per kind.
type Factory struct {
	config *config.Configuration
	cache  cache.Cache
	logger *logger.Logger

	mu    sync.Mutex
	repos map[types.BackendKind]employee.Repository
}

// NewFactory creates a new backend factory
func NewFactory(cfg *config.Configuration, c cache.Cache, logger *logger.Logger) *Factory {
	return &Factory{
		config: cfg,
		cache:  c,
		logger: logger,
		repos:  make(map[types.BackendKind]employee.Repository),
	}
}

// Register installs a prebuilt adapter for kind
func (f *Factory) Register(kind types.BackendKind, repo employee.Repository) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repos[kind] = repo
}

// Get returns the adapter for kind
func (f *Factory) Get(ctx context.Context, kind types.BackendKind) (employee.Repository, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if repo, ok := f.repos[kind]; ok {
		return repo, nil
	}

	repo, err := f.build(ctx, kind)
	if err != nil {
		return nil, err
	}

	f.repos[kind] = repo
	f.logger.Infow("backend initialized", "backend", kind, "mock", repo.Capabilities().Mock)
	return repo, nil
}

// Available lists the kinds that have enough configuration to be built.
// The sheet falls back to its in-process emulation and is always available.
func (f *Factory) Available() []types.BackendKind {
	f.mu.Lock()
	registered := lo.Keys(f.repos)
	f.mu.Unlock()

	return lo.Filter(types.BackendKinds, func(kind types.BackendKind, _ int) bool {
		return lo.Contains(registered, kind) || len(f.missing(kind)) == 0
	})
}

func (f *Factory) missing(kind types.BackendKind) []string {
	switch kind {
	case types.BackendRelational:
		return f.config.Relational.Missing()
	case types.BackendDocStore:
		return f.config.DocStore.Missing()
	case types.BackendCloud:
		return f.config.Cloud.Missing()
	}
	return nil
}

func (f *Factory) build(ctx context.Context, kind types.BackendKind) (employee.Repository, error) {
	if missing := f.missing(kind); len(missing) > 0 {
		return nil, ierr.NewErrorf("backend %s is not configured", kind).
			WithHintf("Backend %s is missing configuration: %s", kind, strings.Join(missing, ", ")).
			WithReportableDetails(map[string]any{"backend": kind, "missing": missing}).
			Mark(ierr.ErrInvalidOperation)
	}

	log := f.logger.With("backend", kind.String())

	switch kind {
	case types.BackendSheet:
		client := httpclient.NewClient(httpclient.ClientConfig{Timeout: config.ClampTimeout(f.config.Sheet.Timeout)})
		return sheet.New(f.config.Sheet, client, log), nil

	case types.BackendRelational:
		cfg := f.config.Relational
		client := httpclient.NewClient(httpclient.ClientConfig{Timeout: config.ClampTimeout(cfg.Timeout)})

		var source relational.TokenSource
		if cfg.Supabase.Enabled() {
			source = relational.NewSupabaseTokenSource(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Email, cfg.Supabase.Password)
		} else {
			source = relational.NewHTTPTokenSource(client, cfg.AuthURL, cfg.ClientID, cfg.ClientSecret)
		}
		tokens := relational.NewTokenProvider(source, f.cache, log)
		return relational.New(cfg, client, tokens, log), nil

	case types.BackendDocStore:
		client, err := ddb.NewClient(ctx, f.config.DocStore)
		if err != nil {
			return nil, err
		}
		return docstore.New(client.DB(), f.config.DocStore, log), nil

	case types.BackendCloud:
		client, err := s3client.NewClient(ctx, f.config.Cloud)
		if err != nil {
			return nil, err
		}
		return cloud.New(client, s3client.NewPresigner(client), f.config.Cloud, log), nil
	}

	return nil, ierr.NewErrorf("unknown backend %q", kind).
		Mark(ierr.ErrValidation)
}
