package sheet

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/domain/employee"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/httpclient"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/samber/lo"
)

// executor runs a single script action
type executor interface {
	execute(ctx context.Context, req *Request) (*Envelope, error)
}

// remoteExecutor talks to the deployed script over HTTP
type remoteExecutor struct {
	client httpclient.Client
	url    string
}

func (r *remoteExecutor) execute(ctx context.Context, req *Request) (*Envelope, error) {
	var httpReq *httpclient.Request
	switch req.Action {
	case ActionGetAll, ActionGetByID:
		q := url.Values{}
		q.Set("action", req.Action)
		if req.ID != "" {
			q.Set("id", req.ID)
		}
		sep := "?"
		if strings.Contains(r.url, "?") {
			sep = "&"
		}
		httpReq = &httpclient.Request{
			Method: "GET",
			URL:    r.url + sep + q.Encode(),
		}
	default:
		body, err := json.Marshal(req)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to encode sheet request").
				Mark(ierr.ErrInternal)
		}
		httpReq = &httpclient.Request{
			Method: "POST",
			URL:    r.url,
			Body:   body,
		}
	}

	resp, err := r.client.Send(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	var env Envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Spreadsheet returned an unreadable response").
			Mark(ierr.ErrTransport)
	}
	return &env, nil
}

// localExecutor runs actions against the in-process emulation
type localExecutor struct {
	sheet *Sheet
}

func (l *localExecutor) execute(ctx context.Context, req *Request) (*Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Request was cancelled").
			Mark(ierr.ErrCancelled)
	}
	return l.sheet.Do(req), nil
}

// Store is the spreadsheet backend
type Store struct {
	exec         executor
	nativeSearch bool
	exportTab    string
	mock         bool
	logger       *logger.Logger
	now          func() time.Time
}

// New builds the spreadsheet backend. An empty URL selects mock mode.
func New(cfg config.SheetConfig, client httpclient.Client, log *logger.Logger) *Store {
	if cfg.IsMock() {
		s := NewMock(NewSheet(), log)
		s.nativeSearch = cfg.NativeSearch
		s.exportTab = exportTab(cfg)
		return s
	}
	return &Store{
		exec:         &remoteExecutor{client: client, url: strings.TrimSpace(cfg.URL)},
		nativeSearch: cfg.NativeSearch,
		exportTab:    exportTab(cfg),
		logger:       log,
		now:          time.Now,
	}
}

// NewMock builds the backend on top of an existing emulated sheet
func NewMock(sheet *Sheet, log *logger.Logger) *Store {
	return &Store{
		exec:      &localExecutor{sheet: sheet},
		exportTab: config.DefaultSheetExportTab,
		mock:      true,
		logger:    log,
		now:       time.Now,
	}
}

func exportTab(cfg config.SheetConfig) string {
	if tab := strings.TrimSpace(cfg.ExportTab); tab != "" {
		return tab
	}
	return config.DefaultSheetExportTab
}

func (s *Store) call(ctx context.Context, req *Request, out any) error {
	env, err := s.exec.execute(ctx, req)
	if err != nil {
		return err
	}

	if !env.Success {
		return envelopeError(req, env.Error)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return ierr.WithError(err).
			WithHintf("Spreadsheet returned unexpected data for %s", req.Action).
			Mark(ierr.ErrTransport)
	}
	return nil
}

func envelopeError(req *Request, msg string) error {
	if strings.Contains(strings.ToLower(msg), "not found") {
		if req.ID != "" {
			return employee.NewNotFoundError(req.ID)
		}
		return ierr.NewError(msg).
			WithHint("Employee not found").
			Mark(ierr.ErrNotFound)
	}
	if msg == "" {
		msg = "unknown error"
	}
	return ierr.NewErrorf("sheet %s failed: %s", req.Action, msg).
		WithHintf("Spreadsheet error: %s", msg).
		WithReportableDetails(map[string]any{"action": req.Action}).
		Mark(ierr.ErrTransport)
}

func (s *Store) List(ctx context.Context) ([]*employee.Employee, error) {
	var records []*Record
	if err := s.call(ctx, &Request{Action: ActionGetAll}, &records); err != nil {
		return nil, err
	}
	return toEmployees(records), nil
}

func (s *Store) Get(ctx context.Context, id string) (*employee.Employee, error) {
	var rec Record
	if err := s.call(ctx, &Request{Action: ActionGetByID, ID: id}, &rec); err != nil {
		return nil, err
	}
	return rec.ToEmployee(), nil
}

func (s *Store) Create(ctx context.Context, in *employee.CreateInput) (*employee.Employee, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	e := employee.NewEmployee("", in, s.now())

	var rec Record
	if err := s.call(ctx, &Request{Action: ActionCreate, Data: FromEmployee(e)}, &rec); err != nil {
		return nil, err
	}

	created := rec.ToEmployee()
	s.logger.Debugw("created employee in sheet", "id", created.ID)
	return created, nil
}

// Update reads the row, merges the patch and rewrites the whole row
func (s *Store) Update(ctx context.Context, id string, patch *employee.Patch) (*employee.Employee, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := patch.ApplyTo(current, s.now())

	var rec Record
	if err := s.call(ctx, &Request{Action: ActionUpdate, ID: id, Data: FromEmployee(merged)}, &rec); err != nil {
		return nil, err
	}
	return rec.ToEmployee(), nil
}

func (s *Store) Delete(ctx context.Context, id string) (*employee.Employee, error) {
	var rec Record
	if err := s.call(ctx, &Request{Action: ActionDelete, ID: id}, &rec); err != nil {
		return nil, err
	}
	return rec.ToEmployee(), nil
}

func (s *Store) Search(ctx context.Context, filter *types.SearchFilter) ([]*employee.Employee, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	if !s.nativeSearch {
		records, err := s.List(ctx)
		if err != nil {
			return nil, err
		}
		return employee.FilterRecords(records, filter), nil
	}

	var records []*Record
	err := s.call(ctx, &Request{
		Action: ActionSearch,
		Field:  string(filter.Field),
		Value:  strings.TrimSpace(filter.Value),
		Mode:   string(filter.Mode),
	}, &records)
	if err != nil {
		return nil, err
	}
	return toEmployees(records), nil
}

func (s *Store) Capabilities() employee.Capabilities {
	caps := employee.Capabilities{
		Backend:  types.BackendSheet,
		IDScheme: types.IDSchemeNumeric,
		Mock:     s.mock,
	}
	if s.nativeSearch {
		caps.NativeSearch = types.MatchModes
	}
	return caps
}

// EnsureStorage writes the header row when the sheet has none
func (s *Store) EnsureStorage(ctx context.Context) error {
	var res SetupResult
	if err := s.call(ctx, &Request{Action: ActionSetup}, &res); err != nil {
		return err
	}
	s.logger.Infow("sheet storage ready", "header_created", res.Created, "mock", s.mock)
	return nil
}

// Export overwrites the export tab with the given records and returns the
// number of rows written. The employee rows stay as they are.
func (s *Store) Export(ctx context.Context, records []*employee.Employee) (int, error) {
	rows := lo.Map(records, func(e *employee.Employee, _ int) []string {
		return EmployeeRow(e)
	})

	var res ExportResult
	if err := s.call(ctx, &Request{Action: ActionExport, Sheet: s.exportTab, Rows: rows}, &res); err != nil {
		return 0, err
	}
	s.logger.Infow("exported employees to sheet tab", "sheet", res.Sheet, "rows", res.Rows)
	return res.Rows, nil
}

// ExportTab is the tab written by Export
func (s *Store) ExportTab() string {
	return s.exportTab
}

func toEmployees(records []*Record) []*employee.Employee {
	return lo.Map(records, func(r *Record, _ int) *employee.Employee {
		return r.ToEmployee()
	})
}
