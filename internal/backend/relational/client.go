package relational

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/domain/employee"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/httpclient"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/postgres"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/samber/lo"
)

// patternMeta are characters with wildcard or escape meaning in an ilike pattern
const patternMeta = `*%_\`

// row is the table's JSON representation as returned by the REST layer
type row struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	Department   string       `json:"department"`
	Position     string       `json:"position"`
	ProfileImage string       `json:"profile_image"`
	Status       types.Status `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (r *row) toEmployee() *employee.Employee {
	return &employee.Employee{
		ID:           strconv.FormatInt(r.ID, 10),
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		Department:   r.Department,
		Position:     r.Position,
		ProfileImage: r.ProfileImage,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

// insertRow omits the id so the identity column assigns it
type insertRow struct {
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	Department   string       `json:"department"`
	Position     string       `json:"position"`
	ProfileImage string       `json:"profile_image"`
	Status       types.Status `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Store is the serverless Postgres backend reached through its REST layer
type Store struct {
	client  httpclient.Client
	tokens  *TokenProvider
	baseURL string
	table   string
	apiKey  string
	dsn     string
	openDB  OpenDBFunc
	logger  *logger.Logger
	now     func() time.Time
}

func New(cfg config.RelationalConfig, client httpclient.Client, tokens *TokenProvider, log *logger.Logger) *Store {
	return &Store{
		client:  client,
		tokens:  tokens,
		baseURL: strings.TrimSuffix(strings.TrimSpace(cfg.RestURL), "/"),
		table:   cfg.Table,
		apiKey:  cfg.APIKey,
		dsn:     cfg.DSN,
		openDB:  postgres.NewDB,
		logger:  log,
		now:     time.Now,
	}
}

func (s *Store) endpoint(q url.Values) string {
	u := s.baseURL + "/" + url.PathEscape(s.table)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// do sends one REST call. A 401 invalidates the cached token and the call is
// repeated once with a fresh token; a second 401 is an auth failure.
func (s *Store) do(ctx context.Context, method string, q url.Values, body any, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to encode request").
				Mark(ierr.ErrInternal)
		}
		payload = b
	}

	send := func(token string) (*httpclient.Response, error) {
		headers := map[string]string{
			"Authorization": "Bearer " + token,
			"Accept":        "application/json",
		}
		if s.apiKey != "" {
			headers["apikey"] = s.apiKey
		}
		if method != http.MethodGet {
			headers["Prefer"] = "return=representation"
		}
		return s.client.Send(ctx, &httpclient.Request{
			Method:  method,
			URL:     s.endpoint(q),
			Headers: headers,
			Body:    payload,
		})
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return err
	}

	resp, err := send(token)
	if httpclient.IsUnauthorized(err) {
		s.logger.Debugw("token rejected, refreshing", "table", s.table, "method", method)
		s.tokens.Invalidate(ctx)

		token, err = s.tokens.Token(ctx)
		if err != nil {
			return err
		}

		resp, err = send(token)
		if httpclient.IsUnauthorized(err) {
			return ierr.WithError(err).
				WithHint("Database rejected the refreshed access token").
				Mark(ierr.ErrAuthFailed)
		}
	}
	if err != nil {
		return restError(err)
	}

	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return ierr.WithError(err).
			WithHint("Database returned an unreadable response").
			Mark(ierr.ErrTransport)
	}
	return nil
}

func restError(err error) error {
	httpErr, ok := httpclient.IsHTTPError(err)
	if !ok {
		return err
	}
	switch httpErr.StatusCode {
	case http.StatusConflict:
		return ierr.WithError(err).
			WithHint("Employee already exists").
			Mark(ierr.ErrAlreadyExists)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ierr.WithError(err).
			WithHint("Database rejected the request").
			Mark(ierr.ErrValidation)
	case http.StatusForbidden:
		return ierr.WithError(err).
			WithHint("Access to the employee table was denied").
			Mark(ierr.ErrAuthFailed)
	}
	return ierr.WithError(err).
		WithHintf("Database request failed with status %d", httpErr.StatusCode).
		Mark(ierr.ErrTransport)
}

func byID(id string) (url.Values, bool) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return nil, false
	}
	return url.Values{"id": {"eq." + id}}, true
}

func (s *Store) List(ctx context.Context) ([]*employee.Employee, error) {
	var rows []*row
	q := url.Values{"select": {"*"}, "order": {"id.asc"}}
	if err := s.do(ctx, http.MethodGet, q, nil, &rows); err != nil {
		return nil, err
	}
	return toEmployees(rows), nil
}

func (s *Store) Get(ctx context.Context, id string) (*employee.Employee, error) {
	q, ok := byID(id)
	if !ok {
		return nil, employee.NewNotFoundError(id)
	}
	q.Set("select", "*")

	var rows []*row
	if err := s.do(ctx, http.MethodGet, q, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, employee.NewNotFoundError(id)
	}
	return rows[0].toEmployee(), nil
}

func (s *Store) Create(ctx context.Context, in *employee.CreateInput) (*employee.Employee, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	e := employee.NewEmployee("", in, s.now())
	body := &insertRow{
		Name:         e.Name,
		Email:        e.Email,
		Phone:        e.Phone,
		Department:   e.Department,
		Position:     e.Position,
		ProfileImage: e.ProfileImage,
		Status:       e.Status,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}

	var rows []*row
	if err := s.do(ctx, http.MethodPost, nil, body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ierr.NewError("insert returned no row").
			WithHint("Database did not return the created employee").
			Mark(ierr.ErrTransport)
	}
	return rows[0].toEmployee(), nil
}

// Update sends only the changed columns
func (s *Store) Update(ctx context.Context, id string, patch *employee.Patch) (*employee.Employee, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	q, ok := byID(id)
	if !ok {
		return nil, employee.NewNotFoundError(id)
	}

	cols := patch.Columns()
	cols["updated_at"] = s.now().UTC()

	var rows []*row
	if err := s.do(ctx, http.MethodPatch, q, cols, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, employee.NewNotFoundError(id)
	}
	return rows[0].toEmployee(), nil
}

func (s *Store) Delete(ctx context.Context, id string) (*employee.Employee, error) {
	q, ok := byID(id)
	if !ok {
		return nil, employee.NewNotFoundError(id)
	}

	var rows []*row
	if err := s.do(ctx, http.MethodDelete, q, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, employee.NewNotFoundError(id)
	}
	return rows[0].toEmployee(), nil
}

// Search pushes every mode down as a case-insensitive ilike, unless the query
// itself contains pattern characters
func (s *Store) Search(ctx context.Context, filter *types.SearchFilter) ([]*employee.Employee, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	value := strings.TrimSpace(filter.Value)
	if strings.ContainsAny(value, patternMeta) {
		records, err := s.List(ctx)
		if err != nil {
			return nil, err
		}
		return employee.FilterRecords(records, filter), nil
	}

	q := url.Values{"select": {"*"}, "order": {"id.asc"}}
	q.Set(string(filter.Field), "ilike."+ilikePattern(value, filter.Mode))

	var rows []*row
	if err := s.do(ctx, http.MethodGet, q, nil, &rows); err != nil {
		return nil, err
	}
	return toEmployees(rows), nil
}

func ilikePattern(value string, mode types.MatchMode) string {
	switch mode {
	case types.MatchExact:
		return value
	case types.MatchStartsWith:
		return value + "*"
	case types.MatchEndsWith:
		return "*" + value
	case types.MatchContains:
		return "*" + value + "*"
	}
	return value
}

func (s *Store) Capabilities() employee.Capabilities {
	return employee.Capabilities{
		Backend:      types.BackendRelational,
		IDScheme:     types.IDSchemeNumeric,
		NativeSearch: types.MatchModes,
	}
}

// EnsureStorage creates the table over a direct connection
func (s *Store) EnsureStorage(ctx context.Context) error {
	return ensureTable(ctx, s.openDB, s.dsn, s.table, s.logger)
}

func toEmployees(rows []*row) []*employee.Employee {
	return lo.Map(rows, func(r *row, _ int) *employee.Employee {
		return r.toEmployee()
	})
}
