package sheet

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/flexprice/staffdesk/internal/domain/employee"
	"github.com/flexprice/staffdesk/internal/types"
)

// RecordsTab is the tab holding the employee rows. Exports may not target it.
const RecordsTab = "Employees"

// Sheet is an in-process emulation of the spreadsheet and its script. It keeps
// the same semantics as the deployed script: a header row, one row per record,
// ids derived from the last row and rows located by linear scan. It backs the
// adapter in mock mode and speaks the action protocol over HTTP for tests.
type Sheet struct {
	mu     sync.Mutex
	header []string
	rows   [][]string
	// highest id ever issued, so a deleted last row does not hand its id out again
	highWater int64
	// export tabs by name, header row first
	tabs map[string][][]string
	now  func() time.Time
}

// NewSheet returns an empty sheet without a header row
func NewSheet() *Sheet {
	return &Sheet{tabs: make(map[string][][]string), now: time.Now}
}

// Rows returns a copy of the body rows
func (s *Sheet) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Tab returns a copy of an export tab including its header row, or nil when
// the tab does not exist
func (s *Sheet) Tab(name string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tab, ok := s.tabs[name]
	if !ok {
		return nil
	}
	out := make([][]string, len(tab))
	for i, r := range tab {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// HasHeader reports whether the header row has been written
func (s *Sheet) HasHeader() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.header) > 0
}

// Do executes a single action and returns the script envelope
func (s *Sheet) Do(req *Request) *Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Action {
	case ActionSetup:
		created := s.ensureHeader()
		return ok(SetupResult{Created: created})
	case ActionGetAll:
		return ok(s.records())
	case ActionGetByID:
		i := s.find(req.ID)
		if i < 0 {
			return notFound(req.ID)
		}
		return ok(RecordFromRow(s.rows[i]))
	case ActionCreate:
		if req.Data == nil {
			return fail("Missing data")
		}
		s.ensureHeader()
		id := s.nextID()
		rec := *req.Data
		rec.ID = Cell(strconv.FormatInt(id, 10))
		if rec.Status.String() == "" {
			rec.Status = Cell(strconv.Itoa(int(types.DefaultStatus)))
		}
		stamp := s.now().UTC().Format(time.RFC3339)
		if rec.CreatedAt == "" {
			rec.CreatedAt = stamp
		}
		if rec.UpdatedAt == "" {
			rec.UpdatedAt = rec.CreatedAt
		}
		s.rows = append(s.rows, rec.Row())
		return ok(&rec)
	case ActionUpdate:
		if req.Data == nil {
			return fail("Missing data")
		}
		i := s.find(req.ID)
		if i < 0 {
			return notFound(req.ID)
		}
		existing := RecordFromRow(s.rows[i])
		rec := *req.Data
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		if rec.UpdatedAt == "" {
			rec.UpdatedAt = s.now().UTC().Format(time.RFC3339)
		}
		s.rows[i] = rec.Row()
		return ok(&rec)
	case ActionDelete:
		i := s.find(req.ID)
		if i < 0 {
			return notFound(req.ID)
		}
		rec := RecordFromRow(s.rows[i])
		s.rows = append(s.rows[:i], s.rows[i+1:]...)
		return ok(rec)
	case ActionSearch:
		mode, err := types.ParseMatchMode(req.Mode)
		if err != nil {
			return fail(fmt.Sprintf("Invalid mode: %s", req.Mode))
		}
		field := types.SearchField(req.Field)
		if field.Validate() != nil {
			return fail(fmt.Sprintf("Invalid field: %s", req.Field))
		}
		matched := make([]*Record, 0)
		for _, row := range s.rows {
			rec := RecordFromRow(row)
			if employee.Matches(rec.ToEmployee().Field(field), req.Value, mode) {
				matched = append(matched, rec)
			}
		}
		return ok(matched)
	case ActionExport:
		name := strings.TrimSpace(req.Sheet)
		if name == "" {
			return fail("Missing export sheet name")
		}
		if strings.EqualFold(name, RecordsTab) {
			return fail(fmt.Sprintf("Cannot export into %s", RecordsTab))
		}
		tab := make([][]string, 0, len(req.Rows)+1)
		tab = append(tab, append([]string(nil), Header...))
		for _, row := range req.Rows {
			tab = append(tab, RecordFromRow(row).Row())
		}
		s.tabs[name] = tab
		return ok(ExportResult{Sheet: name, Rows: len(req.Rows)})
	}
	return fail(fmt.Sprintf("Unknown action: %s", req.Action))
}

// ServeHTTP answers GET reads (action and id as query parameters) and POST
// writes (JSON body). Like the deployed script it always replies 200 and
// reports failures inside the envelope.
func (s *Sheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req = Request{
			Action: q.Get("action"),
			ID:     q.Get("id"),
			Field:  q.Get("field"),
			Value:  q.Get("value"),
			Mode:   q.Get("mode"),
		}
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeEnvelope(w, fail("Invalid JSON body"))
			return
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeEnvelope(w, s.Do(&req))
}

func (s *Sheet) ensureHeader() bool {
	if len(s.header) > 0 {
		return false
	}
	s.header = append([]string(nil), Header...)
	return true
}

func (s *Sheet) records() []*Record {
	out := make([]*Record, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, RecordFromRow(row))
	}
	return out
}

func (s *Sheet) find(id string) int {
	for i, row := range s.rows {
		if len(row) > 0 && Cell(row[0]).String() == id {
			return i
		}
	}
	return -1
}

func (s *Sheet) nextID() int64 {
	var last int64
	if n := len(s.rows); n > 0 {
		if id, err := strconv.ParseInt(Cell(s.rows[n-1][0]).String(), 10, 64); err == nil {
			last = id
		} else {
			last = int64(n)
		}
	}
	next := max(last, s.highWater) + 1
	s.highWater = next
	return next
}

func ok(data any) *Envelope {
	b, err := json.Marshal(data)
	if err != nil {
		return fail(err.Error())
	}
	return &Envelope{Success: true, Data: b}
}

func fail(msg string) *Envelope {
	return &Envelope{Success: false, Error: msg}
}

func notFound(id string) *Envelope {
	return fail(fmt.Sprintf("Employee with id %s not found", id))
}

func writeEnvelope(w http.ResponseWriter, env *Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(env)
}
