package sheet

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/flexprice/staffdesk/internal/domain/employee"
	"github.com/flexprice/staffdesk/internal/types"
)

// Action names understood by the sheet script
const (
	ActionGetAll  = "getAll"
	ActionGetByID = "getById"
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionSearch  = "search"
	ActionSetup   = "setup"
	ActionExport  = "export"
)

// Header is the column layout of the employee sheet
var Header = []string{
	"id", "name", "email", "phone", "department", "position",
	"profile_image", "status", "created_at", "updated_at",
}

// Request is the body of a write action. Reads travel as query parameters.
type Request struct {
	Action string     `json:"action"`
	ID     string     `json:"id,omitempty"`
	Data   *Record    `json:"data,omitempty"`
	Field  string     `json:"field,omitempty"`
	Value  string     `json:"value,omitempty"`
	Mode   string     `json:"mode,omitempty"`
	Rows   [][]string `json:"rows,omitempty"`
	// Sheet names the target tab of an export
	Sheet string `json:"sheet,omitempty"`
}

// Envelope wraps every script response
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// SetupResult is returned by the setup action
type SetupResult struct {
	Created bool `json:"created"`
}

// ExportResult is returned by the export action
type ExportResult struct {
	Sheet string `json:"sheet"`
	Rows  int    `json:"rows"`
}

// Record is the wire form of an employee. Spreadsheet cells lose their type,
// so id, phone and status are accepted as either JSON strings or numbers.
type Record struct {
	ID           Cell   `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        Cell   `json:"phone"`
	Department   string `json:"department"`
	Position     string `json:"position"`
	ProfileImage string `json:"profile_image"`
	Status       Cell   `json:"status"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// Cell is a string that also decodes from a JSON number
type Cell string

func (c *Cell) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Cell(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = Cell(n.String())
	return nil
}

func (c Cell) String() string {
	return strings.TrimSpace(string(c))
}

// FromEmployee converts a domain record to its wire form
func FromEmployee(e *employee.Employee) *Record {
	return &Record{
		ID:           Cell(e.ID),
		Name:         e.Name,
		Email:        e.Email,
		Phone:        Cell(e.Phone),
		Department:   e.Department,
		Position:     e.Position,
		ProfileImage: e.ProfileImage,
		Status:       Cell(strconv.Itoa(int(e.Status))),
		CreatedAt:    formatTime(e.CreatedAt),
		UpdatedAt:    formatTime(e.UpdatedAt),
	}
}

// ToEmployee converts a wire record into the domain type
func (r *Record) ToEmployee() *employee.Employee {
	status := types.DefaultStatus
	if s := r.Status.String(); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			status = types.Status(n)
		}
	}
	return &employee.Employee{
		ID:           r.ID.String(),
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone.String(),
		Department:   r.Department,
		Position:     r.Position,
		ProfileImage: r.ProfileImage,
		Status:       status,
		CreatedAt:    parseTime(r.CreatedAt),
		UpdatedAt:    parseTime(r.UpdatedAt),
	}
}

// Row returns the record cells in Header order
func (r *Record) Row() []string {
	return []string{
		r.ID.String(), r.Name, r.Email, r.Phone.String(), r.Department, r.Position,
		r.ProfileImage, r.Status.String(), r.CreatedAt, r.UpdatedAt,
	}
}

// RecordFromRow reads a record from cells in Header order. Short rows are padded.
func RecordFromRow(row []string) *Record {
	cells := make([]string, len(Header))
	copy(cells, row)
	return &Record{
		ID:           Cell(cells[0]),
		Name:         cells[1],
		Email:        cells[2],
		Phone:        Cell(cells[3]),
		Department:   cells[4],
		Position:     cells[5],
		ProfileImage: cells[6],
		Status:       Cell(cells[7]),
		CreatedAt:    cells[8],
		UpdatedAt:    cells[9],
	}
}

// EmployeeRow returns the sheet row of an employee
func EmployeeRow(e *employee.Employee) []string {
	return FromEmployee(e).Row()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
