package docstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flexprice/staffdesk/internal/domain/employee"
	"github.com/flexprice/staffdesk/internal/types"
)

// item is the stored document. Searchable fields carry a lower-cased shadow
// attribute so equality and prefix queries are case-insensitive.
type item struct {
	PK           string    `dynamodbav:"pk"`
	SK           string    `dynamodbav:"sk"`
	ID           int64     `dynamodbav:"id"`
	Name         string    `dynamodbav:"name"`
	Email        string    `dynamodbav:"email"`
	Phone        string    `dynamodbav:"phone"`
	Department   string    `dynamodbav:"department"`
	Position     string    `dynamodbav:"position"`
	ProfileImage string    `dynamodbav:"profile_image"`
	Status       int       `dynamodbav:"status"`
	CreatedAt    time.Time `dynamodbav:"created_at"`
	UpdatedAt    time.Time `dynamodbav:"updated_at"`

	NameLC       string `dynamodbav:"name_lc"`
	EmailLC      string `dynamodbav:"email_lc"`
	PhoneLC      string `dynamodbav:"phone_lc"`
	DepartmentLC string `dynamodbav:"department_lc"`
	PositionLC   string `dynamodbav:"position_lc"`
}

// sortKey zero-pads ids so lexical order is numeric order
func sortKey(id int64) string {
	return fmt.Sprintf("%020d", id)
}

func shadowAttr(f types.SearchField) string {
	return string(f) + "_lc"
}

func lc(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func newItem(collection string, id int64, e *employee.Employee) *item {
	return &item{
		PK:           collection,
		SK:           sortKey(id),
		ID:           id,
		Name:         e.Name,
		Email:        e.Email,
		Phone:        e.Phone,
		Department:   e.Department,
		Position:     e.Position,
		ProfileImage: e.ProfileImage,
		Status:       int(e.Status),
		CreatedAt:    e.CreatedAt.UTC(),
		UpdatedAt:    e.UpdatedAt.UTC(),
		NameLC:       lc(e.Name),
		EmailLC:      lc(e.Email),
		PhoneLC:      lc(e.Phone),
		DepartmentLC: lc(e.Department),
		PositionLC:   lc(e.Position),
	}
}

func (it *item) toEmployee() *employee.Employee {
	return &employee.Employee{
		ID:           strconv.FormatInt(it.ID, 10),
		Name:         it.Name,
		Email:        it.Email,
		Phone:        it.Phone,
		Department:   it.Department,
		Position:     it.Position,
		ProfileImage: it.ProfileImage,
		Status:       types.Status(it.Status),
		CreatedAt:    it.CreatedAt.UTC(),
		UpdatedAt:    it.UpdatedAt.UTC(),
	}
}
