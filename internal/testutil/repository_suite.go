package testutil

import (
	"context"

	"github.com/flexprice/staffdesk/internal/domain/employee"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

// RepositorySuite runs the behaviour every backend must share. Embed it and
// set NewRepo in SetupTest.
type RepositorySuite struct {
	suite.Suite
	Ctx     context.Context
	NewRepo func() employee.Repository
}

func (s *RepositorySuite) repo() employee.Repository {
	if s.Ctx == nil {
		s.Ctx = SetupContext()
	}
	s.Require().NotNil(s.NewRepo, "NewRepo must be set")
	return s.NewRepo()
}

func (s *RepositorySuite) TestCreateGetRoundTrip() {
	repo := s.repo()

	created, err := repo.Create(s.Ctx, &employee.CreateInput{
		Name:       "Jane Doe",
		Email:      "jane@x.com",
		Department: "Engineering",
	})
	s.Require().NoError(err)
	s.NotEmpty(created.ID)
	s.Equal(types.StatusActive, created.Status)
	s.False(created.CreatedAt.IsZero())
	s.Equal(created.CreatedAt.Unix(), created.UpdatedAt.Unix())

	got, err := repo.Get(s.Ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal("Jane Doe", got.Name)
	s.Equal("jane@x.com", got.Email)
	s.Equal("Engineering", got.Department)
	s.Equal(types.StatusActive, got.Status)
}

func (s *RepositorySuite) TestCreateValidation() {
	repo := s.repo()

	_, err := repo.Create(s.Ctx, &employee.CreateInput{Email: "jane@x.com"})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))

	_, err = repo.Create(s.Ctx, &employee.CreateInput{Name: "Jane"})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *RepositorySuite) TestIDsAreUnique() {
	repo := s.repo()

	a, err := repo.Create(s.Ctx, &employee.CreateInput{Name: "A", Email: "a@x.com"})
	s.Require().NoError(err)
	b, err := repo.Create(s.Ctx, &employee.CreateInput{Name: "B", Email: "b@x.com"})
	s.Require().NoError(err)
	s.NotEqual(a.ID, b.ID)

	_, err = repo.Delete(s.Ctx, b.ID)
	s.Require().NoError(err)

	c, err := repo.Create(s.Ctx, &employee.CreateInput{Name: "C", Email: "c@x.com"})
	s.Require().NoError(err)
	s.NotEqual(b.ID, c.ID, "deleted ids are not reused")
}

func (s *RepositorySuite) TestDeleteThenNotFound() {
	repo := s.repo()

	created, err := repo.Create(s.Ctx, &employee.CreateInput{Name: "Jane", Email: "jane@x.com"})
	s.Require().NoError(err)

	deleted, err := repo.Delete(s.Ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, deleted.ID)

	_, err = repo.Get(s.Ctx, created.ID)
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))

	_, err = repo.Delete(s.Ctx, created.ID)
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestUpdatePartialMerge() {
	repo := s.repo()

	created, err := repo.Create(s.Ctx, &employee.CreateInput{
		Name:     "Jane",
		Email:    "jane@x.com",
		Phone:    "555-0100",
		Position: "Engineer",
	})
	s.Require().NoError(err)

	updated, err := repo.Update(s.Ctx, created.ID, &employee.Patch{
		Position: lo.ToPtr("Lead"),
		Phone:    lo.ToPtr(""),
	})
	s.Require().NoError(err)
	s.Equal("Lead", updated.Position)
	s.Equal("", updated.Phone)
	s.Equal("Jane", updated.Name)
	s.Equal("jane@x.com", updated.Email)
	s.False(updated.UpdatedAt.Before(created.UpdatedAt))

	got, err := repo.Get(s.Ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("Lead", got.Position)
	s.Equal("", got.Phone)
	s.Equal("Jane", got.Name)

	_, err = repo.Update(s.Ctx, "999999", &employee.Patch{Name: lo.ToPtr("X")})
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestSearch() {
	repo := s.repo()

	for _, in := range []*employee.CreateInput{
		{Name: "Jane Doe", Email: "jane@x.com"},
		{Name: "John Doe", Email: "john@x.com"},
		{Name: "jane", Email: "j@y.org"},
	} {
		_, err := repo.Create(s.Ctx, in)
		s.Require().NoError(err)
	}

	names := func(records []*employee.Employee) []string {
		return lo.Map(records, func(e *employee.Employee, _ int) string { return e.Name })
	}

	testCases := []struct {
		name     string
		filter   *types.SearchFilter
		expected []string
	}{
		{
			name:     "contains",
			filter:   &types.SearchFilter{Field: types.FieldName, Value: "JANE", Mode: types.MatchContains},
			expected: []string{"Jane Doe", "jane"},
		},
		{
			name:     "exact",
			filter:   &types.SearchFilter{Field: types.FieldName, Value: "jane", Mode: types.MatchExact},
			expected: []string{"jane"},
		},
		{
			name:     "starts_with",
			filter:   &types.SearchFilter{Field: types.FieldEmail, Value: "jo", Mode: types.MatchStartsWith},
			expected: []string{"John Doe"},
		},
		{
			name:     "ends_with",
			filter:   &types.SearchFilter{Field: types.FieldName, Value: "doe", Mode: types.MatchEndsWith},
			expected: []string{"Jane Doe", "John Doe"},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			got, err := repo.Search(s.Ctx, tc.filter)
			s.Require().NoError(err)
			s.ElementsMatch(tc.expected, names(got))
		})
	}
}
