package v1

import (
	"context"
	"net/http"

	"github.com/flexprice/staffdesk/internal/api/dto"
	"github.com/flexprice/staffdesk/internal/domain/employee"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/service"
	"github.com/gin-gonic/gin"
)

type EmployeeHandler struct {
	sessions *service.SessionManager
	log      *logger.Logger
}

func NewEmployeeHandler(
	sessions *service.SessionManager,
	log *logger.Logger,
) *EmployeeHandler {
	return &EmployeeHandler{
		sessions: sessions,
		log:      log,
	}
}

// @Summary List employees
// @Description Reload the session's record set from the active backend
// @Tags Employees
// @Produce json
// @Success 200 {object} dto.EmployeeListResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /employees [get]
func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	coord, ok := coordinator(c, h.sessions)
	if !ok {
		return
	}

	state, err := coord.Load(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewEmployeeListResponse(state))
}

// @Summary Search employees
// @Description Search one field; an empty value lists every record
// @Tags Employees
// @Produce json
// @Param field query string false "name, email, phone, department or position"
// @Param value query string false "Search value"
// @Param mode query string false "contains (default), exact, starts_with or ends_with"
// @Success 200 {object} dto.EmployeeListResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /employees/search [get]
func (h *EmployeeHandler) SearchEmployees(c *gin.Context) {
	var req dto.SearchEmployeesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid search parameters").
			Mark(ierr.ErrValidation))
		return
	}

	filter, err := req.ToFilter()
	if err != nil {
		c.Error(err)
		return
	}

	coord, ok := coordinator(c, h.sessions)
	if !ok {
		return
	}

	state, err := coord.Search(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewEmployeeListResponse(state))
}

// @Summary Get an employee
// @Tags Employees
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} dto.EmployeeResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /employees/{id} [get]
func (h *EmployeeHandler) GetEmployee(c *gin.Context) {
	coord, ok := coordinator(c, h.sessions)
	if !ok {
		return
	}

	e, err := coord.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, &dto.EmployeeResponse{Employee: e})
}

// @Summary Create an employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param employee body dto.CreateEmployeeRequest true "Employee"
// @Success 201 {object} dto.MutationResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /employees [post]
func (h *EmployeeHandler) CreateEmployee(c *gin.Context) {
	var req dto.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	coord, ok := coordinator(c, h.sessions)
	if !ok {
		return
	}

	e, state, err := coord.Create(c.Request.Context(), req.ToCreateInput())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, &dto.MutationResponse{Employee: e, State: dto.NewEmployeeListResponse(state)})
}

// @Summary Update an employee
// @Description Partial update; omitted fields keep their value
// @Tags Employees
// @Accept json
// @Produce json
// @Param id path string true "Employee ID"
// @Param employee body dto.UpdateEmployeeRequest true "Changed fields"
// @Success 200 {object} dto.MutationResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /employees/{id} [patch]
func (h *EmployeeHandler) UpdateEmployee(c *gin.Context) {
	var req dto.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	coord, ok := coordinator(c, h.sessions)
	if !ok {
		return
	}

	e, state, err := coord.Update(c.Request.Context(), c.Param("id"), req.ToPatch())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, &dto.MutationResponse{Employee: e, State: dto.NewEmployeeListResponse(state)})
}

// @Summary Delete an employee
// @Tags Employees
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} dto.MutationResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /employees/{id} [delete]
func (h *EmployeeHandler) DeleteEmployee(c *gin.Context) {
	coord, ok := coordinator(c, h.sessions)
	if !ok {
		return
	}

	e, state, err := coord.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	if e.ProfileImage != "" {
		h.removeImage(c.Request.Context(), coord, e)
	}

	c.JSON(http.StatusOK, &dto.MutationResponse{Employee: e, State: dto.NewEmployeeListResponse(state)})
}

// removeImage drops the profile image of a deleted record. Failures are
// logged and never fail the delete.
func (h *EmployeeHandler) removeImage(ctx context.Context, coord *service.Coordinator, e *employee.Employee) {
	ctx = context.WithoutCancel(ctx)
	_, repo := coord.Backend()
	store, err := imageStoreFor(ctx, h.sessions, repo)
	if err != nil {
		h.log.Debugw("no image store for deleted employee", "employee_id", e.ID, "error", err)
		return
	}
	if err := store.DeleteImage(ctx, e.ProfileImage); err != nil {
		h.log.Warnw("failed to delete profile image", "employee_id", e.ID, "file_id", e.ProfileImage, "error", err)
	}
}
