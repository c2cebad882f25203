package v1

import (
	"net/http"

	"github.com/flexprice/staffdesk/internal/api/dto"
	"github.com/flexprice/staffdesk/internal/domain/employee"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/service"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/gin-gonic/gin"
)

type BackendHandler struct {
	sessions *service.SessionManager
	log      *logger.Logger
}

func NewBackendHandler(
	sessions *service.SessionManager,
	log *logger.Logger,
) *BackendHandler {
	return &BackendHandler{
		sessions: sessions,
		log:      log,
	}
}

// @Summary List backends
// @Description List configured backends and the one active for this session
// @Tags Backends
// @Produce json
// @Success 200 {object} dto.BackendsResponse
// @Router /backends [get]
func (h *BackendHandler) ListBackends(c *gin.Context) {
	coord, ok := coordinator(c, h.sessions)
	if !ok {
		return
	}

	kind, repo := coord.Backend()
	c.JSON(http.StatusOK, &dto.BackendsResponse{
		Available:    h.sessions.Backends().Available(),
		Active:       kind,
		Capabilities: repo.Capabilities(),
	})
}

// @Summary Switch backend
// @Description Switch this session to another backend and load its records
// @Tags Backends
// @Accept json
// @Produce json
// @Param request body dto.SwitchBackendRequest true "Backend"
// @Success 200 {object} dto.EmployeeListResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /backends/active [put]
func (h *BackendHandler) SwitchBackend(c *gin.Context) {
	var req dto.SwitchBackendRequest
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

	ctx := c.Request.Context()
	state, err := h.sessions.Switch(ctx, types.GetSessionID(ctx), req.Backend)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewEmployeeListResponse(state))
}

// @Summary Set up backend storage
// @Description Create the header row, table or bucket of the active backend
// @Tags Backends
// @Produce json
// @Success 200 {object} dto.SetupBackendResponse
// @Router /backends/active/setup [post]
func (h *BackendHandler) SetupBackend(c *gin.Context) {
	coord, ok := coordinator(c, h.sessions)
	if !ok {
		return
	}

	kind, repo := coord.Backend()
	initializer, ok := repo.(employee.StorageInitializer)
	if !ok {
		c.Error(ierr.NewErrorf("backend %s cannot create its storage", kind).
			WithHintf("Backend %s does not support setup", kind).
			Mark(ierr.ErrInvalidOperation))
		return
	}

	if err := initializer.EnsureStorage(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}

	h.log.Infow("backend storage ready", "backend", kind)
	c.JSON(http.StatusOK, &dto.SetupBackendResponse{Backend: kind, Ready: true})
}
