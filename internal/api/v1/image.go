package v1

import (
	"context"
	"io"
	"net/http"

	"github.com/flexprice/staffdesk/internal/api/dto"
	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/domain/employee"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/service"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/gin-gonic/gin"
)

const defaultMaxImageSizeMB = 5

type ImageHandler struct {
	sessions *service.SessionManager
	maxBytes int64
	log      *logger.Logger
}

func NewImageHandler(
	cfg *config.Configuration,
	sessions *service.SessionManager,
	log *logger.Logger,
) *ImageHandler {
	limit := cfg.Cloud.MaxImageSizeMB
	if limit <= 0 {
		limit = defaultMaxImageSizeMB
	}
	return &ImageHandler{
		sessions: sessions,
		maxBytes: int64(limit) << 20,
		log:      log,
	}
}

func (h *ImageHandler) imageStore(c *gin.Context) (employee.ImageStore, bool) {
	coord, ok := coordinator(c, h.sessions)
	if !ok {
		return nil, false
	}

	_, repo := coord.Backend()
	store, err := imageStoreFor(c.Request.Context(), h.sessions, repo)
	if err != nil {
		c.Error(err)
		return nil, false
	}
	return store, true
}

// imageStoreFor returns repo when it stores images, and the cloud backend
// otherwise
func imageStoreFor(ctx context.Context, sessions *service.SessionManager, repo employee.Repository) (employee.ImageStore, error) {
	if repo != nil && repo.Capabilities().Images {
		if store, ok := repo.(employee.ImageStore); ok {
			return store, nil
		}
	}

	cloud, err := sessions.Backends().Get(ctx, types.BackendCloud)
	if err != nil {
		return nil, err
	}
	store, ok := cloud.(employee.ImageStore)
	if !ok {
		return nil, ierr.NewError("cloud backend does not store images").
			WithHint("Image storage is not configured").
			Mark(ierr.ErrInvalidOperation)
	}
	return store, nil
}

// @Summary Upload a profile image
// @Tags Images
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Success 201 {object} dto.UploadImageResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /images [post]
func (h *ImageHandler) UploadImage(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("An image file is required").
			Mark(ierr.ErrValidation))
		return
	}

	if header.Size > h.maxBytes {
		c.Error(ierr.NewErrorf("image is %d bytes", header.Size).
			WithHintf("Image must be at most %d MB", h.maxBytes>>20).
			Mark(ierr.ErrValidation))
		return
	}

	file, err := header.Open()
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Could not read the uploaded file").
			Mark(ierr.ErrValidation))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Could not read the uploaded file").
			Mark(ierr.ErrValidation))
		return
	}

	store, ok := h.imageStore(c)
	if !ok {
		return
	}

	fileID, err := store.UploadImage(c.Request.Context(), data, header.Filename)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, &dto.UploadImageResponse{FileID: fileID})
}

// @Summary Get a profile image link
// @Tags Images
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} dto.ImageURLResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /images/{id} [get]
func (h *ImageHandler) GetImageURL(c *gin.Context) {
	store, ok := h.imageStore(c)
	if !ok {
		return
	}

	fileID := c.Param("id")
	url, err := store.ImageURL(c.Request.Context(), fileID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, &dto.ImageURLResponse{FileID: fileID, URL: url})
}

// @Summary Delete a profile image
// @Tags Images
// @Param id path string true "File ID"
// @Success 204
// @Failure 404 {object} ierr.ErrorResponse
// @Router /images/{id} [delete]
func (h *ImageHandler) DeleteImage(c *gin.Context) {
	store, ok := h.imageStore(c)
	if !ok {
		return
	}

	if err := store.DeleteImage(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
