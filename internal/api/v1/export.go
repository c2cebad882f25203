package v1

import (
	"fmt"
	"net/http"

	"github.com/flexprice/staffdesk/internal/api/dto"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/service"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	sessions *service.SessionManager
	export   *service.ExportService
	log      *logger.Logger
}

func NewExportHandler(
	sessions *service.SessionManager,
	export *service.ExportService,
	log *logger.Logger,
) *ExportHandler {
	return &ExportHandler{
		sessions: sessions,
		export:   export,
		log:      log,
	}
}

// @Summary Download employees as CSV
// @Description Export the session's current record set, including any search filter
// @Tags Export
// @Produce text/csv
// @Success 200 {file} file
// @Router /employees/export.csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	coord, ok := coordinator(c, h.sessions)
	if !ok {
		return
	}

	data, err := h.export.ExportCSV(coord.Records())
	if err != nil {
		c.Error(err)
		return
	}

	filename := fmt.Sprintf("employees-%s.csv", types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_EXPORT))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// @Summary Write employees to the spreadsheet
// @Description Write the session's current record set to the spreadsheet export tab. Employee rows are left untouched.
// @Tags Export
// @Produce json
// @Success 200 {object} dto.ExportSheetResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /employees/export/sheet [post]
func (h *ExportHandler) ExportSheet(c *gin.Context) {
	coord, ok := coordinator(c, h.sessions)
	if !ok {
		return
	}

	n, err := h.export.WriteBack(c.Request.Context(), coord.Records())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, &dto.ExportSheetResponse{Rows: n})
}
