package middleware

import (
	"net/http"

	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/sentry"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last handler error as an ErrorResponse with the
// status derived from its mark. Server side failures are reported to Sentry.
func ErrorHandler(sentrySvc *sentry.Service, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)
		ctx := c.Request.Context()

		if status >= http.StatusInternalServerError {
			log.Errorw("request failed",
				"error", err,
				"status", status,
				"path", c.FullPath(),
				"request_id", types.GetRequestID(ctx))
			sentrySvc.CaptureException(ctx, err, map[string]string{
				"request_id": types.GetRequestID(ctx),
				"session_id": types.GetSessionID(ctx),
			})
		}

		if c.Writer.Written() {
			return
		}
		c.JSON(status, ierr.NewErrorResponse(err))
	}
}
