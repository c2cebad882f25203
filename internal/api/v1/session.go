package v1

import (
	"github.com/flexprice/staffdesk/internal/service"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/gin-gonic/gin"
)

// coordinator resolves the caller's session. On failure the error is
// recorded on c and ok is false.
func coordinator(c *gin.Context, sessions *service.SessionManager) (*service.Coordinator, bool) {
	ctx := c.Request.Context()
	coord, err := sessions.Coordinator(ctx, types.GetSessionID(ctx))
	if err != nil {
		c.Error(err)
		return nil, false
	}
	return coord, true
}
