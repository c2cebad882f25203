package middleware

import (
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx := types.SetRequestID(c.Request.Context(), requestID)
	c.Request = c.Request.WithContext(ctx)
	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}

// SessionIDMiddleware binds the request to a screen session. Clients that do
// not send one get a fresh id back and are expected to reuse it.
func SessionIDMiddleware(c *gin.Context) {
	sessionID := c.GetHeader(types.HeaderSessionID)
	if sessionID == "" {
		sessionID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SESSION)
	}

	ctx := types.SetSessionID(c.Request.Context(), sessionID)
	c.Request = c.Request.WithContext(ctx)
	c.Header(types.HeaderSessionID, sessionID)

	c.Next()
}
