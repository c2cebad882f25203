package middleware

import (
	"time"

	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/types"
	sentrygo "github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryMiddleware returns a middleware that captures panics and performance data
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// SentryScopeMiddleware tags the request hub with the request and session ids
// so captured errors can be traced back to the screen that raised them.
// It must run after SentryMiddleware and SessionIDMiddleware.
func SentryScopeMiddleware(c *gin.Context) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		ctx := c.Request.Context()
		hub.ConfigureScope(func(scope *sentrygo.Scope) {
			if requestID := types.GetRequestID(ctx); requestID != "" {
				scope.SetTag("request_id", requestID)
			}
			if sessionID := types.GetSessionID(ctx); sessionID != "" {
				scope.SetTag("session_id", sessionID)
			}
		})
	}
	c.Next()
}
