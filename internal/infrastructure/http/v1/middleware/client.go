package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "serialgen/internal/core/context"
)

// HeaderClientID names the calling system. It is not authenticated.
const HeaderClientID = "X-Client-ID"

// Client records who is asking for numbers so log lines carry client_id.
func Client() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := &appctx.ClientContext{
			ClientID:  c.GetHeader(HeaderClientID),
			RemoteIP:  c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		c.Request = c.Request.WithContext(appctx.WithClient(c.Request.Context(), client))
		c.Next()
	}
}
