package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sp2025/darkwatch/internal/services"
	"github.com/sp2025/darkwatch/internal/util"
)

// ActorHeader names the operator behind a request. There is no
// authentication; the value is recorded in the audit log as sent.
const ActorHeader = "X-Darkwatch-Actor"

const maxActorLen = 64

// Actor copies the actor header into the request context for audit records.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := util.Truncate(strings.TrimSpace(util.SanitizeForLog(c.GetHeader(ActorHeader))), maxActorLen)
		if actor != "" {
			c.Request = c.Request.WithContext(services.WithActor(c.Request.Context(), actor))
			c.Set(loggerKey, GetRequestLogger(c).WithField("actor", actor))
		}
		c.Next()
	}
}
