package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-core/pkg/actor"
)

// ActorHeader names the caller on whose behalf a mutation runs. Authentication happens
// upstream; the value is trusted as given.
const ActorHeader = "X-Actor"

// Actor copies the X-Actor header into the request context for the audit trail.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if name := c.GetHeader(ActorHeader); name != "" {
			c.Request = c.Request.WithContext(actor.WithActor(c.Request.Context(), name))
		}
		c.Next()
	}
}
