// README: Actor middleware: reads the caller identity set by the API gateway.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kurier/internal/types"
)

const (
	headerActorID   = "X-Actor-Id"
	headerActorRole = "X-Actor-Role"

	actorKey = "actor"
)

// Actor extracts the authenticated caller from the gateway headers.
// Authentication itself happens upstream; requests without a valid identity
// are rejected here.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerActorID)
		role := types.Role(c.GetHeader(headerActorRole))
		if id == "" || !types.ValidRole(role) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid actor identity"})
			return
		}
		c.Set(actorKey, types.Actor{ID: types.ID(id), Role: role})
		c.Next()
	}
}

// ActorFrom returns the actor stored by the Actor middleware.
func ActorFrom(c *gin.Context) types.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return types.Actor{}
	}
	a, _ := v.(types.Actor)
	return a
}
