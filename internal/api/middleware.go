package api

import (
	"strconv"
	"time"

	"commerce-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerUserID   = "X-User-ID"
	headerUserName = "X-User-Name"

	contextUserID = "user_id"
	contextActor  = "actor"

	anonymousActor = "anonymous"
)

// identityMiddleware trusts the identity headers set by the gateway
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetHeader(headerUserID))
		if err != nil {
			userID = uuid.Nil
		}

		actor := c.GetHeader(headerUserName)
		if actor == "" && userID != uuid.Nil {
			actor = userID.String()
		}
		if actor == "" {
			actor = anonymousActor
		}

		c.Set(contextUserID, userID)
		c.Set(contextActor, actor)
		c.Next()
	}
}

func currentUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(contextUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func currentActor(c *gin.Context) string {
	if actor := c.GetString(contextActor); actor != "" {
		return actor
	}
	return anonymousActor
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Inc()
	}
}
