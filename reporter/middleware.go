package reporter

import (
	"time"

	"github.com/TEENet-io/onebtc-go/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
)

const (
	HeaderCaller    = "X-Caller"
	HeaderRequestID = "X-Request-ID"

	keyCaller = "caller"
)

// requestID tags every request with an id, reusing the client's if given.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)

		start := time.Now()
		c.Next()

		logger.WithFields(logger.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		}).Debug("http request")
	}
}

// requireCaller reads the caller identity of state changing routes.
func requireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := common.ParseAccount(c.GetHeader(HeaderCaller))
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing or invalid " + HeaderCaller + " header", "reason": "Unauthorized"})
			return
		}
		c.Set(keyCaller, caller)
		c.Next()
	}
}
