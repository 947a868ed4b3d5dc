package basiclogger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/helpers"
)

const (
	defaultLogFormat = "%-7s %3d | %13v | %15s | \"%s\""
)

// UseLogger logs one line per request. Server errors are logged at warn
// level, everything else at debug.
func UseLogger(logger *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		lReq := helpers.ConfigureLogger(c, logger)
		line := fmt.Sprintf(defaultLogFormat,
			c.Request.Method,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
			path,
		)

		if c.Writer.Status() >= 500 {
			lReq.Warn(line)
			return
		}

		lReq.Debug(line)
	}
}
