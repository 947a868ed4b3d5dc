package headerextractors

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jakehl/goid"
	"github.com/vpkilab/vpki/core"
	"github.com/vpkilab/vpki/core/pkg/helpers"
	"github.com/vpkilab/vpki/core/pkg/models"
)

// updateContextWithRequestID stores the caller supplied request id, or a fresh
// one, under both the logging and the event publishing keys.
func updateContextWithRequestID(ctx *gin.Context, headers http.Header) {
	reqID := headers.Get(models.HttpRequestIDHeader)
	if reqID == "" {
		reqID = fmt.Sprintf("http.%s", goid.NewV4UUID())
	}

	ctx.Set(helpers.CtxRequestID, reqID)
	ctx.Set(core.VPKIContextKeyRequestID, reqID)
	ctx.Header(models.HttpRequestIDHeader, reqID)
}

func updateContextWithSource(ctx *gin.Context, headers http.Header) {
	sourceHeader := headers.Get(models.HttpSourceHeader)
	if sourceHeader != "" {
		ctx.Set(helpers.CtxSource, sourceHeader)
		ctx.Set(core.VPKIContextKeySource, sourceHeader)
	}
}

func RequestMetadataToContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		updateContextWithRequestID(c, c.Request.Header)
		updateContextWithSource(c, c.Request.Header)
		c.Next()
	}
}
