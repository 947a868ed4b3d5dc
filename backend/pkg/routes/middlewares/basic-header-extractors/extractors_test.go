package headerextractors

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/vpkilab/vpki/core"
	"github.com/vpkilab/vpki/core/pkg/helpers"
	"github.com/vpkilab/vpki/core/pkg/models"
)

func TestUpdateContextWithRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var testcases = []struct {
		name        string
		headers     map[string]string
		resultCheck func(t *testing.T, c *gin.Context, rec *httptest.ResponseRecorder)
	}{
		{
			name: "OK/HeadersPropagated",
			headers: map[string]string{
				models.HttpSourceHeader:    "obu-7",
				models.HttpRequestIDHeader: "req-1",
				"x-ignored":                "ignored",
			},
			resultCheck: func(t *testing.T, c *gin.Context, rec *httptest.ResponseRecorder) {
				assert.Equal(t, "obu-7", c.Value(helpers.CtxSource))
				assert.Equal(t, "obu-7", c.Value(core.VPKIContextKeySource))
				assert.Equal(t, "req-1", c.Value(helpers.CtxRequestID))
				assert.Equal(t, "req-1", c.Value(core.VPKIContextKeyRequestID))
				assert.Equal(t, "req-1", rec.Header().Get(models.HttpRequestIDHeader))
				assert.Nil(t, c.Value("x-ignored"))
			},
		},
		{
			name:    "OK/RequestIDGenerated",
			headers: map[string]string{},
			resultCheck: func(t *testing.T, c *gin.Context, rec *httptest.ResponseRecorder) {
				reqID, ok := c.Value(helpers.CtxRequestID).(string)
				assert.True(t, ok)
				assert.True(t, strings.HasPrefix(reqID, "http."))
				assert.Nil(t, c.Value(helpers.CtxSource))
			},
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				c.Request.Header.Set(k, v)
			}

			RequestMetadataToContextMiddleware()(c)
			tc.resultCheck(t, c, rec)
		})
	}
}
