package controllers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/resources"
	"github.com/vpkilab/vpki/core/pkg/services"
	svcmock "github.com/vpkilab/vpki/core/pkg/services/mock"
)

func newEdgeTestRouter(nodes ...services.EdgeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	routes := NewEdgeHttpRoutes(nodes)

	router := gin.New()
	grp := router.Group("/edge/:node")
	grp.GET("/certificates/:sn", routes.Lookup)
	grp.GET("/stats", routes.GetStats)
	grp.PUT("/degraded", routes.SetDegraded)
	return router
}

func newMockEdge(nodeID string) *svcmock.MockEdgeService {
	edge := new(svcmock.MockEdgeService)
	edge.On("NodeID").Return(nodeID)
	return edge
}

func TestEdgeLookupRoute(t *testing.T) {
	var testcases = []struct {
		name         string
		path         string
		before       func(edge *svcmock.MockEdgeService)
		expectedCode int
		resultCheck  func(t *testing.T, body []byte)
	}{
		{
			name: "OK/Hit",
			path: "/edge/rsu-1/certificates/sn-1",
			before: func(edge *svcmock.MockEdgeService) {
				edge.On("Lookup", mock.Anything, services.LookupInput{SerialNumber: "sn-1"}).Return(&models.Validity{
					SerialNumber: "sn-1",
					Status:       models.StatusActive,
					ExpiresAt:    time.Now().Add(time.Hour),
					Source:       models.ValiditySourceCache,
				}, nil)
			},
			expectedCode: 200,
			resultCheck: func(t *testing.T, body []byte) {
				var validity models.Validity
				require.NoError(t, json.Unmarshal(body, &validity))
				assert.Equal(t, models.ValiditySourceCache, validity.Source)
				assert.Equal(t, models.StatusActive, validity.Status)
			},
		},
		{
			name:         "ERR/UnknownNode",
			path:         "/edge/rsu-9/certificates/sn-1",
			before:       func(edge *svcmock.MockEdgeService) {},
			expectedCode: 404,
			resultCheck: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), errs.ErrEdgeNodeNotFound.Error())
			},
		},
		{
			name: "ERR/CertificateNotFound",
			path: "/edge/rsu-1/certificates/sn-1",
			before: func(edge *svcmock.MockEdgeService) {
				edge.On("Lookup", mock.Anything, mock.Anything).Return((*models.Validity)(nil), errs.ErrCertificateNotFound)
			},
			expectedCode: 404,
			resultCheck:  func(t *testing.T, body []byte) {},
		},
		{
			name: "ERR/BackendUnavailable",
			path: "/edge/rsu-1/certificates/sn-1",
			before: func(edge *svcmock.MockEdgeService) {
				edge.On("Lookup", mock.Anything, mock.Anything).Return((*models.Validity)(nil), errs.ErrEdgeBackendUnavailable)
			},
			expectedCode: 503,
			resultCheck:  func(t *testing.T, body []byte) {},
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			edge := newMockEdge("rsu-1")
			tc.before(edge)

			rec := doRequest(newEdgeTestRouter(edge), http.MethodGet, tc.path, nil)
			assert.Equal(t, tc.expectedCode, rec.Code)
			tc.resultCheck(t, rec.Body.Bytes())
		})
	}
}

func TestEdgeSetDegradedRoute(t *testing.T) {
	degraded := true
	edge := newMockEdge("rsu-1")
	edge.On("SetDegraded", mock.Anything, true).Return()
	router := newEdgeTestRouter(edge)

	rec := doRequest(router, http.MethodPut, "/edge/rsu-1/degraded", resources.SetDegradedBody{Degraded: &degraded})
	require.Equal(t, 200, rec.Code)

	var resp resources.SetDegradedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rsu-1", resp.NodeID)
	assert.True(t, resp.Degraded)
	edge.AssertCalled(t, "SetDegraded", mock.Anything, true)

	rec = doRequest(router, http.MethodPut, "/edge/rsu-1/degraded", map[string]any{})
	assert.Equal(t, 400, rec.Code)
}

func TestEdgeStatsRoute(t *testing.T) {
	edgeA := newMockEdge("rsu-1")
	edgeA.On("GetStats", mock.Anything).Return(&models.EdgeStats{NodeID: "rsu-1", Hits: 3, Misses: 1, HitRate: 75, Capacity: 10})
	edgeB := newMockEdge("rsu-2")
	edgeB.On("GetStats", mock.Anything).Return(&models.EdgeStats{NodeID: "rsu-2", Degraded: true})
	router := newEdgeTestRouter(edgeA, edgeB)

	rec := doRequest(router, http.MethodGet, "/edge/rsu-1/stats", nil)
	require.Equal(t, 200, rec.Code)

	var stats models.EdgeStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, uint64(3), stats.Hits)
	assert.Equal(t, 75.0, stats.HitRate)

	rec = doRequest(router, http.MethodGet, "/edge/rsu-2/stats", nil)
	require.Equal(t, 200, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.True(t, stats.Degraded)
}
