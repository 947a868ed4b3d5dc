package routes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/backend/pkg/controllers"
	headerextractors "github.com/vpkilab/vpki/backend/pkg/routes/middlewares/basic-header-extractors"
	basiclogger "github.com/vpkilab/vpki/backend/pkg/routes/middlewares/basic-logger"
	cconfig "github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
)

const serverStartupGrace = 250 * time.Millisecond

func NewGinEngine(logger *logrus.Entry) *gin.Engine {
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {
		logger.Debugf("Endpoint: %-6s %s", httpMethod, absolutePath)
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"*"}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		cors.New(corsConfig),
		headerextractors.RequestMetadataToContextMiddleware(),
		basiclogger.UseLogger(logger),
	)

	return router
}

// RunHttpRouter serves routerEngine plus a /health endpoint and returns the
// port actually bound, which differs from the configured one when it is 0.
func RunHttpRouter(logger *logrus.Entry, routerEngine http.Handler, httpServerCfg cconfig.HttpServer, apiInfo models.APIServiceInfo, ledger services.LedgerService) (int, *http.Server, error) {
	hCheckRoute := controllers.NewHealthCheckRoute(apiInfo, ledger)
	healthLogger := logger
	if !httpServerCfg.HealthCheckLogging {
		nooutLogger := logrus.New()
		nooutLogger.Out = io.Discard

		healthLogger = nooutLogger.WithField("", "")
	}

	healthEngine := NewGinEngine(healthLogger)
	healthEngine.GET("/health", hCheckRoute.HealthCheck)

	mainEngine := http.NewServeMux()
	mainEngine.Handle("/", routerEngine)
	mainEngine.Handle("/health", healthEngine)

	addr := fmt.Sprintf("%s:%d", httpServerCfg.ListenAddress, httpServerCfg.Port)

	t := time.Second * 10
	server := &http.Server{
		Addr:         addr,
		Handler:      mainEngine,
		ReadTimeout:  t,
		WriteTimeout: t,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return -1, nil, err
	}

	usedPort := listener.Addr().(*net.TCPAddr).Port
	httpErrChan := make(chan error, 1)

	go func() {
		logger.Infof("HTTP server listening on %s:%d", httpServerCfg.ListenAddress, usedPort)
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("could not start http server: %s", err)
			httpErrChan <- err
		}
	}()

	ctxTimeout, cancel := context.WithTimeout(context.Background(), serverStartupGrace)
	defer cancel()

	select {
	case <-ctxTimeout.Done():
		logger.Info("HTTP server ready to accept requests")
	case err := <-httpErrChan:
		return -1, nil, err
	}

	return usedPort, server, nil
}
