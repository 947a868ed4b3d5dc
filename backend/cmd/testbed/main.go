package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/backend/pkg/assemblers"
	"github.com/vpkilab/vpki/backend/pkg/config"
	cconfig "github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/helpers"
	"github.com/vpkilab/vpki/core/pkg/models"
	"gopkg.in/yaml.v2"
)

var (
	version   string = "v0"    // api version
	sha1ver   string = "-"     // sha1 revision used to build the program
	buildTime string = "devTS" // when the executable was built
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.SetFormatter(helpers.LogFormatter)
	log.Infof("starting testbed: version=%s buildTime=%s sha1ver=%s", version, buildTime, sha1ver)

	defaults := config.DefaultTestbedConfig()
	conf, err := cconfig.LoadConfig[config.TestbedConfig](&defaults)
	if err != nil {
		log.Fatalf("something went wrong while loading config. Exiting: %s", err)
	}

	globalLogLevel, err := log.ParseLevel(string(conf.Logs.Level))
	if err != nil {
		log.Warn("unknown log level. defaulting to 'info' log level")
		globalLogLevel = log.InfoLevel
	}
	log.SetLevel(globalLogLevel)

	log.Infof("global log level set to '%s'", globalLogLevel)

	confBytes, err := yaml.Marshal(conf)
	if err != nil {
		log.Fatalf("could not dump yaml config: %s", err)
	}

	log.Debugf("===================================================")
	log.Debugf("%s", confBytes)
	log.Debugf("===================================================")

	if err := conf.Validate(); err != nil {
		log.Fatalf("invalid testbed config. Exiting: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tb, err := assemblers.AssembleTestbedWithHTTPServer(ctx, *conf, models.APIServiceInfo{
		Version:   version,
		BuildSHA:  sha1ver,
		BuildTime: buildTime,
	})
	if err != nil {
		log.Fatalf("could not run testbed. Exiting: %s", err)
	}

	<-ctx.Done()
	log.Info("shutting down testbed")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := tb.Close(shutdownCtx); err != nil {
		log.Errorf("testbed did not shut down cleanly: %s", err)
	}
}
