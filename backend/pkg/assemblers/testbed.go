package assemblers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/backend/pkg/config"
	cryptobuilder "github.com/vpkilab/vpki/backend/pkg/cryptoengines/builder"
	"github.com/vpkilab/vpki/backend/pkg/eventbus"
	"github.com/vpkilab/vpki/backend/pkg/gateway"
	gatewaybuilder "github.com/vpkilab/vpki/backend/pkg/gateway/builder"
	"github.com/vpkilab/vpki/backend/pkg/jobs"
	"github.com/vpkilab/vpki/backend/pkg/ledger"
	"github.com/vpkilab/vpki/backend/pkg/metrics"
	auditpub "github.com/vpkilab/vpki/backend/pkg/middlewares/audit"
	"github.com/vpkilab/vpki/backend/pkg/middlewares/eventpub"
	"github.com/vpkilab/vpki/backend/pkg/middlewares/instrumenting"
	otelmw "github.com/vpkilab/vpki/backend/pkg/middlewares/otel"
	"github.com/vpkilab/vpki/backend/pkg/routes"
	lservices "github.com/vpkilab/vpki/backend/pkg/services"
	"github.com/vpkilab/vpki/backend/pkg/services/handlers"
	storagebuilder "github.com/vpkilab/vpki/backend/pkg/storage/builder"
	"github.com/vpkilab/vpki/backend/pkg/vehicle"
	cconfig "github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/engines/cryptoengines"
	ceventbus "github.com/vpkilab/vpki/core/pkg/engines/eventbus"
	cgateway "github.com/vpkilab/vpki/core/pkg/engines/gateway"
	"github.com/vpkilab/vpki/core/pkg/engines/storage"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"github.com/vpkilab/vpki/core/pkg/helpers"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
)

const serviceID = "vpki"

var invalidationTopics = []models.EventType{
	models.EventRevokeCertificateKey,
	models.EventArchiveCertificateKey,
	models.EventRenewCertificateKey,
}

// Testbed owns every component of a running PKI testbed. CA, Ledger and
// Edges are the middleware-wrapped services; the *Backend fields give access
// to the concrete implementations for inspection.
type Testbed struct {
	Config  config.TestbedConfig
	Metrics *metrics.Sink
	Signer  cryptoengines.SigningEngine

	Ledger     services.LedgerService
	LedgerCore *ledger.Ledger

	CA        services.CAService
	CABackend *lservices.CAServiceBackend

	Edges        []services.EdgeService
	EdgeBackends []*lservices.EdgeServiceBackend

	Gateway   cgateway.LedgerGateway
	Forwarder *gateway.Forwarder

	Publisher  message.Publisher
	Subscriber message.Subscriber

	HttpPort int

	logger          *log.Entry
	storage         storage.StorageEngine
	subscriptions   []*ceventbus.EventSubscriptionHandler
	schedulers      []*jobs.JobScheduler
	tracingShutdown func(context.Context) error
	httpServer      *http.Server
}

func AssembleTestbedWithHTTPServer(ctx context.Context, conf config.TestbedConfig, serviceInfo models.APIServiceInfo) (*Testbed, error) {
	tb, err := AssembleTestbed(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("could not assemble testbed. Exiting: %s", err)
	}

	lHttp := helpers.SetupLogger(conf.Server.LogLevel, serviceID, "HTTP Server")

	httpEngine := routes.NewGinEngine(lHttp)
	httpGrp := httpEngine.Group("/")
	routes.NewCAHTTPLayer(httpGrp, tb.CA)
	routes.NewEdgeHTTPLayer(httpGrp, tb.Edges)
	routes.NewLedgerHTTPLayer(httpGrp, tb.Ledger)
	routes.NewMetricsHTTPLayer(httpGrp, tb.Metrics.Handler())

	port, server, err := routes.RunHttpRouter(lHttp, httpEngine, conf.Server, serviceInfo, tb.Ledger)
	if err != nil {
		tb.Close(ctx)
		return nil, fmt.Errorf("could not run testbed http server: %s", err)
	}

	tb.HttpPort = port
	tb.httpServer = server
	return tb, nil
}

// AssembleTestbed builds and starts every component described by conf. On
// error, whatever was already started is torn down.
func AssembleTestbed(ctx context.Context, conf config.TestbedConfig) (*Testbed, error) {
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrValidateBadRequest, err)
	}

	lSvc := helpers.SetupLogger(conf.Logs.Level, serviceID, "Testbed")
	tb := &Testbed{Config: conf, logger: lSvc}

	if err := tb.assemble(ctx); err != nil {
		lSvc.Errorf("testbed assembly failed: %s", err)
		tb.Close(ctx)
		return nil, err
	}

	lSvc.Infof("testbed ready with %d edge node(s)", len(tb.Edges))
	return tb, nil
}

func (tb *Testbed) assemble(ctx context.Context) error {
	conf := tb.Config

	lCA := helpers.SetupLogger(conf.CA.LogLevel, serviceID, "CA")
	lLedger := helpers.SetupLogger(conf.Ledger.LogLevel, serviceID, "Ledger")
	lStorage := helpers.SetupLogger(conf.Storage.LogLevel, serviceID, "Storage")
	lCrypto := helpers.SetupLogger(conf.CryptoEngine.LogLevel, serviceID, "Crypto Engine")
	lGateway := helpers.SetupLogger(conf.Gateway.LogLevel, serviceID, "Gateway")
	lMessage := helpers.SetupLogger(conf.EventBus.LogLevel, serviceID, "Event Bus")
	lAudit := helpers.SetupLogger(conf.EventBus.LogLevel, serviceID, "Audit Bus")
	lJobs := helpers.SetupLogger(conf.Logs.Level, serviceID, "Jobs")

	if conf.Tracing.Enabled {
		shutdown, err := setupTracing(ctx, tb.logger, conf.Tracing)
		if err != nil {
			return fmt.Errorf("could not set up tracing: %w", err)
		}
		tb.tracingShutdown = shutdown
	}

	switch conf.Metrics.Provider {
	case config.GenericMetrics:
		tb.Metrics = metrics.NewGenericSink()
	case config.DiscardMetrics:
		tb.Metrics = metrics.NewDiscardSink()
	default:
		tb.Metrics = metrics.NewPrometheusSink(conf.Metrics.Namespace)
	}

	engine, err := storagebuilder.BuildStorageEngine(lStorage, conf.Storage)
	if err != nil {
		return fmt.Errorf("could not create storage engine: %s", err)
	}
	tb.storage = engine

	certStorage, err := engine.GetCertificateStorage()
	if err != nil {
		return fmt.Errorf("could not get certificate storage: %s", err)
	}

	archiveStorage, err := engine.GetArchiveStorage()
	if err != nil {
		return fmt.Errorf("could not get archive storage: %s", err)
	}

	tb.Signer, err = cryptobuilder.BuildCryptoEngine(lCrypto, conf.CryptoEngine)
	if err != nil {
		return fmt.Errorf("could not create crypto engine: %s", err)
	}

	tb.LedgerCore, err = ledger.NewLedger(ledger.LedgerBuilder{
		Logger:          lLedger,
		Archive:         archiveStorage,
		Metrics:         tb.Metrics,
		PoolCapacity:    conf.Ledger.PoolCapacity,
		RetentionBlocks: conf.Ledger.RetentionBlocks,
		Difficulty:      conf.Ledger.Difficulty,
		LatencyWindow:   conf.Ledger.LatencyWindow,
	})
	if err != nil {
		return fmt.Errorf("could not create ledger: %w", err)
	}
	tb.Ledger = tb.LedgerCore

	var eventPublisher, auditPublisher eventpub.ICloudEventPublisher
	if conf.EventBus.Enabled {
		tb.logger.Infof("Event Bus is enabled")
		tb.Publisher, tb.Subscriber, err = eventbus.NewEventBus(conf.EventBus, serviceID, lMessage)
		if err != nil {
			return fmt.Errorf("could not create Event Bus: %s", err)
		}

		eventPublisher = &eventpub.CloudEventPublisher{
			Publisher: tb.Publisher,
			ServiceID: serviceID,
			Logger:    lMessage,
		}
		auditPublisher = &eventpub.CloudEventPublisher{
			Publisher: tb.Publisher,
			ServiceID: serviceID,
			Logger:    lAudit,
		}

		tb.Ledger = eventpub.NewLedgerEventBusPublisher(eventPublisher)(tb.Ledger)
	}

	if conf.Tracing.Enabled {
		tb.Ledger = otelmw.NewLedgerOTelTracer()(tb.Ledger)
	}

	var forwarder lservices.TransactionForwarder
	if conf.Gateway.Enabled {
		tb.logger.Infof("Ledger gateway '%s' is enabled", conf.Gateway.Provider)
		tb.Gateway, err = gatewaybuilder.BuildGateway(lGateway, conf.Gateway)
		if err != nil {
			return fmt.Errorf("could not create ledger gateway: %s", err)
		}

		tb.Forwarder, err = gateway.NewForwarder(gateway.ForwarderBuilder{
			Logger:  lGateway,
			Gateway: tb.Gateway,
			Metrics: tb.Metrics,
			Config:  conf.GatewayForwarding,
			OnAck: func(tx *models.Transaction, ack *models.GatewayAck, elapsed time.Duration) {
				lGateway.Tracef("transaction %s acknowledged as %s after %s", tx.ID, ack.Reference, elapsed)
			},
		})
		if err != nil {
			return fmt.Errorf("could not create gateway forwarder: %w", err)
		}

		if err := tb.Forwarder.Start(ctx); err != nil {
			return fmt.Errorf("could not start gateway forwarder: %w", err)
		}
		forwarder = tb.Forwarder
	}

	tb.CABackend, err = lservices.NewCAService(lservices.CAServiceBuilder{
		Logger:             lCA,
		CAID:               conf.CA.ID,
		SigningEngine:      tb.Signer,
		CertificateStorage: certStorage,
		Ledger:             tb.Ledger,
		Forwarder:          forwarder,
		Metrics:            tb.Metrics,
		DefaultValidity:    conf.CA.DefaultValidity,
	})
	if err != nil {
		return fmt.Errorf("could not create CA service: %w", err)
	}

	var ca services.CAService = tb.CABackend
	ca = instrumenting.NewCAInstrumentingMiddleware(tb.Metrics.RequestInstruments("ca"))(ca)
	if conf.EventBus.Enabled {
		ca = eventpub.NewCAEventBusPublisher(eventPublisher)(ca)
		ca = auditpub.NewCAAuditEventBusPublisher(*auditpub.NewAuditPublisher(auditPublisher))(ca)
	}
	if conf.Tracing.Enabled {
		ca = otelmw.NewCAOTelTracer()(ca)
	}
	tb.CA = ca

	edgeMw := instrumenting.NewEdgeInstrumentingMiddleware(tb.Metrics.RequestInstruments("edge"))
	for _, node := range conf.EdgeNodes {
		lEdge := helpers.SetupLogger(conf.Logs.Level, serviceID, "Edge "+node.ID)

		backend, err := lservices.NewEdgeService(lservices.EdgeServiceBuilder{
			Logger:   lEdge,
			NodeID:   node.ID,
			Capacity: node.Capacity,
			CA:       tb.CA,
			Metrics:  tb.Metrics,
		})
		if err != nil {
			return fmt.Errorf("could not create edge node %s: %w", node.ID, err)
		}

		switch node.Invalidation {
		case config.EventInvalidation:
			if err := tb.subscribeInvalidations(lEdge, backend); err != nil {
				return err
			}
		default:
			tb.CABackend.RegisterInvalidator(backend)
		}

		tb.EdgeBackends = append(tb.EdgeBackends, backend)
		tb.Edges = append(tb.Edges, edgeMw(backend))
	}

	if conf.Ledger.MiningJob.Enabled {
		if err := tb.schedule(lJobs, conf.Ledger.MiningJob, jobs.NewMiningJob(tb.Ledger, lJobs)); err != nil {
			return err
		}
	}

	if conf.Ledger.PruningJob.Enabled {
		if err := tb.schedule(lJobs, conf.Ledger.PruningJob, jobs.NewPruningJob(tb.Ledger, lJobs)); err != nil {
			return err
		}
	}

	if conf.CA.ArchivalJob.Enabled {
		if err := tb.schedule(lJobs, conf.CA.ArchivalJob, jobs.NewCertificateArchivalJob(tb.CA, conf.CA.ArchivalRetention, lJobs)); err != nil {
			return err
		}
	}

	return nil
}

func (tb *Testbed) subscribeInvalidations(lEdge *log.Entry, edge *lservices.EdgeServiceBackend) error {
	handler := handlers.NewEdgeInvalidationEventHandler(lEdge, edge)
	nodeID := edge.NodeID()

	for _, topic := range invalidationTopics {
		name := fmt.Sprintf("edge-%s-%s", nodeID, topic)
		subHandler, err := ceventbus.NewEventBusMessageHandler(name, string(topic), tb.Subscriber, tb.Publisher, lEdge, handler)
		if err != nil {
			return fmt.Errorf("could not create %s event handler for edge node %s: %s", topic, nodeID, err)
		}

		if err := subHandler.RunAsync(); err != nil {
			return fmt.Errorf("could not run %s event handler for edge node %s: %s", topic, nodeID, err)
		}
		tb.subscriptions = append(tb.subscriptions, subHandler)
	}

	lEdge.Infof("edge node %s invalidated through the event bus", nodeID)
	return nil
}

func (tb *Testbed) schedule(logger *log.Entry, conf cconfig.MonitoringJob, job cron.Job) error {
	scheduler, err := jobs.NewJobScheduler(logger, conf.Frequency, job)
	if err != nil {
		return fmt.Errorf("could not schedule job: %w", err)
	}

	scheduler.Start()
	tb.schedulers = append(tb.schedulers, scheduler)
	return nil
}

// Edge returns the wrapped edge service registered under nodeID.
func (tb *Testbed) Edge(nodeID string) (services.EdgeService, error) {
	for _, edge := range tb.Edges {
		if edge.NodeID() == nodeID {
			return edge, nil
		}
	}

	return nil, errs.ErrEdgeNodeNotFound
}

// NewVehicle creates an OBU sharing the testbed signing engine and metrics.
func (tb *Testbed) NewVehicle(ctx context.Context, vehicleID string) (*vehicle.OBU, error) {
	return vehicle.NewOBU(ctx, vehicle.OBUBuilder{
		Logger:        tb.logger.WithField("subsystem-provider", "OBU "+vehicleID),
		VehicleID:     vehicleID,
		SigningEngine: tb.Signer,
		Metrics:       tb.Metrics,
	})
}

// Close stops every started component. It is safe to call on a partially
// assembled testbed.
func (tb *Testbed) Close(ctx context.Context) error {
	var err error

	if tb.httpServer != nil {
		err = errors.Join(err, tb.httpServer.Shutdown(ctx))
		tb.httpServer = nil
	}

	for _, scheduler := range tb.schedulers {
		scheduler.Stop()
	}
	tb.schedulers = nil

	for _, sub := range tb.subscriptions {
		sub.Stop()
	}
	tb.subscriptions = nil

	// the forwarder owns the gateway connection once built
	if tb.Forwarder != nil {
		err = errors.Join(err, tb.Forwarder.Stop(ctx))
	} else if tb.Gateway != nil {
		err = errors.Join(err, tb.Gateway.Close())
	}

	if tb.Publisher != nil {
		err = errors.Join(err, tb.Publisher.Close())
	}

	if tb.Subscriber != nil {
		err = errors.Join(err, tb.Subscriber.Close())
	}

	if tb.storage != nil {
		err = errors.Join(err, tb.storage.Close())
		tb.storage = nil
	}

	if tb.tracingShutdown != nil {
		err = errors.Join(err, tb.tracingShutdown(ctx))
		tb.tracingShutdown = nil
	}

	if err != nil {
		tb.logger.Warnf("testbed closed with errors: %s", err)
	}

	return err
}
