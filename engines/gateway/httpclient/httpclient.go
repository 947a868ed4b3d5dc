package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/engines/gateway"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"github.com/vpkilab/vpki/core/pkg/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type HTTPGatewayConfig struct {
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	SourceHeader   string        `mapstructure:"source_header"`
}

const sourceHeader = "x-vpki-source"

// HTTPGateway submits transactions as JSON to a remote ledger endpoint.
//
//	POST {url}/transactions  -> 200/201/202 with a GatewayAck body
//	GET  {url}/health        -> 200
type HTTPGateway struct {
	logger  *logrus.Entry
	baseURL string
	client  *http.Client
	source  string
}

func Register() {
	gateway.RegisterGateway(config.HTTPGateway, func(logger *logrus.Entry, conf config.GatewayEngine) (gateway.LedgerGateway, error) {
		httpConf, err := config.DecodeStruct[HTTPGatewayConfig](conf.Config)
		if err != nil {
			return nil, err
		}

		return NewHTTPGateway(logger, httpConf)
	})
}

func NewHTTPGateway(logger *logrus.Entry, conf HTTPGatewayConfig) (*HTTPGateway, error) {
	if conf.URL == "" {
		return nil, fmt.Errorf("http gateway requires an url")
	}

	client := &http.Client{
		Timeout: conf.RequestTimeout,
		Transport: loggingRoundTripper{
			transport: otelhttp.NewTransport(http.DefaultTransport),
			logger:    logger,
		},
	}

	source := conf.SourceHeader
	if source == "" {
		source = "vpki-testbed"
	}

	return &HTTPGateway{
		logger:  logger,
		baseURL: strings.TrimSuffix(conf.URL, "/"),
		client:  client,
		source:  source,
	}, nil
}

func (g *HTTPGateway) GetProvider() config.GatewayProvider {
	return config.HTTPGateway
}

func (g *HTTPGateway) Connect(ctx context.Context) error {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	res, err := g.client.Do(r)
	if err != nil {
		return mapTransportError(ctx, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned %d", errs.ErrGatewayError, res.StatusCode)
	}

	g.logger.Infof("connected to ledger at %s", g.baseURL)
	return nil
}

func (g *HTTPGateway) Submit(ctx context.Context, tx *models.Transaction) (*models.GatewayAck, error) {
	b, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transactions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	r.Header.Add("Content-Type", "application/json")
	r.Header.Add(sourceHeader, g.source)

	res, err := g.client.Do(r)
	if err != nil {
		return nil, mapTransportError(ctx, err)
	}

	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return nil, mapTransportError(ctx, err)
	}

	switch res.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
	default:
		return nil, fmt.Errorf("%w: unexpected status %d: %s", errs.ErrGatewayError, res.StatusCode, string(body))
	}

	var ack models.GatewayAck
	if len(body) > 0 {
		if err := json.Unmarshal(body, &ack); err != nil {
			return nil, fmt.Errorf("%w: invalid ack body: %s", errs.ErrGatewayError, err)
		}
	}

	if ack.TransactionID == "" {
		ack.TransactionID = tx.ID
	}
	if ack.AcceptedAt.IsZero() {
		ack.AcceptedAt = time.Now()
	}

	return &ack, nil
}

func (g *HTTPGateway) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

func mapTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", errs.ErrGatewayTimeout, err)
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", errs.ErrGatewayTimeout, err)
	}

	return fmt.Errorf("%w: %s", errs.ErrGatewayError, err)
}

type loggingRoundTripper struct {
	transport http.RoundTripper
	logger    *logrus.Entry
}

func (lrt loggingRoundTripper) RoundTrip(req *http.Request) (res *http.Response, err error) {
	start := time.Now()
	res, err = lrt.transport.RoundTrip(req)
	if err != nil {
		lrt.logger.Errorf("%s: %s", req.URL.String(), err)
	} else {
		lrt.logger.WithField("response", fmt.Sprintf("%s %d: %s", req.Method, res.StatusCode, time.Since(start))).Debug(req.URL.String())
	}

	return
}
