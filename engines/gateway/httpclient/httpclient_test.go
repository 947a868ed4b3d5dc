package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/engines/gateway"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"github.com/vpkilab/vpki/core/pkg/models"
)

func newLedgerServer(t *testing.T, submitStatus int, delay time.Duration) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/transactions", func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "vpki-testbed", r.Header.Get(sourceHeader))

		var tx models.Transaction
		require.NoError(t, json.NewDecoder(r.Body).Decode(&tx))

		w.WriteHeader(submitStatus)
		if submitStatus < 300 {
			json.NewEncoder(w).Encode(models.GatewayAck{TransactionID: tx.ID, Reference: "remote-" + tx.ID})
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSubmit(t *testing.T) {
	var testcases = []struct {
		name    string
		status  int
		delay   time.Duration
		timeout time.Duration
		check   func(t *testing.T, ack *models.GatewayAck, err error)
	}{
		{
			name:    "OK/Accepted",
			status:  http.StatusAccepted,
			timeout: time.Second,
			check: func(t *testing.T, ack *models.GatewayAck, err error) {
				require.NoError(t, err)
				assert.Equal(t, "tx-1", ack.TransactionID)
				assert.Equal(t, "remote-tx-1", ack.Reference)
				assert.False(t, ack.AcceptedAt.IsZero())
			},
		},
		{
			name:    "ERR/ServerError",
			status:  http.StatusInternalServerError,
			timeout: time.Second,
			check: func(t *testing.T, ack *models.GatewayAck, err error) {
				assert.True(t, errors.Is(err, errs.ErrGatewayError))
			},
		},
		{
			name:    "ERR/Timeout",
			status:  http.StatusOK,
			delay:   500 * time.Millisecond,
			timeout: 20 * time.Millisecond,
			check: func(t *testing.T, ack *models.GatewayAck, err error) {
				assert.True(t, errors.Is(err, errs.ErrGatewayTimeout))
			},
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			srv := newLedgerServer(t, tc.status, tc.delay)
			gw, err := NewHTTPGateway(logrus.NewEntry(logrus.New()), HTTPGatewayConfig{URL: srv.URL + "/"})
			require.NoError(t, err)
			require.NoError(t, gw.Connect(context.Background()))

			ctx, cancel := context.WithTimeout(context.Background(), tc.timeout)
			defer cancel()

			ack, err := gw.Submit(ctx, &models.Transaction{ID: "tx-1", Kind: models.TxIssuance})
			tc.check(t, ack, err)
		})
	}
}

func TestRegisterRequiresURL(t *testing.T) {
	Register()

	builder := gateway.GetGatewayBuilder(config.HTTPGateway)
	require.NotNil(t, builder)

	_, err := builder(logrus.NewEntry(logrus.New()), config.GatewayEngine{Config: map[string]interface{}{}})
	assert.Error(t, err)

	gw, err := builder(logrus.NewEntry(logrus.New()), config.GatewayEngine{Config: map[string]interface{}{"url": "http://localhost:1", "request_timeout": "1s"}})
	require.NoError(t, err)
	assert.Equal(t, config.HTTPGateway, gw.GetProvider())
}
