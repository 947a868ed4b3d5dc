package otelmw

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
	svcmock "github.com/vpkilab/vpki/core/pkg/services/mock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})

	return recorder
}

func TestCAOTelTracer(t *testing.T) {
	recorder := recordSpans(t)

	ca := new(svcmock.MockCAService)
	ca.On("RevokeCertificate", mock.Anything, mock.Anything).Return((*models.Certificate)(nil), errors.New("not found")).Once()
	ca.On("IssueCertificate", mock.Anything, mock.Anything).Return(&models.Certificate{SerialNumber: "sn-1"}, nil).Once()

	svc := NewCAOTelTracer()(ca)

	_, err := svc.IssueCertificate(context.Background(), services.IssueCertificateInput{Subject: "V1"})
	require.NoError(t, err)
	_, err = svc.RevokeCertificate(context.Background(), services.RevokeCertificateInput{SerialNumber: "sn-x"})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "IssueCertificate", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, "RevokeCertificate", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Len(t, spans[1].Events(), 1, "error recorded as span event")
}

func TestLedgerOTelTracer(t *testing.T) {
	recorder := recordSpans(t)

	l := new(svcmock.MockLedgerService)
	l.On("Mine", mock.Anything).Return(&models.Block{Index: 4, Transactions: []*models.Transaction{{ID: "tx"}}}, nil)
	l.On("GetBlock", mock.Anything, uint64(4)).Return(&models.Block{Index: 4}, nil)

	svc := NewLedgerOTelTracer()(l)

	block, err := svc.Mine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), block.Index)

	_, err = svc.GetBlock(context.Background(), 4)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1, "reporting calls are not traced")
	assert.Equal(t, "Mine", spans[0].Name())

	attrs := map[string]interface{}{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, int64(4), attrs["vpki.block.index"])
	assert.Equal(t, int64(1), attrs["vpki.block.transactions"])
}
