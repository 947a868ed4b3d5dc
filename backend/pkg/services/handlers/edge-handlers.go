package handlers

import (
	"context"
	"fmt"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/sirupsen/logrus"
	chelpers "github.com/vpkilab/vpki/core/pkg/helpers"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
	"github.com/vpkilab/vpki/core/pkg/services/eventhandling"
)

// NewEdgeInvalidationEventHandler keeps a remote edge cache consistent with
// certificate lifecycle events published by the CA.
func NewEdgeInvalidationEventHandler(l *logrus.Entry, edge services.CacheInvalidator) *eventhandling.CloudEventHandler {
	return &eventhandling.CloudEventHandler{
		Logger: l,
		DispatchMap: map[string]func(context.Context, *event.Event) error{
			string(models.EventRevokeCertificateKey): func(ctx context.Context, e *event.Event) error {
				return invalidateFromEvent(ctx, e, edge, l, func(c *models.Certificate) string { return c.SerialNumber })
			},
			string(models.EventArchiveCertificateKey): func(ctx context.Context, e *event.Event) error {
				return invalidateFromEvent(ctx, e, edge, l, func(c *models.Certificate) string { return c.SerialNumber })
			},
			string(models.EventRenewCertificateKey): func(ctx context.Context, e *event.Event) error {
				return invalidateFromEvent(ctx, e, edge, l, func(c *models.Certificate) string { return c.PreviousSerialNumber })
			},
		},
	}
}

func invalidateFromEvent(ctx context.Context, event *event.Event, edge services.CacheInvalidator, lMessaging *logrus.Entry, serialOf func(*models.Certificate) string) error {
	lFunc := chelpers.ConfigureLogger(ctx, lMessaging)

	cert, err := chelpers.GetEventBody[models.Certificate](event)
	if err != nil {
		err = fmt.Errorf("could not decode cloud event: %s", err)
		lFunc.Error(err)
		return err
	}

	serial := serialOf(cert)
	if serial == "" {
		lFunc.Warnf("%s event for certificate %s carries no serial to invalidate", event.Type(), cert.SerialNumber)
		return nil
	}

	edge.Invalidate(ctx, serial)
	lFunc.Debugf("certificate %s invalidated after %s event", serial, event.Type())

	return nil
}
