package eventhandling

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core"
	"github.com/vpkilab/vpki/core/pkg/helpers"
	"github.com/vpkilab/vpki/core/pkg/models"
)

type EventHandler interface {
	HandleMessage(*message.Message) error
}

type CloudEventHandler struct {
	Logger      *logrus.Entry
	DispatchMap map[string]func(context.Context, *event.Event) error
}

func (h CloudEventHandler) HandleMessage(m *message.Message) error {
	event, err := helpers.ParseCloudEvent(m.Payload)
	if err != nil {
		err = fmt.Errorf("something went wrong while processing cloud event: %s", err)
		h.Logger.Error(err)
		return err
	}

	h.Logger.Debugf("received event: Type=%s Subject=%s", event.Type(), event.Subject())

	handler, ok := h.DispatchMap[event.Type()]
	if !ok {
		handler, ok = h.DispatchMap[string(models.EventAnyKey)]
		if !ok {
			h.Logger.Tracef("no handler found for event type: %s", event.Type())
			return nil
		}
	}

	ctx := getContextFromMessage(m)

	err = handler(ctx, event)
	if err != nil {
		h.Logger.Errorf("something went wrong while handling event: %s", err)
	}

	return err
}

func getContextFromMessage(m *message.Message) context.Context {
	ctx := context.Background()

	ebSource := m.Metadata.Get(core.VPKIContextKeySource)
	if ebSource == "" {
		ebSource = "unknown"
	}
	ctx = context.WithValue(ctx, helpers.CtxSource, fmt.Sprintf("eventbus-%s", ebSource))

	ebRequestID := m.Metadata.Get(core.VPKIContextKeyRequestID)
	if ebRequestID == "" {
		ebRequestID = m.UUID
	}
	ctx = context.WithValue(ctx, helpers.CtxRequestID, ebRequestID)

	return ctx
}
