package eventbus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/services/eventhandling"
)

type EventSubscriptionHandler struct {
	router      *message.Router
	subscriber  message.Subscriber
	handlerName string
	handler     *message.Handler
}

func NewEventBusMessageHandler(handlerName string, topic string, sub message.Subscriber, dlqPub message.Publisher, lMessaging *logrus.Entry, handler eventhandling.EventHandler) (*EventSubscriptionHandler, error) {
	router, err := NewMessageRouter(lMessaging, dlqPub)
	if err != nil {
		return nil, err
	}

	mHandler := router.AddNoPublisherHandler(handlerName, topic, sub, handler.HandleMessage)

	return &EventSubscriptionHandler{
		router:      router,
		subscriber:  sub,
		handlerName: handlerName,
		handler:     mHandler,
	}, nil
}

func (s *EventSubscriptionHandler) RunAsync() error {
	errChan := make(chan error, 1)
	go func() {
		err := s.router.Run(context.Background())
		errChan <- err
	}()

	select {
	case <-s.router.Running(): // router "running" channel is closed once every handler subscribed
		return nil
	case err := <-errChan:
		return err
	}
}

func (s *EventSubscriptionHandler) Stop() {
	s.handler.Stop()
	s.router.Close()
}
