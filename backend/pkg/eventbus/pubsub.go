package eventbus

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/backend/pkg/eventbus/builder"
	cconfig "github.com/vpkilab/vpki/core/pkg/config"
)

// NewEventBus returns a publisher and a subscriber sharing the same engine.
// In-process providers only deliver between the two halves of one engine.
func NewEventBus(conf cconfig.EventBusEngine, serviceID string, logger *logrus.Entry) (message.Publisher, message.Subscriber, error) {
	engine, err := builder.BuildEventBusEngine(string(conf.Provider), conf.Config, serviceID, logger)
	if err != nil {
		logger.Errorf("could not generate Event Bus: %s", err)
		return nil, nil, err
	}

	pub, err := engine.Publisher()
	if err != nil {
		logger.Errorf("could not generate Event Bus Publisher: %s", err)
		return nil, nil, err
	}

	sub, err := engine.Subscriber()
	if err != nil {
		logger.Errorf("could not generate Event Bus Subscriber: %s", err)
		return nil, nil, err
	}

	return pub, sub, nil
}
