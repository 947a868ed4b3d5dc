package builder

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/engines/eventbus"
	"github.com/vpkilab/vpki/engines/eventbus/channel"
)

func init() {
	channel.Register()
}

func BuildEventBusEngine(provider string, config interface{}, serviceId string, logger *logrus.Entry) (eventbus.EventBusEngine, error) {
	engine, err := eventbus.GetEventBusEngine(provider, config, serviceId, logger)
	if err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, fmt.Errorf("no event bus engine of type %s", provider)
	}

	return engine, nil
}
