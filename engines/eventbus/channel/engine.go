package channel

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/engines/eventbus"
)

// ChannelConfig holds the optional provider settings nested under the event bus config.
type ChannelConfig struct {
	OutputChannelBuffer int64 `mapstructure:"output_channel_buffer"`
	Persistent          bool  `mapstructure:"persistent"`
}

func Register() {
	eventbus.RegisterEventBusEngine(string(config.Channel), func(eventBusProvider string, conf interface{}, serviceId string, logger *logrus.Entry) (eventbus.EventBusEngine, error) {
		return NewChannelEngine(conf, serviceId, logger)
	})
}

type ChannelEngine struct {
	logger     *logrus.Entry
	serviceID  string
	subscriber message.Subscriber
	publisher  message.Publisher
}

func NewChannelEngine(conf interface{}, serviceId string, logger *logrus.Entry) (eventbus.EventBusEngine, error) {
	chConf := ChannelConfig{}
	if conf != nil {
		var err error
		chConf, err = config.DecodeStruct[ChannelConfig](conf)
		if err != nil {
			return nil, err
		}
	}

	pub, sub := NewGoChannelPubSub(logger, chConf)

	return &ChannelEngine{
		logger:     logger,
		serviceID:  serviceId,
		publisher:  pub,
		subscriber: sub,
	}, nil
}

func (e *ChannelEngine) Subscriber() (message.Subscriber, error) {
	return e.subscriber, nil
}

func (e *ChannelEngine) Publisher() (message.Publisher, error) {
	return e.publisher, nil
}
