package channel

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/engines/eventbus"
)

// NewGoChannelPubSub returns the same in-process gochannel as both publisher and subscriber.
func NewGoChannelPubSub(logger *logrus.Entry, conf ChannelConfig) (message.Publisher, message.Subscriber) {
	lEventBus := eventbus.NewLoggerAdapter(logger.WithField("subsystem-provider", "GoChannel - PubSub"))
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: conf.OutputChannelBuffer,
		Persistent:          conf.Persistent,
	}, lEventBus)
	return pubSub, pubSub
}
