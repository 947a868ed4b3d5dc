package eventbus

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/sirupsen/logrus"
)

const DeadLetterTopic = "vpki-dlq"

func NewMessageRouter(logger *logrus.Entry, dlqPub message.Publisher) (*message.Router, error) {
	lEventBus := NewLoggerAdapter(logger.WithField("subsystem-provider", "EventBus - Router"))

	router, err := message.NewRouter(message.RouterConfig{}, lEventBus)
	if err != nil {
		return nil, fmt.Errorf("could not create event bus router: %s", err)
	}

	mws := []message.HandlerMiddleware{
		// Recoverer handles panics from handlers.
		middleware.Recoverer,
	}

	if dlqPub != nil {
		dlqMw, err := middleware.PoisonQueue(dlqPub, DeadLetterTopic)
		if err != nil {
			return nil, fmt.Errorf("could not create poison queue middleware: %s", err)
		}

		// Dead letter queue middleware will move messages that have been Nacked more than MaxRetries to a separate topic.
		mws = append(mws, dlqMw)
	}

	//mw are applied in order they are added. So the first one is the outermost one (recovery wraps all the others for example)
	router.AddMiddleware(append(mws,
		// CorrelationID will copy the correlation id from the incoming message's metadata to the produced messages
		middleware.CorrelationID,

		// The handler function is retried if it returns an error.
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: time.Millisecond * 100,
			MaxInterval:     time.Second,
			Multiplier:      2,
			Logger:          lEventBus,
		}.Middleware,
	)...)

	return router, nil
}
