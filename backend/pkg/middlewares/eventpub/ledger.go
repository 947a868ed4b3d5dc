package eventpub

import (
	"context"
	"fmt"
	"time"

	"github.com/vpkilab/vpki/core"
	"github.com/vpkilab/vpki/core/pkg/models"
	"github.com/vpkilab/vpki/core/pkg/services"
)

type LedgerMiddleware func(services.LedgerService) services.LedgerService

type LedgerEventPublisher struct {
	Next       services.LedgerService
	eventMWPub ICloudEventPublisher
}

func NewLedgerEventBusPublisher(eventMWPub ICloudEventPublisher) LedgerMiddleware {
	return func(next services.LedgerService) services.LedgerService {
		return &LedgerEventPublisher{
			Next:       next,
			eventMWPub: NewEventPublisherWithSourceMiddleware(eventMWPub, models.LedgerSource),
		}
	}
}

func (mw LedgerEventPublisher) Submit(ctx context.Context, tx *models.Transaction) error {
	return mw.Next.Submit(ctx, tx)
}

// Mine publishes the sealed block. Empty rounds publish nothing.
func (mw LedgerEventPublisher) Mine(ctx context.Context) (output *models.Block, err error) {
	ctx = context.WithValue(ctx, core.VPKIContextKeyEventType, models.EventBlockMinedKey)

	defer func() {
		if err == nil && output != nil {
			ctx = context.WithValue(ctx, core.VPKIContextKeyEventSubject, fmt.Sprintf("block/%d", output.Index))
			mw.eventMWPub.PublishCloudEvent(ctx, output)
		}
	}()
	return mw.Next.Mine(ctx)
}

func (mw LedgerEventPublisher) Prune(ctx context.Context) (int, error) {
	return mw.Next.Prune(ctx)
}

func (mw LedgerEventPublisher) VerifyIntegrity(ctx context.Context) error {
	return mw.Next.VerifyIntegrity(ctx)
}

func (mw LedgerEventPublisher) TPS(window time.Duration) float64 {
	return mw.Next.TPS(window)
}

func (mw LedgerEventPublisher) SerializedSize() (int, error) {
	return mw.Next.SerializedSize()
}

func (mw LedgerEventPublisher) GetStats(ctx context.Context) (*models.LedgerStats, error) {
	return mw.Next.GetStats(ctx)
}

func (mw LedgerEventPublisher) GetBlock(ctx context.Context, index uint64) (*models.Block, error) {
	return mw.Next.GetBlock(ctx, index)
}

func (mw LedgerEventPublisher) GetArchivedBlock(ctx context.Context, index uint64) (*models.ArchivedBlock, error) {
	return mw.Next.GetArchivedBlock(ctx, index)
}

func (mw LedgerEventPublisher) FindTransaction(ctx context.Context, txID string) (*models.TransactionLocation, error) {
	return mw.Next.FindTransaction(ctx, txID)
}
