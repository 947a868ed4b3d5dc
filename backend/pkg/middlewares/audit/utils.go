package auditpub

import (
	"context"
	"fmt"

	"github.com/vpkilab/vpki/backend/pkg/middlewares/eventpub"
	"github.com/vpkilab/vpki/core"
	"github.com/vpkilab/vpki/core/pkg/models"
)

type AuditBody struct {
	Input    interface{} `json:"input"`
	HasError bool        `json:"has_error"`
	Output   interface{} `json:"output"`
}

type AuditPublisher struct {
	eventpub.ICloudEventPublisher
}

func NewAuditPublisher(publisher eventpub.ICloudEventPublisher) *AuditPublisher {
	return &AuditPublisher{
		ICloudEventPublisher: publisher,
	}
}

// AuditEventType is the topic an audit record for eventType is published on.
func AuditEventType(eventType models.EventType, failed bool) string {
	if failed {
		return fmt.Sprintf("audit.%s.error", eventType)
	}

	return fmt.Sprintf("audit.%s", eventType)
}

// HandleServiceOutputAndPublishAuditRecord publishes one record per call,
// successful or not.
func (audit *AuditPublisher) HandleServiceOutputAndPublishAuditRecord(ctx context.Context, eventType models.EventType, input interface{}, err error, output interface{}) {
	auditBody := AuditBody{
		Input:    input,
		HasError: err != nil,
		Output:   output,
	}
	if err != nil {
		auditBody.Output = err.Error()
	}

	ctx = context.WithValue(ctx, core.VPKIContextKeyEventType, AuditEventType(eventType, err != nil))
	audit.PublishCloudEvent(ctx, auditBody)
}
