package models

import "time"

type GatewayAck struct {
	TransactionID string    `json:"transaction_id"`
	Reference     string    `json:"reference"`
	AcceptedAt    time.Time `json:"accepted_at"`
}
