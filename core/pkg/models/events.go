package models

const HttpSourceHeader = "x-vpki-source"
const HttpRequestIDHeader = "x-request-id"

const CASource = "vrn://service/vpki-ca"
const LedgerSource = "vrn://service/vpki-ledger"
const EdgeSource = "vrn://service/vpki-edge"

type UpdateModel[E any] struct {
	Previous E `json:"previous"`
	Updated  E `json:"updated"`
}

type EventType string

const (
	EventIssueCertificateKey   EventType = "certificate.issue"
	EventRevokeCertificateKey  EventType = "certificate.revoke"
	EventRenewCertificateKey   EventType = "certificate.renew"
	EventArchiveCertificateKey EventType = "certificate.archive"

	EventBlockMinedKey EventType = "ledger.block.mined"

	EventAnyKey EventType = "any"
)
