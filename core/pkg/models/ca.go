package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

type CertificateStatus string

const (
	StatusActive   CertificateStatus = "ACTIVE"
	StatusExpired  CertificateStatus = "EXPIRED"
	StatusRevoked  CertificateStatus = "REVOKED"
	StatusArchived CertificateStatus = "ARCHIVED"
)

// CanTransitionTo reports whether moving from s to next respects the
// certificate lifecycle. No transition ever leads back to ACTIVE.
func (s CertificateStatus) CanTransitionTo(next CertificateStatus) bool {
	switch s {
	case StatusActive:
		return next == StatusRevoked || next == StatusExpired
	case StatusRevoked, StatusExpired:
		return next == StatusArchived
	default:
		return false
	}
}

func (s CertificateStatus) IsTerminal() bool {
	return s == StatusArchived
}

type Certificate struct {
	SerialNumber         string            `json:"serial_number"`
	Subject              string            `json:"subject"`
	PublicKey            []byte            `json:"public_key"`
	IssuerCAID           string            `json:"issuer_ca_id"`
	IssuedAt             time.Time         `json:"issued_at"`
	ExpiresAt            time.Time         `json:"expires_at"`
	Status               CertificateStatus `json:"status"`
	Signature            []byte            `json:"signature"`
	Fingerprint          string            `json:"fingerprint"`
	RevocationTimestamp  time.Time         `json:"revocation_timestamp"`
	ArchivedAt           time.Time         `json:"archived_at"`
	PreviousSerialNumber string            `json:"previous_serial_number,omitempty"`
}

type tbsCertificate struct {
	SerialNumber string `json:"sn"`
	Subject      string `json:"sub"`
	PublicKey    []byte `json:"pk"`
	IssuerCAID   string `json:"iss"`
	IssuedAt     int64  `json:"iat"`
	ExpiresAt    int64  `json:"exp"`
}

// TBSBytes returns the canonical encoding of the fields covered by the CA signature.
func (c *Certificate) TBSBytes() []byte {
	b, _ := json.Marshal(tbsCertificate{
		SerialNumber: c.SerialNumber,
		Subject:      c.Subject,
		PublicKey:    c.PublicKey,
		IssuerCAID:   c.IssuerCAID,
		IssuedAt:     c.IssuedAt.UnixNano(),
		ExpiresAt:    c.ExpiresAt.UnixNano(),
	})
	return b
}

func (c *Certificate) ComputeFingerprint() string {
	h := sha256.New()
	h.Write([]byte(c.SerialNumber))
	h.Write([]byte(c.Subject))
	h.Write(c.PublicKey)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Certificate) IsExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

type CAStats struct {
	CAID              string                    `json:"ca_id"`
	TotalCertificates int                       `json:"total"`
	CertificateStatus map[CertificateStatus]int `json:"status_distribution"`
}
