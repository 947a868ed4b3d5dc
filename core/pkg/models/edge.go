package models

import "time"

type ValiditySource string

const (
	ValiditySourceCache  ValiditySource = "cache"
	ValiditySourceOrigin ValiditySource = "origin"
	ValiditySourceDirect ValiditySource = "direct"
)

// Validity is the snapshot an edge node keeps for a certificate.
type Validity struct {
	SerialNumber string            `json:"serial_number"`
	Status       CertificateStatus `json:"status"`
	ExpiresAt    time.Time         `json:"expires_at"`
	Source       ValiditySource    `json:"source"`
}

func (v Validity) IsValidAt(now time.Time) bool {
	return v.Status == StatusActive && !now.After(v.ExpiresAt)
}

type EdgeStats struct {
	NodeID   string  `json:"node_id"`
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
	Degraded bool    `json:"degraded"`
}
