package resources

import (
	"fmt"
	"time"

	"github.com/vpkilab/vpki/core/pkg/models"
)

// Validity fields are Go duration strings ("36h", "15m"). Empty means the CA default.

type IssueCertificateBody struct {
	Subject   string `json:"subject"`
	PublicKey []byte `json:"public_key"`
	Validity  string `json:"validity"`
}

type RenewCertificateBody struct {
	PublicKey []byte `json:"public_key"`
	Validity  string `json:"validity"`
}

type ValidateCertificateResponse struct {
	SerialNumber string                   `json:"serial_number"`
	Status       models.CertificateStatus `json:"status"`
}

type ArchiveCertificatesBody struct {
	RetentionWindow string `json:"retention_window"`
}

type ArchiveCertificatesResponse struct {
	Archived []*models.Certificate `json:"archived"`
}

func ParseValidity(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration '%s': %w", value, err)
	}

	return d, nil
}
