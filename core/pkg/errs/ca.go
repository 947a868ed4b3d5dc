package errs

import "errors"

var (
	ErrValidateBadRequest error = errors.New("struct validation error")

	ErrCertificateNotFound                   error = errors.New("certificate not found")
	ErrCertificateAlreadyRevoked             error = errors.New("certificate already revoked")
	ErrCertificateExpired                    error = errors.New("certificate is expired")
	ErrCertificateStatusTransitionNotAllowed error = errors.New("new status transition not allowed for certificate")
	ErrDuplicateSerial                       error = errors.New("certificate serial number already in use")

	ErrEdgeBackendUnavailable error = errors.New("edge backend unavailable")
	ErrEdgeNodeNotFound       error = errors.New("edge node not found")
)
