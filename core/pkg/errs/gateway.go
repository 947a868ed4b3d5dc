package errs

import "errors"

var (
	ErrGatewayNotFound   error = errors.New("gateway provider not found")
	ErrGatewayTimeout    error = errors.New("gateway timeout")
	ErrGatewayError      error = errors.New("gateway error")
	ErrGatewayQueueFull  error = errors.New("gateway forwarding queue full")
	ErrGatewayNotRunning error = errors.New("gateway forwarder not running")
)
