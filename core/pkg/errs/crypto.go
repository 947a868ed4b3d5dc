package errs

import "errors"

var (
	ErrCryptoEngineNotFound error = errors.New("crypto engine not found")
	ErrKeyNotFound          error = errors.New("key not found")
	ErrSigningFailure       error = errors.New("signing failure")
	ErrVerificationFailure  error = errors.New("verification failure")
)
