package errs

import "errors"

var (
	ErrPoolSaturated           error = errors.New("pending transaction pool saturated")
	ErrChainIntegrityViolation error = errors.New("chain integrity violation")
	ErrArchivedBlockNotFound   error = errors.New("archived block not found")
	ErrBlockNotFound           error = errors.New("block not found")
	ErrTransactionNotFound     error = errors.New("transaction not found")
)
