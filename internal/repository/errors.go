package repository

import "errors"

// Common repository errors
var (
	ErrTxDone           = errors.New("transaction already finished")
	ErrUnsupportedTable = errors.New("unsupported table")
	ErrUnexpectedRecord = errors.New("record type does not match table")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrInvalidSchema    = errors.New("invalid schema name")
)
