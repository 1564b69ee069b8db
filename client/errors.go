package client

import (
	errs "github.com/carlosnayan/agentdb/internal/errors"
)

// Error is the error type every client operation returns
type Error = errs.ClientError

var (
	ErrNotFound             = errs.ErrNotFound
	ErrUniqueConstraint     = errs.ErrUniqueConstraint
	ErrForeignKeyConstraint = errs.ErrForeignKeyConstraint
	ErrNullConstraint       = errs.ErrNullConstraint
	ErrValidation           = errs.ErrValidation
	ErrTimeout              = errs.ErrTimeout
	ErrConnectionFailed     = errs.ErrConnectionFailed
	ErrTransactionConflict  = errs.ErrTransactionConflict
	ErrRawQueryFailed       = errs.ErrRawQueryFailed
	ErrUnknownRequest       = errs.ErrUnknownRequest
)

var (
	IsNotFound         = errs.IsNotFound
	IsUniqueConstraint = errs.IsUniqueConstraint
	IsValidation       = errs.IsValidation
	IsTimeout          = errs.IsTimeout
)
