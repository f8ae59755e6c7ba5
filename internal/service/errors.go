package service

import "errors"

// Sentinel errors shared across services. Handlers translate these into HTTP
// statuses; filtered-out records and genuinely missing records both surface
// as ErrNotFound so existence never leaks across tenants.
var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateCode = errors.New("voucher code collision")
	ErrValidation    = errors.New("validation failed")
)
