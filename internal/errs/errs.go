// Package errs carries the pipeline's error taxonomy forward in the same
// shape network/errorcodes.go used for the ACC broadcasting protocol: a
// small set of numeric codes logged under a single structured field, plus
// a handful of sentinel errors for the cases a caller actually needs to
// branch on.
package errs

import "errors"

// Code is the zerolog field name every taxonomy member is logged under.
const Code = "code"

// Numeric taxonomy codes, logged via log.Warn().Int(errs.Code, errs.ParseError)....
const (
	ParseError             = 1
	InvariantViolation     = 2
	TransientExternalError = 3
	PermanentExternalError = 4
	Fatal                  = 5
)

// Sentinel errors for conditions components need to errors.Is against.
var (
	ErrMalformedRecord     = errors.New("rmonitor/multiloop: malformed record")
	ErrUnknownRecordPrefix = errors.New("rmonitor/multiloop: unrecognised record prefix")
	ErrInvariantViolation  = errors.New("session: invariant violation")
	ErrMissingEventID      = errors.New("config: event_id is required")
)
