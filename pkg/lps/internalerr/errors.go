package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Load-time declaration errors
var (
	ErrSyntax           = errors.New("syntax error")
	ErrUndeclaredFluent = errors.New("undeclared fluent")
	ErrBadObservation   = errors.New("malformed observation")
	ErrBadDeclaration   = errors.New("malformed declaration")
)

// Resolution-time errors
var (
	ErrUnknownFunctor  = errors.New("unknown functor")
	ErrUnknownOperator = errors.New("unknown operator")
	ErrNotGround       = errors.New("insufficiently instantiated")
	ErrBadOperand      = errors.New("bad operand")
	ErrImproperList    = errors.New("improper list")
	ErrDepthExceeded   = errors.New("resolution depth exceeded")
)

// Scheduler errors
var (
	ErrCycleOverrun    = errors.New("cycle exceeded its time budget")
	ErrCycleInProgress = errors.New("cycle already in progress")
	ErrTerminated      = errors.New("engine terminated")
	ErrNotLoaded       = errors.New("no program loaded")
	ErrSettingsLocked  = errors.New("settings are fixed once execution has started")
)
