package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures. Caller-facing kinds end a request; internal kinds
// are recovered or surfaced depending on where they occur.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfigurationAbsent
	KindPlanExpired
	KindValidationEmpty
	KindPersistence
	KindDelivery
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindConfigurationAbsent:
		return "configuration_absent"
	case KindPlanExpired:
		return "plan_expired"
	case KindValidationEmpty:
		return "validation_empty"
	case KindPersistence:
		return "persistence_failure"
	case KindDelivery:
		return "delivery_failure"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Status is the HTTP status a submitter sees for this kind.
func (k Kind) Status() int {
	switch k {
	case KindConfigurationAbsent, KindPlanExpired:
		return http.StatusForbidden
	case KindValidationEmpty:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Message is the client-safe text for this kind.
func (k Kind) Message() string {
	switch k {
	case KindConfigurationAbsent:
		return "tenant not found"
	case KindPlanExpired:
		return "plan expired"
	case KindValidationEmpty:
		return "no valid data"
	case KindPersistence:
		return "failed to save lead"
	case KindRateLimited:
		return "too many requests"
	default:
		return "internal server error"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
