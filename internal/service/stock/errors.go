package stock

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/croptrace/internal/domain/models"
)

// ErrorKind classifies why a stock operation was rejected.
type ErrorKind string

const (
	KindInsufficientStock     ErrorKind = "INSUFFICIENT_STOCK"
	KindSourceLotNotFound     ErrorKind = "SOURCE_LOT_NOT_FOUND"
	KindDependentRecordsExist ErrorKind = "DEPENDENT_RECORDS_EXIST"
	KindPersistenceFailure    ErrorKind = "PERSISTENCE_FAILURE"
	KindInvalidRecord         ErrorKind = "INVALID_RECORD"
	KindRecordNotFound        ErrorKind = "RECORD_NOT_FOUND"
)

// Sentinels for errors.Is matching against *Error values.
var (
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrSourceLotNotFound     = errors.New("source lot not found")
	ErrDependentRecordsExist = errors.New("dependent records exist")
	ErrPersistenceFailure    = errors.New("persistence failure")
	ErrInvalidRecord         = errors.New("invalid record")
	ErrRecordNotFound        = errors.New("record not found")
)

var sentinels = map[ErrorKind]error{
	KindInsufficientStock:     ErrInsufficientStock,
	KindSourceLotNotFound:     ErrSourceLotNotFound,
	KindDependentRecordsExist: ErrDependentRecordsExist,
	KindPersistenceFailure:    ErrPersistenceFailure,
	KindInvalidRecord:         ErrInvalidRecord,
	KindRecordNotFound:        ErrRecordNotFound,
}

// Error is the typed failure returned by the engine and the production service.
type Error struct {
	Kind      ErrorKind       `json:"kind"`
	Lot       models.Ref      `json:"lot"`
	LotName   string          `json:"lotName,omitempty"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
	Reason    string          `json:"reason,omitempty"`
	// OutcomeUnknown is set on persistence failures where the write may or may
	// not have been applied.
	OutcomeUnknown bool  `json:"outcomeUnknown,omitempty"`
	Err            error `json:"-"`
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInsufficientStock:
		return fmt.Sprintf("insufficient stock on lot %s (%s): required %s, available %s",
			e.LotName, e.Lot, e.Required, e.Available)
	case KindSourceLotNotFound:
		return fmt.Sprintf("source lot %s not found", e.Lot)
	case KindRecordNotFound:
		return fmt.Sprintf("record %s not found", e.Lot)
	case KindDependentRecordsExist:
		return fmt.Sprintf("record %s has dependents: %s", e.Lot, e.Reason)
	case KindPersistenceFailure:
		if e.OutcomeUnknown {
			return fmt.Sprintf("persistence outcome unknown: %v", e.Err)
		}
		return fmt.Sprintf("persistence failure: %v", e.Err)
	default:
		return fmt.Sprintf("invalid record %s: %s", e.Lot, e.Reason)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// Insufficient reports a lot that cannot cover the required quantity.
func Insufficient(lot models.Stocked, required, available decimal.Decimal) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Lot:       lot.Ref(),
		LotName:   lot.LotName(),
		Required:  required,
		Available: available,
	}
}

// SourceNotFound reports a consumption entry pointing at a missing lot.
func SourceNotFound(ref models.Ref) *Error {
	return &Error{Kind: KindSourceLotNotFound, Lot: ref}
}

// RecordNotFound reports an id absent from the registry.
func RecordNotFound(ref models.Ref) *Error {
	return &Error{Kind: KindRecordNotFound, Lot: ref}
}

// Dependents reports a delete or transition blocked by downstream records.
func Dependents(ref models.Ref, reason string) *Error {
	return &Error{Kind: KindDependentRecordsExist, Lot: ref, Reason: reason}
}

// Invalid reports a malformed candidate record.
func Invalid(ref models.Ref, reason string) *Error {
	return &Error{Kind: KindInvalidRecord, Lot: ref, Reason: reason}
}

// Persistence wraps a store failure.
func Persistence(err error, outcomeUnknown bool) *Error {
	return &Error{Kind: KindPersistenceFailure, Err: err, OutcomeUnknown: outcomeUnknown}
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
