package domain

import "errors"

var (
	ErrCatalogUnavailable = errors.New("products file not found")
	ErrMissingField       = errors.New("missing required field")
	ErrBadStoreID         = errors.New("store id is not an integer")
	ErrStoreOutOfRange    = errors.New("store id out of range")
	ErrBadBillDate        = errors.New("bill date does not match MM/DD/YYYY HH:MM:SS")
	ErrMissingProductID   = errors.New("line item missing ProductID")
	ErrUnknownProduct     = errors.New("product id not in catalog")
	ErrUnreadableBill     = errors.New("bill file is not readable JSON")
)

// Kind classifies a pipeline failure; the kind decides what happens to the
// source file (quarantine vs. leave in place for the next cycle).
type Kind string

const (
	KindStructural Kind = "structural"
	KindDomain     Kind = "domain"
	KindIO         Kind = "io"
	KindUnexpected Kind = "unexpected"
)

type ClassifiedError struct {
	Kind Kind
	Err  error
}

func (e *ClassifiedError) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

func Structural(err error) error {
	return &ClassifiedError{Kind: KindStructural, Err: err}
}

func DomainError(err error) error {
	return &ClassifiedError{Kind: KindDomain, Err: err}
}

func IOError(err error) error {
	return &ClassifiedError{Kind: KindIO, Err: err}
}

// Classify recovers the kind of a classified error; everything unwrapped
// counts as unexpected.
func Classify(err error) Kind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnexpected
}

// ShouldQuarantine reports whether a failure of this kind relocates the
// source file. Structural and domain failures quarantine; I/O and
// unexpected failures leave the file for retry on the next cycle.
func ShouldQuarantine(err error) bool {
	switch Classify(err) {
	case KindStructural, KindDomain:
		return true
	default:
		return false
	}
}
