package stitcher

import (
	"errors"
	"fmt"
)

// Kind classifies a stitching failure.
type Kind int

const (
	// KindPrecondition means fewer than two usable images were supplied.
	KindPrecondition Kind = iota + 1
	// KindAlignment means no consistent composite could be computed.
	KindAlignment
	// KindEncoding means the composite exists but could not be written.
	KindEncoding
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindAlignment:
		return "alignment"
	case KindEncoding:
		return "encoding"
	default:
		return "unknown"
	}
}

// Error is returned for every stitching failure.
type Error struct {
	Kind   Kind
	Status Status // aligner status, StatusOK unless Kind is KindAlignment
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a stitching Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}
