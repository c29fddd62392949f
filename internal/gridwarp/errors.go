package gridwarp

import (
	"errors"
	"fmt"
)

type ErrorCode int

const (
	// ValidationError reports invalid construction arguments (bad extent
	// dimensions, incompatible data types, duplicated or empty band
	// selections). Detected at construction time, never retried.
	ValidationError ErrorCode = iota
	// IncompleteGeometry reports that a grid geometry is missing a component
	// (extent, transform or CRS) required by the requested operation.
	IncompleteGeometry
	// TransformFailure reports that a coordinate transform chain cannot be
	// built or evaluated.
	TransformFailure
	// IncompatibleResource reports that two resources cannot be combined,
	// e.g. CRS domains disjoint after transform or a non-invertible
	// grid-to-CRS transform in the needed direction.
	IncompatibleResource
	// DisjointExtent reports an empty intersection of grid extents or image
	// bounds.
	DisjointExtent
	// ShouldNeverHappen reports a broken internal invariant.
	ShouldNeverHappen
)

// Error is the typed error of the grid machinery. The aspect, when set,
// identifies which component is at fault ("extent", "gridToCRS", "crs", ...).
type Error struct {
	code   ErrorCode
	desc   string
	aspect string
}

// NewValidationError creates a new validation error
func NewValidationError(desc string, a ...interface{}) error {
	return Error{code: ValidationError, desc: fmt.Sprintf(desc, a...)}
}

// NewIncompleteGeometry creates a new error stating that the given aspect of a
// grid geometry is undefined.
func NewIncompleteGeometry(aspect, desc string, a ...interface{}) error {
	if desc == "" {
		desc = "grid geometry does not define " + aspect
	}
	return Error{code: IncompleteGeometry, desc: fmt.Sprintf(desc, a...), aspect: aspect}
}

// NewTransformFailure creates a new error stating that a transform chain
// cannot be built or applied.
func NewTransformFailure(desc string, a ...interface{}) error {
	return Error{code: TransformFailure, desc: fmt.Sprintf(desc, a...), aspect: "gridToCRS"}
}

// NewIncompatibleResource creates a new error stating that two resources
// cannot be combined.
func NewIncompatibleResource(aspect, desc string, a ...interface{}) error {
	return Error{code: IncompatibleResource, desc: fmt.Sprintf(desc, a...), aspect: aspect}
}

// NewDisjointExtent creates a new error stating that extents do not intersect.
func NewDisjointExtent(desc string, a ...interface{}) error {
	return Error{code: DisjointExtent, desc: fmt.Sprintf(desc, a...), aspect: "extent"}
}

// NewShouldNeverHappen creates a new error that should never happen...
func NewShouldNeverHappen(desc string, a ...interface{}) error {
	return Error{code: ShouldNeverHappen, desc: fmt.Sprintf(desc, a...)}
}

// Error implements error
func (e Error) Error() string {
	var s string
	switch e.code {
	case ValidationError:
		s = "ValidationError"
	case IncompleteGeometry:
		s = "IncompleteGeometry"
	case TransformFailure:
		s = "TransformFailure"
	case IncompatibleResource:
		s = "IncompatibleResource"
	case DisjointExtent:
		s = "DisjointExtent"
	case ShouldNeverHappen:
		s = "ShouldNeverHappen"
	}
	return s + ": " + e.desc
}

// Desc returns a description of the error
func (e Error) Desc() string {
	return e.desc
}

// Code returns the code of the error
func (e Error) Code() ErrorCode {
	return e.code
}

// Aspect returns the grid geometry aspect at fault, if any.
func (e Error) Aspect() string {
	return e.aspect
}

// IsError tests whether err is an Error with the given code
func IsError(err error, code ErrorCode) bool {
	var gwerr Error
	return errors.As(err, &gwerr) && gwerr.Code() == code
}

// AsError tests whether err is an Error with the given code and returns it
func AsError(err error, code ErrorCode) (Error, bool) {
	var gwerr Error
	return gwerr, errors.As(err, &gwerr) && gwerr.Code() == code
}
