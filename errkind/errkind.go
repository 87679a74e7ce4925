// Package errkind defines the kinds of failure shared by the chart view
// packages. Call sites create errors with Kind.New and test them with Is,
// which also sees through fmt.Errorf wrapping.
package errkind

import (
	"errors"

	goerrors "gopkg.in/src-d/go-errors.v1"
)

var (
	// OutOfRange reports an invalid dimension or axis index.
	OutOfRange = goerrors.NewKind("index out of range: %s")
	// DuplicateEntry reports a chart type added twice to a coordinate system.
	DuplicateEntry = goerrors.NewKind("duplicate entry: %s")
	// NotFound reports a missing chart type or object identifier.
	NotFound = goerrors.NewKind("not found: %s")
	// NotAvailable reports a query issued before the data it reads was computed.
	NotAvailable = goerrors.NewKind("not available: %s")
	// ResourceExhausted reports a failed surface allocation. It aborts the
	// current rebuild pass.
	ResourceExhausted = goerrors.NewKind("resource exhausted: %s")
	// UnknownProperty reports a property name a property set does not support.
	UnknownProperty = goerrors.NewKind("unknown property %q")
	// InvalidShape reports a shape that could not be constructed.
	InvalidShape = goerrors.NewKind("invalid shape %s: %s")
	// UnsupportedFormat reports a chart file with an unknown extension.
	UnsupportedFormat = goerrors.NewKind("unsupported chart format %q")
)

// Is reports whether any error in err's chain is of the given kind.
func Is(kind *goerrors.Kind, err error) bool {
	for err != nil {
		if kind.Is(err) {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
