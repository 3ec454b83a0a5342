package model

import (
	"errors"
	"fmt"
)

// ErrMissingData marks configuration data that a required technology,
// country or year has no entry for. Never defaulted: a silent default
// would skew every later year of a projection.
var ErrMissingData = errors.New("missing input data")

// MissingDataError names the missing entry.
type MissingDataError struct {
	Kind string // "capex", "fopex", "bom", "cost of capital", "input price", "demand"
	Key  string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing %s data for %s", e.Kind, e.Key)
}

func (e *MissingDataError) Unwrap() error { return ErrMissingData }

func missing(kind, format string, args ...any) error {
	return &MissingDataError{Kind: kind, Key: fmt.Sprintf(format, args...)}
}
