package history

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingProject means no record exists yet; setup has not been run.
	ErrMissingProject = errors.New("BCG identification project setup has not been run")
	// ErrProjectExists is returned by Create when a record is already present.
	ErrProjectExists = errors.New("BCG identification project already exists")
	// ErrConfigurationDrift is matched by every *DriftError.
	ErrConfigurationDrift = errors.New("configuration drift")
	// ErrGuardedField is matched by every *GuardedFieldError.
	ErrGuardedField = errors.New("guarded field cannot be changed")
	// ErrCorruptRecord means the record file is not a JSON object.
	ErrCorruptRecord = errors.New("history record is corrupt")
	// ErrReadRecord wraps I/O failures while reading the record.
	ErrReadRecord = errors.New("history record could not be read")
	// ErrWriteRecord wraps I/O failures while writing the record.
	ErrWriteRecord = errors.New("history record could not be written")
	// ErrUnserializableEntry means an update entry cannot be encoded as JSON.
	ErrUnserializableEntry = errors.New("update entry is not JSON serializable")
)

// DriftError reports a guarded field whose persisted value no longer matches
// the declared configuration.
type DriftError struct {
	Field    string
	Recorded any
	Declared any
	reason   string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("%s (history: %v, configured: %v)", e.reason, e.Recorded, e.Declared)
}

func (e *DriftError) Unwrap() error {
	return ErrConfigurationDrift
}

// GuardedFieldError reports an update entry that tried to give a guarded
// field a value other than the declared one.
type GuardedFieldError struct {
	Field     string
	Attempted any
	Declared  any
}

func (e *GuardedFieldError) Error() string {
	return fmt.Sprintf("%s is fixed for the lifetime of the project: cannot set %v (configured: %v)",
		e.Field, e.Attempted, e.Declared)
}

func (e *GuardedFieldError) Unwrap() error {
	return ErrGuardedField
}
