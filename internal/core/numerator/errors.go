package numerator

import "errors"

// Sentinel errors of the numbering core. Match with errors.Is.
var (
	// ErrInvalidFormat is returned when a rule fails validation.
	ErrInvalidFormat = errors.New("invalid prefix rule")

	// ErrAlreadyExists is returned when re-registration is forbidden and a rule is present.
	ErrAlreadyExists = errors.New("prefix rule already exists")

	// ErrPrefixNotRegistered is returned when generating for an unknown prefix.
	ErrPrefixNotRegistered = errors.New("prefix not registered")

	// ErrBackendUnavailable marks transient store failures, timeouts included.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrTryAgain is returned when the lease lock is held by another process.
	ErrTryAgain = errors.New("sequence lease busy, try again")

	// ErrCorrupt is returned when stored data cannot be decoded.
	ErrCorrupt = errors.New("corrupt stored data")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}
