package numbering

import (
	"context"
	"errors"

	"serialgen/internal/core/apperror"
	"serialgen/internal/core/numerator"
)

// mapError converts core errors into AppError. Already mapped errors pass through.
func (s *Service) mapError(err error, prefix string) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}

	switch {
	case errors.Is(err, numerator.ErrInvalidFormat):
		return apperror.NewInvalidFormat(err.Error()).
			WithDetail("prefix_key", prefix).
			WithCause(err)
	case errors.Is(err, numerator.ErrAlreadyExists):
		return apperror.NewAlreadyExists("prefix rule", prefix).WithCause(err)
	case errors.Is(err, numerator.ErrPrefixNotRegistered):
		return apperror.NewPrefixNotRegistered(prefix).WithCause(err)
	case errors.Is(err, numerator.ErrTryAgain):
		return apperror.NewTryAgain(s.tryAgainAfter).
			WithDetail("prefix_key", prefix).
			WithCause(err)
	case errors.Is(err, numerator.ErrCorrupt):
		return apperror.NewCorrupt(err).WithDetail("prefix_key", prefix)
	case errors.Is(err, numerator.ErrBackendUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return apperror.NewBackendUnavailable(err)
	default:
		return apperror.NewInternal(err)
	}
}
