package service

import (
	"errors"
	"fmt"

	"macrotrack/internal/repository"
)

var (
	// ErrStorageUnavailable means the backing store could not be reached.
	// The operation did not take effect and may be retried.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrQuotaExceeded means the free daily analysis limit is used up. It
	// clears on the next calendar day or on upgrade.
	ErrQuotaExceeded = errors.New("daily analysis quota exceeded")
	// ErrAnalysisFailed means the AI analyzer did not return a usable result.
	ErrAnalysisFailed = errors.New("analysis failed")

	ErrUserNotFound      = errors.New("user not found")
	ErrEntryNotFound     = errors.New("entry not found")
	ErrUpgradeRequired   = errors.New("paid plan required")
	ErrInvalidMultiplier = errors.New("multiplier must be between 0.5 and 5 in steps of 0.5")
	ErrNothingToAnalyze  = errors.New("an image or a description is required")
	ErrInvalidPlan       = errors.New("unknown plan")
)

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// storageErr classifies a repository error. notFound replaces
// repository.ErrNotFound; any other failure becomes ErrStorageUnavailable.
func storageErr(err, notFound error, op string) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) && notFound != nil {
		return notFound
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// IsRetryable reports whether err is a transient failure the client may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrAnalysisFailed)
}
