package engine

import (
	"context"
	"errors"

	"github.com/lazypower/chronoscope/internal/artifact"
	"github.com/lazypower/chronoscope/internal/compose"
	"github.com/lazypower/chronoscope/internal/epoch"
	"github.com/lazypower/chronoscope/internal/noise"
)

// Error kinds reported to API and CLI callers.
const (
	KindUnknownEpoch    = "unknown_epoch"
	KindDuplicateKey    = "duplicate_key"
	KindInvalidShape    = "invalid_shape"
	KindEmptyInput      = "empty_input"
	KindUnsupportedKind = "unsupported_kind"
	KindCancelled       = "cancelled"
	KindProvenance      = "provenance_mismatch"
	KindInternal        = "internal"
)

// ErrorKind classifies err into one of the Kind constants.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownEpoch), errors.Is(err, epoch.ErrNotFound):
		return KindUnknownEpoch
	case errors.Is(err, epoch.ErrDuplicateKey):
		return KindDuplicateKey
	case errors.Is(err, noise.ErrInvalidShape):
		return KindInvalidShape
	case errors.Is(err, compose.ErrEmptyInput):
		return KindEmptyInput
	case errors.Is(err, artifact.ErrUnsupportedKind):
		return KindUnsupportedKind
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrProvenanceMismatch):
		return KindProvenance
	default:
		return KindInternal
	}
}

// IsValidation reports whether err was caused by a bad request rather than
// a failure inside the engine.
func IsValidation(err error) bool {
	switch ErrorKind(err) {
	case KindUnknownEpoch, KindDuplicateKey, KindInvalidShape, KindEmptyInput, KindUnsupportedKind:
		return true
	}
	return false
}
