package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrExternalTool  = errors.New("external tool error")
	ErrInvariant     = errors.New("encoding invariant violated")
	ErrVerification  = errors.New("self-verification failed")
)

// Failure classes reported by Classify.
const (
	ClassValidation    = "validation"
	ClassConfiguration = "configuration"
	ClassExternalTool  = "external_tool"
	ClassInvariant     = "invariant"
	ClassVerification  = "verification"
	ClassInternal      = "internal"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrInvariant
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps a run error to the failure class recorded in the run ledger
// and exported as a metrics label.
func Classify(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return ClassValidation
	case errors.Is(err, ErrConfiguration):
		return ClassConfiguration
	case errors.Is(err, ErrExternalTool):
		return ClassExternalTool
	case errors.Is(err, ErrInvariant):
		return ClassInvariant
	case errors.Is(err, ErrVerification):
		return ClassVerification
	default:
		return ClassInternal
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "encoder failure"
	}
	return strings.Join(parts, ": ")
}
