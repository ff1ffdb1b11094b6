// Package engineapi defines the engine's external payload contract
// (spec.md §6): plain Go structs for the five request/response pairs,
// validated at the boundary with go-playground/validator before
// anything reaches internal/generator, internal/swap, or
// internal/resilience. No transport is implemented here — HTTP/gRPC/
// in-process framing is a collaborator's concern (spec.md §1's
// explicit out-of-scope list) — but the payload shapes and the
// engineerr.Kind-to-status mapping a transport would need are.
//
// Grounded on the teacher's pkg-level validator wiring pattern found
// across the medical-domain examples in the retrieval pack
// (el-gladiador-medflow-backend's pkg/httputil/validation.go: a
// package-level *validator.Validate, a Validate(v any) error wrapper
// translating validator.ValidationErrors into field->message details),
// since the copied teacher variant itself binds requests with Echo's
// c.Bind and never calls the validator library its go.mod never even
// declared.
package engineapi

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/schedcu/residency-engine/internal/engineerr"
)

var validate = validator.New()

// Validate checks v's `validate:"..."` struct tags, returning a
// *engineerr.Error of KindInvariant with one Details entry per failing
// field when validation fails.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return engineerr.Wrap(engineerr.KindInvariant, "request failed validation", err, nil)
		}
		details := make(map[string]any, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[fe.Field()] = formatValidationError(fe)
		}
		return engineerr.New(engineerr.KindInvariant, "request failed validation", details)
	}
	return nil
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "uuid":
		return "must be a valid UUID"
	case "gtefield":
		return "must not be before " + fe.Param()
	default:
		return fmt.Sprintf("invalid value for tag %q", fe.Tag())
	}
}

// ResultStatus is the status-code-agnostic outcome a transport maps
// onto whatever its own status vocabulary is (HTTP codes, gRPC codes).
type ResultStatus string

const (
	StatusOK             ResultStatus = "OK"
	StatusPartialSuccess ResultStatus = "PARTIAL_SUCCESS"
	StatusUnprocessable  ResultStatus = "UNPROCESSABLE"
	StatusConflict       ResultStatus = "CONFLICT"
	StatusNotFound       ResultStatus = "NOT_FOUND"
	StatusError          ResultStatus = "ERROR"
)

// StatusForError maps an error returned by the engine onto a
// ResultStatus, per spec.md §6's documented mapping: a nil error is
// StatusOK; KindInvariant/KindInfeasible/KindTimeout are
// StatusUnprocessable; KindConflict (idempotency mismatch,
// RunInProgress, overlapping swap) is StatusConflict; KindNotFound is
// StatusNotFound; anything else is StatusError.
func StatusForError(err error) ResultStatus {
	if err == nil {
		return StatusOK
	}
	switch engineerr.KindOf(err) {
	case engineerr.KindInvariant, engineerr.KindInfeasible, engineerr.KindTimeout:
		return StatusUnprocessable
	case engineerr.KindConflict:
		return StatusConflict
	case engineerr.KindNotFound:
		return StatusNotFound
	default:
		return StatusError
	}
}
