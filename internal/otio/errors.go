// Package otio is the editorial timeline data model: timelines own a stack
// of tracks, tracks hold clips, gaps, transitions and nested compositions,
// and every object serializes to schema-tagged JSON.
//
// The model is not safe for concurrent mutation. Callers that share a
// Timeline between goroutines must hold one lock per Timeline while editing.
package otio

import (
	"errors"

	"github.com/heimdex/timeline-agent/internal/opentime"
)

// Outcome is the status code carried by an *Error.
type Outcome int

const (
	OK Outcome = iota
	NotImplemented
	IllegalIndex
	NotAChildOf
	NotAChild
	NotDescendedFrom
	ChildAlreadyHasParent
	ObjectCycle
	KeyNotFound
	BadAnyCast
	JSONParseError
	UnknownSchema
	MalformedSchema
	SchemaAlreadyRegistered
	SchemaVersionUnsupported
	TypeMismatch
	InvalidTimeRange
	InvalidTimecode
	CannotComputeAvailableRange
	CannotComputeBounds
	MediaReferencesDoNotContainActiveKey
	MediaReferencesContainEmptyKey
	FileOpenFailed
	FileWriteFailed
	InternalError
)

var outcomeNames = map[Outcome]string{
	OK:                                   "OK",
	NotImplemented:                       "NOT_IMPLEMENTED",
	IllegalIndex:                         "ILLEGAL_INDEX",
	NotAChildOf:                          "NOT_A_CHILD_OF",
	NotAChild:                            "NOT_A_CHILD",
	NotDescendedFrom:                     "NOT_DESCENDED_FROM",
	ChildAlreadyHasParent:                "CHILD_ALREADY_HAS_PARENT",
	ObjectCycle:                          "OBJECT_CYCLE",
	KeyNotFound:                          "KEY_NOT_FOUND",
	BadAnyCast:                           "BAD_ANY_CAST",
	JSONParseError:                       "JSON_PARSE_ERROR",
	UnknownSchema:                        "UNKNOWN_SCHEMA",
	MalformedSchema:                      "MALFORMED_SCHEMA",
	SchemaAlreadyRegistered:              "SCHEMA_ALREADY_REGISTERED",
	SchemaVersionUnsupported:             "SCHEMA_VERSION_UNSUPPORTED",
	TypeMismatch:                         "TYPE_MISMATCH",
	InvalidTimeRange:                     "INVALID_TIME_RANGE",
	InvalidTimecode:                      "INVALID_TIMECODE",
	CannotComputeAvailableRange:          "CANNOT_COMPUTE_AVAILABLE_RANGE",
	CannotComputeBounds:                  "CANNOT_COMPUTE_BOUNDS",
	MediaReferencesDoNotContainActiveKey: "MEDIA_REFERENCES_DO_NOT_CONTAIN_ACTIVE_KEY",
	MediaReferencesContainEmptyKey:       "MEDIA_REFERENCES_CONTAIN_EMPTY_KEY",
	FileOpenFailed:                       "FILE_OPEN_FAILED",
	FileWriteFailed:                      "FILE_WRITE_FAILED",
	InternalError:                        "INTERNAL_ERROR",
}

var defaultDetails = map[Outcome]string{
	NotImplemented:                       "method not implemented",
	IllegalIndex:                         "illegal index",
	NotAChildOf:                          "item is not a child of specified object",
	NotAChild:                            "item has no parent",
	NotDescendedFrom:                     "item is not a descendent of specified object",
	ChildAlreadyHasParent:                "child already has a parent",
	ObjectCycle:                          "composition would contain itself",
	KeyNotFound:                          "key not found",
	BadAnyCast:                           "bad any cast",
	JSONParseError:                       "JSON parse error",
	UnknownSchema:                        "unknown schema",
	MalformedSchema:                      "illegally formed schema",
	SchemaAlreadyRegistered:              "schema has already been registered",
	SchemaVersionUnsupported:             "unsupported schema version",
	TypeMismatch:                         "type mismatch",
	InvalidTimeRange:                     "computed time range would be invalid",
	InvalidTimecode:                      "invalid timecode",
	CannotComputeAvailableRange:          "cannot compute available range",
	CannotComputeBounds:                  "cannot compute image bounds",
	MediaReferencesDoNotContainActiveKey: "the media references do not contain the active key",
	MediaReferencesContainEmptyKey:       "the media references contain an empty key",
	FileOpenFailed:                       "failed to open file for reading",
	FileWriteFailed:                      "failed to open file for writing",
	InternalError:                        "internal error",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "UNKNOWN_OUTCOME"
}

// Error is a status value returned by every failing operation in this
// package. Details is a human readable message; tests and callers match on
// the Outcome.
type Error struct {
	Outcome Outcome
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Details
	}
	if d, ok := defaultDetails[e.Outcome]; ok {
		return d
	}
	return e.Outcome.String()
}

// Is matches any *Error with the same Outcome, so errors.Is(err,
// ErrIllegalIndex) holds regardless of Details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Outcome == e.Outcome
}

func newError(outcome Outcome, details string) *Error {
	if details == "" {
		details = defaultDetails[outcome]
	}
	return &Error{Outcome: outcome, Details: details}
}

// Sentinels for errors.Is.
var (
	ErrNotImplemented              = newError(NotImplemented, "")
	ErrIllegalIndex                = newError(IllegalIndex, "")
	ErrNotAChildOf                 = newError(NotAChildOf, "")
	ErrNotAChild                   = newError(NotAChild, "")
	ErrNotDescendedFrom            = newError(NotDescendedFrom, "")
	ErrChildAlreadyHasParent       = newError(ChildAlreadyHasParent, "")
	ErrObjectCycle                 = newError(ObjectCycle, "")
	ErrKeyNotFound                 = newError(KeyNotFound, "")
	ErrBadAnyCast                  = newError(BadAnyCast, "")
	ErrJSONParse                   = newError(JSONParseError, "")
	ErrUnknownSchema               = newError(UnknownSchema, "")
	ErrMalformedSchema             = newError(MalformedSchema, "")
	ErrSchemaVersionUnsupported    = newError(SchemaVersionUnsupported, "")
	ErrTypeMismatch                = newError(TypeMismatch, "")
	ErrInvalidTimeRange            = newError(InvalidTimeRange, "")
	ErrCannotComputeAvailableRange = newError(CannotComputeAvailableRange, "")
	ErrCannotComputeBounds         = newError(CannotComputeBounds, "")
)

// OutcomeOf returns the status code of err. Timecode errors from opentime
// map to InvalidTimecode; any other foreign error is InternalError.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Outcome
	}
	if errors.Is(err, opentime.ErrInvalidTimecode) || errors.Is(err, opentime.ErrInvalidRate) {
		return InvalidTimecode
	}
	return InternalError
}
