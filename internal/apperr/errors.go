// Package apperr defines the error categories surfaced to the user.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for user-facing reporting.
type Kind string

const (
	CredentialMissing      Kind = "credential_missing"
	CredentialInvalid      Kind = "credential_invalid"
	PermissionDenied       Kind = "permission_denied"
	ContentSafetyRejected  Kind = "content_safety_rejected"
	NetworkUnavailable     Kind = "network_unavailable"
	MalformedModelResponse Kind = "malformed_model_response"
	InvalidImportFile      Kind = "invalid_import_file"
	UnsupportedFileType    Kind = "unsupported_file_type"
	ExtractionFailed       Kind = "extraction_failed"
	NotFound               Kind = "not_found"
	Invalid                Kind = "invalid"
)

var defaultMessages = map[Kind]string{
	CredentialMissing:      "No API key is configured. Add a Gemini API key in settings to extract recipes.",
	CredentialInvalid:      "The configured API key was rejected. Check the key in settings.",
	PermissionDenied:       "The API key does not have permission to use the extraction model.",
	ContentSafetyRejected:  "The content was blocked by the model's safety filters.",
	NetworkUnavailable:     "The recipe could not be reached. Check your connection or try the photo option instead.",
	MalformedModelResponse: "The extraction service returned an unexpected response. Please try again.",
	InvalidImportFile:      "The selected file is not a valid recipe export.",
	UnsupportedFileType:    "Please choose an image file.",
	ExtractionFailed:       "The recipe could not be extracted.",
	NotFound:               "Recipe not found.",
	Invalid:                "The recipe is invalid.",
}

// Error is a categorized failure with a human readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// New returns an error of the given kind with its default message.
func New(kind Kind) *Error {
	return &Error{Kind: kind, Message: defaultMessages[kind]}
}

// Newf returns an error of the given kind with a custom message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to an error of the given kind.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: defaultMessages[kind], Err: err}
}

// Sentinel returns a value usable with errors.Is to test for a kind.
func Sentinel(kind Kind) error {
	return &Error{Kind: kind}
}

// KindOf reports the kind of err, or ExtractionFailed for uncategorized errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ExtractionFailed
}

// UserMessage converts any error into a single message suitable for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return defaultMessages[e.Kind]
	}
	return defaultMessages[ExtractionFailed]
}
