package credentials

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	CredentialsErrorMalformedConnectionString = "CREDENTIALS_MALFORMED_CONNECTION_STRING"
	CredentialsErrorMissingRequiredField      = "CREDENTIALS_MISSING_REQUIRED_FIELD"
	CredentialsErrorDisallowedField           = "CREDENTIALS_DISALLOWED_FIELD"
)

var (
	ErrMalformedConnectionString = errors.New("credentials: malformed connection string")
	ErrMissingRequiredField      = errors.New("credentials: missing required field")
	ErrDisallowedField           = errors.New("credentials: disallowed field")
)

// MalformedConnectionStringError reports input that does not parse under the
// connection-string grammar.
type MalformedConnectionStringError struct {
	Cause error
}

func (e *MalformedConnectionStringError) Error() string {
	if e == nil || e.Cause == nil {
		return ErrMalformedConnectionString.Error()
	}
	return ErrMalformedConnectionString.Error() + ": " + e.Cause.Error()
}

func (e *MalformedConnectionStringError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return ErrMalformedConnectionString
	}
	return errors.Join(ErrMalformedConnectionString, e.Cause)
}

func (e *MalformedConnectionStringError) ToServiceError() *goerrors.Error {
	message := ErrMalformedConnectionString.Error()
	if e != nil && e.Cause != nil {
		message = e.Error()
	}
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(CredentialsErrorMalformedConnectionString)
}

func malformedConnectionString(cause error) error {
	return &MalformedConnectionStringError{Cause: cause}
}

// MissingRequiredFieldError reports a mandatory key that is absent or empty.
// Field carries the canonical key spelling.
type MissingRequiredFieldError struct {
	Field string
}

func (e *MissingRequiredFieldError) Error() string {
	if e == nil {
		return ErrMissingRequiredField.Error()
	}
	return fmt.Sprintf("%s: %q", ErrMissingRequiredField.Error(), e.Field)
}

func (e *MissingRequiredFieldError) Unwrap() error {
	return ErrMissingRequiredField
}

func (e *MissingRequiredFieldError) ToServiceError() *goerrors.Error {
	return goerrors.New(e.Error(), goerrors.CategoryValidation).
		WithCode(http.StatusBadRequest).
		WithTextCode(CredentialsErrorMissingRequiredField)
}

func missingRequiredField(field string) error {
	return &MissingRequiredFieldError{Field: field}
}

// DisallowedFieldError reports a field present in the connection string even
// though a secure credential object was supplied, which would mean two
// credential channels at once.
type DisallowedFieldError struct {
	Field string
}

func (e *DisallowedFieldError) Error() string {
	if e == nil {
		return ErrDisallowedField.Error()
	}
	return fmt.Sprintf("%s: %q", ErrDisallowedField.Error(), e.Field)
}

func (e *DisallowedFieldError) Unwrap() error {
	return ErrDisallowedField
}

func (e *DisallowedFieldError) ToServiceError() *goerrors.Error {
	return goerrors.New(e.Error(), goerrors.CategoryValidation).
		WithCode(http.StatusBadRequest).
		WithTextCode(CredentialsErrorDisallowedField)
}

func disallowedField(field string) error {
	return &DisallowedFieldError{Field: field}
}
