package accounts

import (
	"errors"
	"strings"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already in use")
	ErrStorage            = errors.New("storage failure")
)

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// InputError lists the fields that failed validation. It matches
// ErrInvalidInput under errors.Is.
type InputError struct {
	Fields []FieldError
}

func (e *InputError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field+":"+f.Rule)
	}
	return "invalid input: " + strings.Join(names, ", ")
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}
