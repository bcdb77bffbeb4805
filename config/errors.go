package config

import "errors"

var (
	// ErrMissingEnv is returned when the file references an unset variable.
	ErrMissingEnv = errors.New("config: missing required environment variables")

	// ErrInvalid is returned when a loaded configuration fails validation.
	ErrInvalid = errors.New("config: invalid configuration")
)
