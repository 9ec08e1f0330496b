package secret

import "errors"

var (
	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrProviderNotRegistered indicates a reference to an unknown provider.
	ErrProviderNotRegistered = errors.New("secret: provider not registered")

	// ErrEmptySecret indicates a provider returned an empty value in strict mode.
	ErrEmptySecret = errors.New("secret: empty value")

	// ErrSecretNotFound indicates the provider has no value for the ref.
	ErrSecretNotFound = errors.New("secret: not found")

	// ErrInvalidRegistration indicates a registry call with a bad name or factory.
	ErrInvalidRegistration = errors.New("secret: invalid provider registration")
)
