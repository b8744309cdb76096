// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// EnvironmentProduction selects descriptors enabled in production.
	EnvironmentProduction Environment = "prod"
	// EnvironmentDevelopment selects descriptors enabled in development.
	EnvironmentDevelopment Environment = "dev"
)

// ErrInvalidEnvironment is the sentinel error wrapped by InvalidEnvironmentError.
var ErrInvalidEnvironment = errors.New("invalid environment")

type (
	// Environment is the runtime environment a resolution is computed for.
	Environment string

	// InvalidEnvironmentError is returned when an Environment value is not recognized.
	// It wraps ErrInvalidEnvironment for errors.Is() compatibility.
	InvalidEnvironmentError struct {
		Value Environment
	}
)

// Error implements the error interface.
func (e *InvalidEnvironmentError) Error() string {
	return fmt.Sprintf("invalid environment %q (valid: %s, %s)", e.Value, EnvironmentProduction, EnvironmentDevelopment)
}

// Unwrap returns ErrInvalidEnvironment for errors.Is() compatibility.
func (e *InvalidEnvironmentError) Unwrap() error { return ErrInvalidEnvironment }

// ParseEnvironment converts user input into an Environment. Long forms
// ("production", "development") and any letter case are accepted.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "production":
		return EnvironmentProduction, nil
	case "dev", "development":
		return EnvironmentDevelopment, nil
	default:
		return "", &InvalidEnvironmentError{Value: Environment(s)}
	}
}

// Validate returns nil if the Environment is one of the known values.
func (e Environment) Validate() error {
	switch e {
	case EnvironmentProduction, EnvironmentDevelopment:
		return nil
	default:
		return &InvalidEnvironmentError{Value: e}
	}
}

// String returns the string representation of the Environment.
func (e Environment) String() string { return string(e) }

// IsDevelopment reports whether e is the development environment.
func (e Environment) IsDevelopment() bool { return e == EnvironmentDevelopment }
