package model

import (
	"errors"
	"fmt"
)

var (
	// ErrPersistence marks ledger failures: storage unavailable, lock timeout, aborted commit.
	ErrPersistence = errors.New("persistence unavailable")

	// ErrValidation marks malformed user input such as a captcha answer or a page token.
	ErrValidation = errors.New("validation failed")
)

// ConfigurationError reports invalid catalog data. The process must not serve traffic with it.
type ConfigurationError struct {
	Source string
	Row    int
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Row > 0 && e.Field != "":
		return fmt.Sprintf("catalog %s: row %d: %s: %s", e.Source, e.Row, e.Field, e.Reason)
	case e.Row > 0:
		return fmt.Sprintf("catalog %s: row %d: %s", e.Source, e.Row, e.Reason)
	default:
		return fmt.Sprintf("catalog %s: %s", e.Source, e.Reason)
	}
}

// IsConfigurationError reports whether err is or wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
