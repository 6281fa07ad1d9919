package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration means required credentials or settings are missing; the run never starts.
	ErrConfiguration = errors.New("configuration error")
	// ErrProviderUnavailable means the search backend could not be reached.
	ErrProviderUnavailable = errors.New("search provider unavailable")
	// ErrUpstream means the generation backend failed at the transport or HTTP level.
	ErrUpstream = errors.New("generation backend error")
	// ErrSchemaViolation means the generation backend returned JSON outside the declared contract.
	ErrSchemaViolation = errors.New("schema violation")
	// ErrFetchUnavailable means every fetch tier failed for a URL. Recovered by omission.
	ErrFetchUnavailable = errors.New("fetch unavailable")
	// ErrExtraction means content could not be turned into text. Recovered by omission.
	ErrExtraction = errors.New("extraction error")
)

// SchemaViolationError carries the individual validation problems.
type SchemaViolationError struct {
	Schema   string
	Problems []string
}

func (e *SchemaViolationError) Error() string {
	if len(e.Problems) == 0 {
		return fmt.Sprintf("schema violation in %s", e.Schema)
	}
	return fmt.Sprintf("schema violation in %s: %s", e.Schema, strings.Join(e.Problems, "; "))
}

func (e *SchemaViolationError) Unwrap() error { return ErrSchemaViolation }

// Fatal reports whether err terminates a run.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrUpstream) ||
		errors.Is(err, ErrSchemaViolation)
}
