package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError lists every schema violation found in a document
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "configuration is not valid: " + strings.Join(e.Problems, "; ")
}

// validateDocument validates an already decoded document against a JSON schema
func validateDocument(schema string, doc interface{}) error {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate schema: %w", err)
	}

	if !result.Valid() {
		verr := &ValidationError{}
		for _, desc := range result.Errors() {
			verr.Problems = append(verr.Problems, desc.String())
		}
		return verr
	}

	return nil
}

// Validate parses a configuration file and returns every problem found in it:
// a document-level error, or one error per broken entry.
func Validate(configFile string) ([]error, error) {
	cfg, err := ParseConfig(configFile)
	if err != nil {
		return nil, err
	}

	var problems []error
	for _, e := range cfg.Entries {
		if e.Err != nil {
			problems = append(problems, e.Err)
		}
	}
	return problems, nil
}

// IsValidationError reports whether err carries schema violations
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
