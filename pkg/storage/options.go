package storage

import (
	"fmt"
	"os"
	"strconv"
)

// Options reads typed values out of a destination's option map. String
// values have ${VAR} references expanded from the environment so secrets
// can stay out of the configuration file.
type Options map[string]interface{}

// String returns a string option
func (o Options) String(key string) (string, bool, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, fmt.Errorf("%w: option %s must be a string", ErrInvalidConfig, key)
	}
	return os.ExpandEnv(s), true, nil
}

// RequiredString returns a string option that must be present and non-empty
func (o Options) RequiredString(key string) (string, error) {
	s, ok, err := o.String(key)
	if err != nil {
		return "", err
	}
	if !ok || s == "" {
		return "", fmt.Errorf("%w: missing required option: %s", ErrInvalidConfig, key)
	}
	return s, nil
}

// Int returns an integer option, accepting numbers and numeric strings
func (o Options) Int(key string, fallback int) (int, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return fallback, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		i, err := strconv.Atoi(os.ExpandEnv(n))
		if err != nil {
			return 0, fmt.Errorf("%w: option %s: %v", ErrInvalidConfig, key, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: option %s must be a number", ErrInvalidConfig, key)
	}
}

// Bool returns a boolean option
func (o Options) Bool(key string, fallback bool) (bool, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return fallback, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: option %s must be a boolean", ErrInvalidConfig, key)
	}
	return b, nil
}
