package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/williamokano/dump_dbs/pkg/dumperr"
)

// ParseConfig reads and parses a configuration file
func ParseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}
	return cfg, nil
}

// Parse decodes a YAML (or JSON) document into a Config. The top level is an
// ordered mapping; entry order is preserved. Problems with the reserved keys
// fail the whole document, problems with a single entry are recorded on the
// entry so the rest of the run can proceed.
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &Config{}, nil
		}
		return nil, err
	}

	if len(doc.Content) == 0 {
		return &Config{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level must be a mapping, got %s", kindName(root.Kind))
	}

	cfg := &Config{}
	reserved := make(map[string]interface{})
	seen := make(map[string]bool)

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		key := keyNode.Value

		if seen[key] {
			return nil, fmt.Errorf("line %d: duplicate key %q", keyNode.Line, key)
		}
		seen[key] = true

		if reservedKeys[key] {
			var v interface{}
			if err := valueNode.Decode(&v); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", valueNode.Line, key, err)
			}
			reserved[key] = v
			continue
		}

		cfg.Entries = append(cfg.Entries, parseEntry(key, valueNode))
	}

	if err := validateDocument(Schema, reserved); err != nil {
		return nil, err
	}
	if err := applyReserved(cfg, reserved); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseEntry(name string, node *yaml.Node) Entry {
	entry := Entry{Name: name}

	switch node.Kind {
	case yaml.ScalarNode, yaml.AliasNode:
		if node.Kind == yaml.AliasNode && node.Alias != nil && node.Alias.Kind == yaml.MappingNode {
			node = node.Alias
			break
		}
		entry.Scalar = true
		return entry
	case yaml.MappingNode:
	default:
		entry.Err = dumperr.Configf(name, "expected a settings mapping or a scalar, got %s", kindName(node.Kind))
		return entry
	}

	var raw map[string]interface{}
	if err := node.Decode(&raw); err != nil {
		entry.Err = &dumperr.ConfigurationError{Entry: name, Reason: "cannot decode settings", Err: err}
		return entry
	}

	// Pass-through options reach the tools as written, not as YAML resolved them
	for key, v := range verbatimOptions(node) {
		raw[key] = v
	}

	if err := validateDocument(EntrySchema, raw); err != nil {
		entry.Err = &dumperr.ConfigurationError{Entry: name, Reason: "invalid settings", Err: err}
		return entry
	}

	settings, err := SettingsFromMap(name, raw)
	if err != nil {
		entry.Err = err
		return entry
	}
	entry.Settings = settings
	return entry
}

// verbatimOptions returns the source text of every scalar pass-through
// option in a settings mapping. Null values map to "".
func verbatimOptions(node *yaml.Node) map[string]string {
	passthrough := make(map[string]bool, len(passthroughOptions))
	for _, key := range passthroughOptions {
		passthrough[key] = true
	}

	out := make(map[string]string)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		if !passthrough[key] {
			continue
		}
		if value.Kind == yaml.AliasNode && value.Alias != nil {
			value = value.Alias
		}
		if value.Kind != yaml.ScalarNode {
			continue
		}
		if value.Tag == "!!null" {
			out[key] = ""
			continue
		}
		out[key] = value.Value
	}
	return out
}

// SettingsFromMap builds a settings record from decoded key/value pairs.
// Passthrough options keep their presence even when empty.
func SettingsFromMap(entry string, raw map[string]interface{}) (*Settings, error) {
	s := &Settings{options: make(map[string]string)}

	for _, key := range passthroughOptions {
		if v, ok := raw[key]; ok {
			s.options[key] = scalarString(v)
		}
	}

	var err error
	if s.Use, err = stringValue(entry, raw, "use"); err != nil {
		return nil, err
	}
	if s.Name, err = stringValue(entry, raw, "name"); err != nil {
		return nil, err
	}
	if s.Format, err = stringValue(entry, raw, "format"); err != nil {
		return nil, err
	}
	if s.Sed, err = stringList(entry, raw, "sed"); err != nil {
		return nil, err
	}
	if s.Upload, err = stringList(entry, raw, "upload"); err != nil {
		return nil, err
	}
	if s.ExtraArgs, err = stringList(entry, raw, "extra_args"); err != nil {
		return nil, err
	}
	if s.Latest, err = boolValue(entry, raw, "latest"); err != nil {
		return nil, err
	}
	if s.Strict, err = boolValue(entry, raw, "strict"); err != nil {
		return nil, err
	}

	if v, ok := raw["timeout"]; ok && v != nil {
		d, err := time.ParseDuration(scalarString(v))
		if err != nil {
			return nil, &dumperr.ConfigurationError{Entry: entry, Reason: "invalid timeout", Err: err}
		}
		s.Timeout = d
	}

	return s, nil
}

func applyReserved(cfg *Config, reserved map[string]interface{}) error {
	if v, ok := reserved[KeyTargetDir].(string); ok {
		cfg.TargetDir = v
	}
	if v, ok := reserved[KeyLogLevel].(string); ok {
		cfg.LogLevel = v
	}
	if v, ok := reserved[KeyLogFormat].(string); ok {
		cfg.LogFormat = v
	}
	if v, ok := reserved[KeyMaxConcurrent].(int); ok {
		cfg.MaxConcurrent = v
	}
	if v, ok := reserved[KeyStrict].(bool); ok {
		cfg.Strict = v
	}
	if v, ok := reserved[KeyTimeout].(string); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", KeyTimeout, err)
		}
		cfg.Timeout = d
	}

	if v, ok := reserved[KeyStorage]; ok && v != nil {
		// Round-trip through YAML to get the typed structure
		out, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", KeyStorage, err)
		}
		if err := yaml.Unmarshal(out, &cfg.Storage); err != nil {
			return fmt.Errorf("invalid %s: %w", KeyStorage, err)
		}
	}

	names := make(map[string]bool)
	for _, d := range cfg.Storage.Destinations {
		if names[d.Name] {
			return fmt.Errorf("duplicate storage destination %q", d.Name)
		}
		names[d.Name] = true
	}

	return nil
}

func stringValue(entry string, raw map[string]interface{}, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", dumperr.Configf(entry, "%s must be a string", key)
	}
	return s, nil
}

func stringList(entry string, raw map[string]interface{}, key string) ([]string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, dumperr.Configf(entry, "%s must be a list", key)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, dumperr.Configf(entry, "%s items must be strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

func boolValue(entry string, raw map[string]interface{}, key string) (*bool, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil, dumperr.Configf(entry, "%s must be a boolean", key)
	}
	return &b, nil
}

func scalarString(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
