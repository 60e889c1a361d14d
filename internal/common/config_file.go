package common

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var configSchemaJSON []byte

var (
	configSchemaOnce sync.Once
	configSchema     *jsonschema.Schema
	configSchemaErr  error
)

func compiledConfigSchema() (*jsonschema.Schema, error) {
	configSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("config.schema.json", bytes.NewReader(configSchemaJSON)); err != nil {
			configSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		configSchema, configSchemaErr = compiler.Compile("config.schema.json")
	})
	return configSchema, configSchemaErr
}

// LoadConfigFile overlays the YAML file at path onto cfg after validating it
// against the embedded config schema. Keys absent from the file keep their value.
func LoadConfigFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file", err)
	}
	return ApplyConfigYAML(raw, cfg)
}

// ApplyConfigYAML validates and decodes a YAML document onto cfg.
func ApplyConfigYAML(raw []byte, cfg *Config) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return NewAppError("CONFIG_ERROR", "parse config yaml", err)
	}
	if doc == nil {
		return nil
	}

	// round-trip through JSON so the validator sees JSON types
	b, err := json.Marshal(doc)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "config is not representable as JSON", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return NewAppError("CONFIG_ERROR", "config json", err)
	}
	schema, err := compiledConfigSchema()
	if err != nil {
		return NewAppError("CONFIG_ERROR", "compile config schema", err)
	}
	if err := schema.Validate(v); err != nil {
		return NewAppError("CONFIG_ERROR", "config does not match schema", fmt.Errorf("%w: %v", ErrValidation, err))
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return NewAppError("CONFIG_ERROR", "decode config", err)
	}
	if cfg.Paths.WorkDir != "" && !pathsOverridden(doc) {
		cfg.Paths.SetWorkDir(cfg.Paths.WorkDir)
	}
	return nil
}

// pathsOverridden reports whether the document sets any staging dir besides work_dir.
func pathsOverridden(doc any) bool {
	m, ok := doc.(map[string]any)
	if !ok {
		return false
	}
	paths, ok := m["paths"].(map[string]any)
	if !ok {
		return false
	}
	for k := range paths {
		if k != "work_dir" && k != "master" {
			return true
		}
	}
	return false
}
