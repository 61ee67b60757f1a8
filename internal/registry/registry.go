package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed sources.schema.json
var sourcesSchemaJSON string

// Source is one external location believed to list show events. The
// registry is operator-maintained configuration; the pipeline only reads it.
type Source struct {
	Address       string  `json:"address"`
	Enabled       *bool   `json:"enabled,omitempty"`
	PriorityScore float64 `json:"priority_score,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

// IsEnabled treats a missing enabled flag as true.
func (s Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type Registry struct {
	Sources []Source `json:"sources"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// LoadFile reads and validates a registry file.
func LoadFile(path string) (*Registry, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file %q: %w", path, err)
	}
	reg, err := Parse(payload)
	if err != nil {
		return nil, fmt.Errorf("sources file %q: %w", path, err)
	}
	return reg, nil
}

// Parse validates raw registry JSON against the embedded schema.
func Parse(payload []byte) (*Registry, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode registry JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load registry schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize registry JSON: %w", err)
	}

	var reg Registry
	if err := json.Unmarshal(normalized, &reg); err != nil {
		return nil, fmt.Errorf("unmarshal registry: %w", err)
	}

	for i := range reg.Sources {
		reg.Sources[i].Address = strings.TrimSpace(reg.Sources[i].Address)
	}
	return &reg, nil
}

// Enabled returns the sources eligible for crawling.
func (r *Registry) Enabled() []Source {
	if r == nil {
		return nil
	}
	enabled := make([]Source, 0, len(r.Sources))
	for _, source := range r.Sources {
		if source.IsEnabled() {
			enabled = append(enabled, source)
		}
	}
	return enabled
}

// Sample picks up to n enabled sources uniformly at random without
// replacement, spreading fetch load across the registry over repeated runs.
func (r *Registry) Sample(n int) []Source {
	enabled := r.Enabled()
	if n <= 0 || len(enabled) == 0 {
		return nil
	}

	rand.Shuffle(len(enabled), func(i, j int) {
		enabled[i], enabled[j] = enabled[j], enabled[i]
	})
	if n > len(enabled) {
		n = len(enabled)
	}
	return enabled[:n]
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("sources.schema.json", strings.NewReader(sourcesSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("sources.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("registry is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("registry contains trailing content")
	}
	return value, nil
}
