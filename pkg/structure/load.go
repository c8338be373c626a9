// SPDX-License-Identifier: Apache-2.0

package structure

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"sigs.k8s.io/yaml"
)

//go:embed schema.json
var schemaDocument []byte

var compiledSchema *jsonschema.Schema

func init() {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaDocument))
	if err != nil {
		panic(fmt.Sprintf("structure: invalid embedded schema: %s", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("structure.schema.json", doc); err != nil {
		panic(fmt.Sprintf("structure: invalid embedded schema: %s", err))
	}
	sch, err := compiler.Compile("structure.schema.json")
	if err != nil {
		panic(fmt.Sprintf("structure: failed to compile embedded schema: %s", err))
	}
	compiledSchema = sch
}

// InvalidStructureError reports that a database-structure document failed
// JSON Schema validation, or could not be decoded at all.
type InvalidStructureError struct {
	Path string
	Err  error
}

func (e *InvalidStructureError) Unwrap() error { return e.Err }

func (e *InvalidStructureError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("invalid database structure %q: %s", e.Path, e.Err.Error())
	}
	return fmt.Sprintf("invalid database structure: %s", e.Err.Error())
}

// ValidateJSON checks data against the DatabaseStructure JSON Schema. It
// does not check the current_schema invariant - that is Validate's job,
// once the document has been unmarshalled.
func ValidateJSON(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return &InvalidStructureError{Err: err}
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return &InvalidStructureError{Err: err}
	}
	return nil
}

// LoadFile reads a DatabaseStructure from path. YAML is accepted for
// ".yaml"/".yml" extensions and converted to JSON before validation;
// anything else is parsed as JSON.
func LoadFile(path string) (*DatabaseStructure, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(raw, path)
}

// Load decodes a DatabaseStructure from raw bytes. name is used only for
// error messages and to pick YAML vs JSON decoding by extension.
func Load(raw []byte, name string) (*DatabaseStructure, error) {
	data := raw
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		converted, err := yaml.YAMLToJSON(raw)
		if err != nil {
			return nil, &InvalidStructureError{Path: name, Err: err}
		}
		data = converted
	}

	if err := ValidateJSON(data); err != nil {
		if ise, ok := err.(*InvalidStructureError); ok {
			ise.Path = name
		}
		return nil, err
	}

	var ds DatabaseStructure
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, &InvalidStructureError{Path: name, Err: err}
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}
