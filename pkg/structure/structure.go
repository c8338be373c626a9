// SPDX-License-Identifier: Apache-2.0

// Package structure models a read-only snapshot of a database's structural
// metadata: schemas, tables, columns and the unique-key sets that identify
// rows within a table. It is the input half of the analyzer - callers build
// a DatabaseStructure once (typically by unmarshalling JSON or YAML) and
// pass it to pkg/sql2rel for analysis of a single query.
package structure

import (
	"fmt"
	"sort"
)

// Column is a single, immutable column definition.
type Column struct {
	Name    string `json:"name"`
	Attnum  int    `json:"attnum"`
	Type    string `json:"type"`
	Mutable bool   `json:"mutable"`
}

// LookupColumnSet represents a UNIQUE NOT NULL key, possibly composite, on
// the owning table. Every name in ColumnNames must exist in that table.
type LookupColumnSet struct {
	ColumnNames []string `json:"column_names"`
}

// Table is a named collection of columns together with the lookup column
// sets (unique keys) defined on it.
type Table struct {
	Name             string             `json:"name"`
	OID              int                `json:"oid"`
	Columns          map[string]*Column `json:"columns"`
	LookupColumnSets []LookupColumnSet  `json:"lookup_column_sets"`
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.Columns[name]
	return c, ok
}

// OrderedColumns returns the table's columns sorted by Attnum, which is the
// column's declaration order in the source database. Attnum, not map
// iteration order, is the only reliable ordering signal once columns have
// been decoded from JSON/YAML into a map.
func (t *Table) OrderedColumns() []*Column {
	cols := make([]*Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, c)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].Attnum < cols[j].Attnum })
	return cols
}

// Schema is a named collection of tables.
type Schema struct {
	Name   string            `json:"name"`
	OID    int               `json:"oid"`
	Tables map[string]*Table `json:"tables"`
}

// Table looks up a table by name.
func (s *Schema) Table(name string) (*Table, bool) {
	t, ok := s.Tables[name]
	return t, ok
}

// DatabaseStructure is an immutable snapshot of a database's structural
// metadata, as supplied by the schema-ingestion collaborator.
type DatabaseStructure struct {
	Schemas       map[string]*Schema `json:"schemas"`
	CurrentSchema string             `json:"current_schema"`
}

// New constructs a DatabaseStructure, failing if currentSchema is not a key
// of schemas.
func New(schemas map[string]*Schema, currentSchema string) (*DatabaseStructure, error) {
	ds := &DatabaseStructure{Schemas: schemas, CurrentSchema: currentSchema}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate checks the structural invariant that CurrentSchema names an
// entry in Schemas. Callers that build a DatabaseStructure by unmarshalling
// JSON/YAML directly must call Validate themselves before use.
func (d *DatabaseStructure) Validate() error {
	if _, ok := d.Schemas[d.CurrentSchema]; !ok {
		return &CurrentSchemaNotFoundError{CurrentSchema: d.CurrentSchema}
	}
	return nil
}

// Schema looks up a schema by name.
func (d *DatabaseStructure) Schema(name string) (*Schema, bool) {
	s, ok := d.Schemas[name]
	return s, ok
}

// CurrentSchemaEntry returns the schema named by CurrentSchema. It panics if
// called on a DatabaseStructure that has not passed Validate, since that
// would indicate a caller bypassed construction.
func (d *DatabaseStructure) CurrentSchemaEntry() *Schema {
	s, ok := d.Schemas[d.CurrentSchema]
	if !ok {
		panic(fmt.Sprintf("structure: current_schema %q is not present; Validate was not called", d.CurrentSchema))
	}
	return s
}

// CurrentSchemaNotFoundError reports that current_schema does not name a
// known schema (spec error kind 6: configuration error).
type CurrentSchemaNotFoundError struct {
	CurrentSchema string
}

func (e *CurrentSchemaNotFoundError) Error() string {
	return fmt.Sprintf("current_schema %q is not present in schemas", e.CurrentSchema)
}
