// SPDX-License-Identifier: Apache-2.0

// Package relation defines the analyzer's output model: tagged column
// definitions, result columns, relation structures, primary-key mappings,
// and the provenance reference types that tie a result column back to the
// schema it came from.
package relation

import "github.com/seancolsen/query-lens/pkg/structure"

// SchemaReference is a provenance snapshot of a schema, captured at
// analysis time.
type SchemaReference struct {
	Name string `json:"name"`
	OID  int    `json:"oid"`
}

// SchemaReferenceFrom captures a SchemaReference from a live schema.
func SchemaReferenceFrom(s *structure.Schema) SchemaReference {
	return SchemaReference{Name: s.Name, OID: s.OID}
}

// TableReference is a provenance snapshot of a table, captured at analysis
// time.
type TableReference struct {
	Name            string          `json:"name"`
	OID             int             `json:"oid"`
	SchemaReference SchemaReference `json:"schema_reference"`
}

// TableReferenceFrom captures a TableReference from a live schema and table.
func TableReferenceFrom(s *structure.Schema, t *structure.Table) TableReference {
	return TableReference{
		Name:            t.Name,
		OID:             t.OID,
		SchemaReference: SchemaReferenceFrom(s),
	}
}

// ColumnReference is the full physical provenance of a column: the table it
// lives in, and the column itself. It is context-independent - it names a
// single physical location regardless of how that location was reached in
// any particular query.
type ColumnReference struct {
	TableReference TableReference   `json:"table_reference"`
	Column         structure.Column `json:"column"`
}

// ColumnReferenceFrom captures a ColumnReference from a live schema, table
// and column.
func ColumnReferenceFrom(s *structure.Schema, t *structure.Table, c *structure.Column) ColumnReference {
	return ColumnReference{
		TableReference: TableReferenceFrom(s, t),
		Column:         *c,
	}
}

// RelationReference identifies a relation as referenced within a single
// query: Name is the alias if the relation was aliased, otherwise the
// actual relation name. SchemaName is the schema name as written in an
// unaliased, schema-qualified table or view reference; it is nil for CTEs,
// aliases and unqualified references.
type RelationReference struct {
	Name       string  `json:"name"`
	SchemaName *string `json:"schema_name"`
}

// LocalColumnReference identifies a column inside the current query's local
// scope: which relation (as referenced in this query) furnished it, and
// under what name. Unlike ColumnReference, it is context-dependent - it is
// only meaningful relative to the Context it was resolved in.
type LocalColumnReference struct {
	Relation   RelationReference `json:"relation"`
	ColumnName string            `json:"column_name"`
}
