// SPDX-License-Identifier: Apache-2.0

package relation

import (
	"encoding/json"
	"fmt"

	"github.com/seancolsen/query-lens/pkg/structure"
)

// Classification discriminates the ColumnDefinition tagged union. It is
// serialized verbatim as the "classification" field of a definition.
type Classification string

const (
	ClassificationConstant Classification = "constant"
	ClassificationData     Classification = "data"
	ClassificationUnknown  Classification = "unknown"
)

// ColumnDefinition is the analyzer's central sum type: a SELECT target
// expression classifies into exactly one of ConstantValue, DataReference or
// UnknownExpression.
type ColumnDefinition interface {
	Classification() Classification
}

// ConstantValue is a target expression that evaluates to a literal value.
// It never carries source/provenance fields - knowing a value is constant
// is all there is to know about it.
type ConstantValue struct {
	// Type is always "unknown": PostgreSQL literal-type inference is out of
	// scope (spec.md §9).
	Type string
}

func (ConstantValue) Classification() Classification { return ClassificationConstant }

// DataReference is a target expression that carries data through from an
// underlying table column. UltimateSource is the physical (schema, table,
// column) it originates from and never changes. LocalSource is the
// relation/column name that furnished it in the *current* query scope; it
// is nil until the column has been resolved against a FROM/JOIN item, and
// is rewritten by Recontextualize as the column is lifted across query
// boundaries.
type DataReference struct {
	UltimateSource ColumnReference
	LocalSource    *LocalColumnReference
}

func (DataReference) Classification() Classification { return ClassificationData }

// UnknownExpression is a target expression the analyzer could not classify
// or resolve. Reason explains why, when known.
type UnknownExpression struct {
	Reason *string
}

func (UnknownExpression) Classification() Classification { return ClassificationUnknown }

// ResultColumn is one entry of a SELECT's output: a classified definition
// plus the output name it is known by, if any.
type ResultColumn struct {
	Definition ColumnDefinition
	// Name is nil iff no alias was given and none could be deduced.
	Name *string
}

// Recontextualize is the single invariant point for how column provenance
// propagates across a nested scope boundary: lifting a ResultColumn from an
// inner relation into the enclosing SELECT's output list.
//
// If the column's definition is a DataReference, its LocalSource is
// replaced by localSource (UltimateSource is preserved unchanged). Any
// other definition is left untouched. The result's Name is alias when
// alias is non-nil, otherwise the input column's Name.
func Recontextualize(col ResultColumn, localSource LocalColumnReference, alias *string) ResultColumn {
	def := col.Definition
	if dr, ok := def.(DataReference); ok {
		ls := localSource
		def = DataReference{UltimateSource: dr.UltimateSource, LocalSource: &ls}
	}

	name := col.Name
	if alias != nil {
		name = alias
	}

	return ResultColumn{Definition: def, Name: name}
}

// PkMapping says: knowing the values of PkColumns (named by their output
// column name) identifies a row-portion whose DataColumns cells are
// updatable through the analyzed query.
type PkMapping struct {
	PkColumns   []string `json:"pk_columns"`
	DataColumns []string `json:"data_columns"`
}

// RelationStructure is the analysis output: the ordered list of output
// columns (preserving SELECT target-list order) and the primary-key
// mappings that survive projection.
type RelationStructure struct {
	ResultColumns []ResultColumn
	PkMappings    []PkMapping
}

// FromTable builds the RelationStructure of a bare table or view: one
// DataReference ResultColumn per column, in declaration order, and one
// PkMapping per LookupColumnSet defined on the table.
func FromTable(schema *structure.Schema, table *structure.Table) RelationStructure {
	cols := table.OrderedColumns()

	resultColumns := make([]ResultColumn, len(cols))
	for i, c := range cols {
		name := c.Name
		resultColumns[i] = ResultColumn{
			Definition: DataReference{
				UltimateSource: ColumnReferenceFrom(schema, table, c),
			},
			Name: &name,
		}
	}

	pkMappings := make([]PkMapping, len(table.LookupColumnSets))
	for i, lcs := range table.LookupColumnSets {
		inPK := make(map[string]bool, len(lcs.ColumnNames))
		for _, n := range lcs.ColumnNames {
			inPK[n] = true
		}
		dataColumns := make([]string, 0, len(cols))
		for _, c := range cols {
			if !inPK[c.Name] {
				dataColumns = append(dataColumns, c.Name)
			}
		}
		pkMappings[i] = PkMapping{
			PkColumns:   append([]string(nil), lcs.ColumnNames...),
			DataColumns: dataColumns,
		}
	}

	return RelationStructure{ResultColumns: resultColumns, PkMappings: pkMappings}
}

// GetColumn performs a linear scan of ResultColumns for one whose Name
// equals name, returning a pointer to it and its index, or nil and -1.
func (rs *RelationStructure) GetColumn(name string) (*ResultColumn, int) {
	for i := range rs.ResultColumns {
		if rs.ResultColumns[i].Name != nil && *rs.ResultColumns[i].Name == name {
			return &rs.ResultColumns[i], i
		}
	}
	return nil, -1
}

// NamedRelation is one entry in a query's FROM clause: the reference it was
// named by, and the structure of the rows it produces.
type NamedRelation struct {
	Reference RelationReference
	Structure RelationStructure
}

// --- JSON ---

type constantValueJSON struct {
	Classification Classification `json:"classification"`
	Type           string         `json:"type"`
}

func (c ConstantValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(constantValueJSON{Classification: ClassificationConstant, Type: c.Type})
}

type dataReferenceJSON struct {
	Classification Classification        `json:"classification"`
	UltimateSource ColumnReference       `json:"ultimate_source"`
	LocalSource    *LocalColumnReference `json:"local_source"`
}

func (d DataReference) MarshalJSON() ([]byte, error) {
	return json.Marshal(dataReferenceJSON{
		Classification: ClassificationData,
		UltimateSource: d.UltimateSource,
		LocalSource:    d.LocalSource,
	})
}

type unknownExpressionJSON struct {
	Classification Classification `json:"classification"`
	Reason         *string        `json:"reason,omitempty"`
}

func (u UnknownExpression) MarshalJSON() ([]byte, error) {
	return json.Marshal(unknownExpressionJSON{Classification: ClassificationUnknown, Reason: u.Reason})
}

// UnmarshalColumnDefinition decodes a ColumnDefinition from its JSON
// representation, dispatching on the "classification" tag the way the
// analyzer model's reference implementation does.
func UnmarshalColumnDefinition(data []byte) (ColumnDefinition, error) {
	var tag struct {
		Classification Classification `json:"classification"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}

	switch tag.Classification {
	case ClassificationConstant:
		var v constantValueJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return ConstantValue{Type: v.Type}, nil
	case ClassificationData:
		var v dataReferenceJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return DataReference{UltimateSource: v.UltimateSource, LocalSource: v.LocalSource}, nil
	case ClassificationUnknown:
		var v unknownExpressionJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return UnknownExpression{Reason: v.Reason}, nil
	default:
		return nil, fmt.Errorf("relation: unknown classification %q", tag.Classification)
	}
}

type resultColumnJSON struct {
	Definition json.RawMessage `json:"definition"`
	Name       *string         `json:"name"`
}

func (rc ResultColumn) MarshalJSON() ([]byte, error) {
	defJSON, err := json.Marshal(rc.Definition)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resultColumnJSON{Definition: defJSON, Name: rc.Name})
}

func (rc *ResultColumn) UnmarshalJSON(data []byte) error {
	var raw resultColumnJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	def, err := UnmarshalColumnDefinition(raw.Definition)
	if err != nil {
		return err
	}
	rc.Definition = def
	rc.Name = raw.Name
	return nil
}

type relationStructureJSON struct {
	ResultColumns []ResultColumn `json:"result_columns"`
	PkMappings    []PkMapping    `json:"pk_mappings"`
}

func (rs RelationStructure) MarshalJSON() ([]byte, error) {
	resultColumns := rs.ResultColumns
	if resultColumns == nil {
		resultColumns = []ResultColumn{}
	}
	pkMappings := rs.PkMappings
	if pkMappings == nil {
		pkMappings = []PkMapping{}
	}
	return json.Marshal(relationStructureJSON{ResultColumns: resultColumns, PkMappings: pkMappings})
}

func (rs *RelationStructure) UnmarshalJSON(data []byte) error {
	var raw relationStructureJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rs.ResultColumns = raw.ResultColumns
	rs.PkMappings = raw.PkMappings
	return nil
}
