// SPDX-License-Identifier: Apache-2.0

package sql2rel

import "github.com/seancolsen/query-lens/pkg/relation"

// liftPkMappings projects each underlying relation's lookup-column sets
// through the outer SELECT's output columns, yielding the subset that
// survives as a usable key at the outer level (spec.md §4.5).
//
// The relative order of emitted mappings matches the order relations were
// encountered in FROM, sub-ordered by each relation's own mapping order.
func liftPkMappings(resultColumns []relation.ResultColumn, relations []relation.NamedRelation) []relation.PkMapping {
	var out []relation.PkMapping
	for _, nr := range relations {
		for _, sub := range nr.Structure.PkMappings {
			if lifted, ok := liftPkMapping(resultColumns, nr.Reference, sub); ok {
				out = append(out, lifted)
			}
		}
	}
	return out
}

func liftPkMapping(resultColumns []relation.ResultColumn, subRelation relation.RelationReference, sub relation.PkMapping) (relation.PkMapping, bool) {
	pkColumns := make([]string, 0, len(sub.PkColumns))
	for _, c := range sub.PkColumns {
		name, ok := findOuterRepresentative(resultColumns, subRelation, c)
		if !ok {
			// This inner PK column has no outer representative: the
			// mapping cannot be lifted.
			return relation.PkMapping{}, false
		}
		pkColumns = append(pkColumns, name)
	}

	inDataColumns := make(map[string]bool, len(sub.DataColumns))
	for _, c := range sub.DataColumns {
		inDataColumns[c] = true
	}

	dataColumns := []string{}
	for _, oc := range resultColumns {
		if oc.Name == nil {
			continue
		}
		dr, ok := oc.Definition.(relation.DataReference)
		if !ok || dr.LocalSource == nil {
			continue
		}
		if !sameRelation(dr.LocalSource.Relation, subRelation) {
			continue
		}
		if inDataColumns[dr.LocalSource.ColumnName] {
			dataColumns = append(dataColumns, *oc.Name)
		}
	}

	return relation.PkMapping{PkColumns: pkColumns, DataColumns: dataColumns}, true
}

// findOuterRepresentative searches the outer result columns, left to right,
// for one whose local source is {subRelation, columnName}.
//
// This is the behavior flagged in spec.md §9 as a likely source bug,
// preserved deliberately: the search gives up (treats columnName as
// unrepresentable) at the first outer column whose local source is null,
// rather than skipping past it to keep looking. A column has no local
// source when it is a ConstantValue, an UnknownExpression, or a
// DataReference that was never recontextualized.
func findOuterRepresentative(resultColumns []relation.ResultColumn, subRelation relation.RelationReference, columnName string) (string, bool) {
	for _, oc := range resultColumns {
		dr, ok := oc.Definition.(relation.DataReference)
		var localSource *relation.LocalColumnReference
		if ok {
			localSource = dr.LocalSource
		}
		if localSource == nil {
			return "", false
		}
		if sameRelation(localSource.Relation, subRelation) && localSource.ColumnName == columnName {
			if oc.Name == nil {
				continue
			}
			return *oc.Name, true
		}
	}
	return "", false
}

// sameRelation reports whether a and b name the same relation, comparing
// schema names by value rather than by pointer.
func sameRelation(a, b relation.RelationReference) bool {
	if a.Name != b.Name {
		return false
	}
	if a.SchemaName == nil || b.SchemaName == nil {
		return a.SchemaName == nil && b.SchemaName == nil
	}
	return *a.SchemaName == *b.SchemaName
}
