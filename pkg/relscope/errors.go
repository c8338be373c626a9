// SPDX-License-Identifier: Apache-2.0

package relscope

import "fmt"

// UnresolvedRelationError reports that a FROM/JOIN item names a relation
// that does not exist in the supplied DatabaseStructure. This is a hard
// failure (spec error kind 4): it halts analysis, because any
// RelationStructure built around it would make the downstream PK-lifting
// logic vacuous.
type UnresolvedRelationError struct {
	SchemaName   *string
	RelationName string
}

func (e *UnresolvedRelationError) Error() string {
	if e.SchemaName != nil {
		return fmt.Sprintf("relation %q not found in schema %q", e.RelationName, *e.SchemaName)
	}
	return fmt.Sprintf("relation %q not found", e.RelationName)
}

// UnsupportedConstructError reports a recognized AST node whose variant the
// analyzer does not implement (spec error kind 3).
type UnsupportedConstructError struct {
	Reason string
}

func (e *UnsupportedConstructError) Error() string {
	return e.Reason
}
