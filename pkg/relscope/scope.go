// SPDX-License-Identifier: Apache-2.0

// Package relscope implements the per-statement name-resolution scope: it
// walks a SELECT's FROM/JOIN clause, resolves each leaf to a schema
// relation, and exposes a column resolver over the resulting local scope.
package relscope

import (
	pgq "github.com/pganalyze/pg_query_go/v6"

	"github.com/seancolsen/query-lens/pkg/relation"
	"github.com/seancolsen/query-lens/pkg/structure"
)

// cteBucket is the schemas-map key reserved for CTEs and for any relation
// reference that carries no explicit schema qualification. PostgreSQL never
// names a real schema with the empty string, so it is safe to use as the
// sentinel for the spec's "null" schema-name key.
const cteBucket = ""

// ColumnResolution is what resolving a column name yields: the relation (as
// referenced in the query) it came from, and the ResultColumn it resolved
// to.
type ColumnResolution struct {
	Relation relation.RelationReference
	Column   relation.ResultColumn
}

// Context is the resolution environment for a single SELECT statement. It
// is constructed, consulted and discarded within one analysis call.
type Context struct {
	currentSchemaName string

	// ctes is a placeholder reserved for future WITH-clause support (see
	// spec.md §9: CTE handling is deferred). It is always empty today, but
	// resolution code already checks it so CTE support can be added without
	// touching callers.
	ctes map[string]relation.RelationStructure

	// relations holds one NamedRelation per leaf table/view reference in
	// FROM, in left-to-right order.
	relations []relation.NamedRelation

	// schemasMap indexes relations by (schema-name-or-cteBucket,
	// relation-name).
	schemasMap map[string]map[string]*relation.RelationStructure

	// flatColumns is the unqualified-column lookup table: first relation in
	// FROM order to offer a given column name wins.
	flatColumns map[string]ColumnResolution
}

// NewContext builds the resolution scope for stmt against ds.
func NewContext(ds *structure.DatabaseStructure, stmt *pgq.SelectStmt) (*Context, error) {
	ctx := &Context{
		currentSchemaName: ds.CurrentSchema,
		ctes:              map[string]relation.RelationStructure{},
	}

	relations, err := ctx.getReferencedRelations(ds, stmt.GetFromClause())
	if err != nil {
		return nil, err
	}
	ctx.relations = relations

	ctx.schemasMap = map[string]map[string]*relation.RelationStructure{}
	for i := range ctx.relations {
		nr := &ctx.relations[i]
		bucket := cteBucket
		if nr.Reference.SchemaName != nil {
			bucket = *nr.Reference.SchemaName
		}
		if ctx.schemasMap[bucket] == nil {
			ctx.schemasMap[bucket] = map[string]*relation.RelationStructure{}
		}
		ctx.schemasMap[bucket][nr.Reference.Name] = &nr.Structure
	}

	ctx.flatColumns = map[string]ColumnResolution{}
	for i := range ctx.relations {
		nr := &ctx.relations[i]
		for _, rc := range nr.Structure.ResultColumns {
			if rc.Name == nil {
				continue
			}
			if _, exists := ctx.flatColumns[*rc.Name]; exists {
				continue
			}
			ctx.flatColumns[*rc.Name] = ColumnResolution{Relation: nr.Reference, Column: rc}
		}
	}

	return ctx, nil
}

// Relations returns the NamedRelations resolved from FROM, in left-to-right
// order.
func (c *Context) Relations() []relation.NamedRelation {
	return c.relations
}

// ResolveColumn is the column resolver described in spec.md §4.3. A nil
// relationName resolves against the flat (unqualified) column map; a
// non-nil relationName resolves within the relation named by
// (schemaName, relationName). It returns nil on any miss - callers turn
// that into a soft UnknownExpression, not an error.
func (c *Context) ResolveColumn(schemaName, relationName *string, columnName string) *ColumnResolution {
	if relationName == nil {
		res, ok := c.flatColumns[columnName]
		if !ok {
			return nil
		}
		return &res
	}

	var rs *relation.RelationStructure
	if schemaName != nil {
		if m, ok := c.schemasMap[*schemaName]; ok {
			rs = m[*relationName]
		}
	} else {
		if m, ok := c.schemasMap[c.currentSchemaName]; ok {
			rs = m[*relationName]
		}
		if rs == nil {
			if m, ok := c.schemasMap[cteBucket]; ok {
				rs = m[*relationName]
			}
		}
	}
	if rs == nil {
		return nil
	}

	rc, _ := rs.GetColumn(columnName)
	if rc == nil {
		return nil
	}
	return &ColumnResolution{
		Relation: relation.RelationReference{Name: *relationName, SchemaName: schemaName},
		Column:   *rc,
	}
}

// getReferencedRelations walks the items of a FROM clause, yielding one
// NamedRelation per leaf table reference in left-to-right order.
func (c *Context) getReferencedRelations(ds *structure.DatabaseStructure, fromClause []*pgq.Node) ([]relation.NamedRelation, error) {
	if len(fromClause) == 0 {
		return nil, nil
	}

	var out []relation.NamedRelation
	for _, item := range fromClause {
		nrs, err := c.walkFromItem(ds, item)
		if err != nil {
			return nil, err
		}
		out = append(out, nrs...)
	}
	return out, nil
}

func (c *Context) walkFromItem(ds *structure.DatabaseStructure, node *pgq.Node) ([]relation.NamedRelation, error) {
	switch n := node.GetNode().(type) {
	case *pgq.Node_RangeVar:
		return c.walkRangeVar(ds, n.RangeVar)
	case *pgq.Node_JoinExpr:
		return c.walkJoinExpr(ds, n.JoinExpr)
	default:
		return nil, &UnsupportedConstructError{Reason: "unsupported FROM item: expected a table reference or JOIN"}
	}
}

func (c *Context) walkRangeVar(ds *structure.DatabaseStructure, rv *pgq.RangeVar) ([]relation.NamedRelation, error) {
	if alias := rv.GetAlias(); alias != nil && len(alias.GetColnames()) > 0 {
		return nil, &UnsupportedConstructError{Reason: "column-list aliases on relations are not supported"}
	}

	var schemaName *string
	if s := rv.GetSchemaname(); s != "" {
		schemaName = &s
	}

	rs, err := c.resolveRelation(ds, schemaName, rv.GetRelname())
	if err != nil {
		return nil, err
	}

	ref := relation.RelationReference{Name: rv.GetRelname(), SchemaName: schemaName}
	if alias := rv.GetAlias(); alias != nil && alias.GetAliasname() != "" {
		aliasName := alias.GetAliasname()
		ref = relation.RelationReference{Name: aliasName, SchemaName: nil}
	}

	return []relation.NamedRelation{{Reference: ref, Structure: rs}}, nil
}

func (c *Context) walkJoinExpr(ds *structure.DatabaseStructure, je *pgq.JoinExpr) ([]relation.NamedRelation, error) {
	if je.GetAlias() != nil {
		return nil, &UnsupportedConstructError{Reason: "aliased JOIN expressions are not supported"}
	}
	if je.GetJoinUsingAlias() != nil {
		return nil, &UnsupportedConstructError{Reason: "JOIN ... USING (...) AS is not supported"}
	}
	if je.GetIsNatural() {
		return nil, &UnsupportedConstructError{Reason: "NATURAL JOIN is not supported"}
	}
	if len(je.GetUsingClause()) > 0 {
		return nil, &UnsupportedConstructError{Reason: "JOIN ... USING (...) is not supported"}
	}
	if je.GetJointype() != pgq.JoinType_JOIN_INNER && je.GetJointype() != pgq.JoinType_JOIN_LEFT {
		return nil, &UnsupportedConstructError{Reason: "only INNER and LEFT joins are supported"}
	}

	left, err := c.walkFromItem(ds, je.GetLarg())
	if err != nil {
		return nil, err
	}
	right, err := c.walkFromItem(ds, je.GetRarg())
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}

// resolveRelation resolves a schema-qualified or bare relation name to its
// RelationStructure, per spec.md §4.3's _resolve_relation.
func (c *Context) resolveRelation(ds *structure.DatabaseStructure, schemaName *string, relationName string) (relation.RelationStructure, error) {
	if schemaName != nil {
		schema, ok := ds.Schema(*schemaName)
		if !ok {
			return relation.RelationStructure{}, &UnresolvedRelationError{SchemaName: schemaName, RelationName: relationName}
		}
		table, ok := schema.Table(relationName)
		if !ok {
			return relation.RelationStructure{}, &UnresolvedRelationError{SchemaName: schemaName, RelationName: relationName}
		}
		return relation.FromTable(schema, table), nil
	}

	if rs, ok := c.ctes[relationName]; ok {
		return rs, nil
	}

	schema := ds.CurrentSchemaEntry()
	table, ok := schema.Table(relationName)
	if !ok {
		return relation.RelationStructure{}, &UnresolvedRelationError{SchemaName: nil, RelationName: relationName}
	}
	return relation.FromTable(schema, table), nil
}
