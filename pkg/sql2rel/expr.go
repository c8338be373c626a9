// SPDX-License-Identifier: Apache-2.0

package sql2rel

import (
	"fmt"

	pgq "github.com/pganalyze/pg_query_go/v6"

	"github.com/seancolsen/query-lens/pkg/relation"
	"github.com/seancolsen/query-lens/pkg/relscope"
)

// deduceResultColumnName derives a display name for a target expression
// that has no explicit alias: the last dotted identifier of a column
// reference, or nil for anything else.
func deduceResultColumnName(expr *pgq.Node) *string {
	ref, ok := expr.GetNode().(*pgq.Node_ColumnRef)
	if !ok {
		return nil
	}
	fields := ref.ColumnRef.GetFields()
	if len(fields) == 0 {
		return nil
	}
	last, ok := fields[len(fields)-1].GetNode().(*pgq.Node_String_)
	if !ok {
		return nil
	}
	v := last.String_.GetSval()
	return &v
}

// analyzeResultColumn classifies a single SELECT target expression into a
// ResultColumn, per spec.md §4.4.
func analyzeResultColumn(ctx *relscope.Context, expr *pgq.Node, alias *string) (relation.ResultColumn, error) {
	name := alias
	if name == nil {
		name = deduceResultColumnName(expr)
	}

	unknown := func(reason string) relation.ResultColumn {
		r := reason
		return relation.ResultColumn{Definition: relation.UnknownExpression{Reason: &r}, Name: name}
	}

	switch n := expr.GetNode().(type) {
	case *pgq.Node_AConst:
		return relation.ResultColumn{Definition: relation.ConstantValue{Type: "unknown"}, Name: name}, nil

	case *pgq.Node_ColumnRef:
		fields := n.ColumnRef.GetFields()
		if len(fields) < 1 || len(fields) > 3 {
			reason := fmt.Sprintf("Unsupported number of ColumnRef fields. Expected 1-3. Got %d.", len(fields))
			return unknown(reason), nil
		}

		svals := make([]string, len(fields))
		for i, f := range fields {
			s, ok := f.GetNode().(*pgq.Node_String_)
			if !ok {
				return unknown("Unable to identify string column in within AST."), nil
			}
			svals[i] = s.String_.GetSval()
		}

		var schemaName, relationName *string
		var columnName string
		switch len(svals) {
		case 1:
			columnName = svals[0]
		case 2:
			relationName = &svals[0]
			columnName = svals[1]
		case 3:
			schemaName = &svals[0]
			relationName = &svals[1]
			columnName = svals[2]
		}

		resolution := ctx.ResolveColumn(schemaName, relationName, columnName)
		if resolution == nil {
			return unknown("Unable to resolve column."), nil
		}

		localSource := relation.LocalColumnReference{
			Relation:   resolution.Relation,
			ColumnName: columnName,
		}
		return relation.Recontextualize(resolution.Column, localSource, name), nil

	default:
		return relation.ResultColumn{}, &relscope.UnsupportedConstructError{
			Reason: "unsupported SELECT target expression: only constants and column references are supported",
		}
	}
}
