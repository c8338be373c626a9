// SPDX-License-Identifier: Apache-2.0

// Package sql2rel analyzes a single PostgreSQL SELECT statement against a
// database structure snapshot, producing a RelationStructure: the
// classified, provenance-tagged output columns and the primary-key
// mappings that survive the projection.
package sql2rel

import (
	"fmt"

	pgq "github.com/pganalyze/pg_query_go/v6"

	"github.com/seancolsen/query-lens/pkg/relation"
	"github.com/seancolsen/query-lens/pkg/relscope"
	"github.com/seancolsen/query-lens/pkg/structure"
)

// Analyze parses sql, resolves it against ds, and returns the analysis
// result. It is a pure function: no I/O is performed beyond the arguments
// given, and it may be called concurrently with independent arguments.
//
// Analyze fails (returning a non-nil error) on:
//   - invalid SQL the parser rejects,
//   - input that is not exactly one SELECT statement,
//   - a construct outside the recognized subset (set operations,
//     unsupported JOIN shapes, column-list aliases, ResTarget indirection,
//     target expressions that are neither constants nor column references),
//   - a FROM/JOIN item that cannot be resolved to a known relation,
//   - ds.CurrentSchema not naming a schema in ds.Schemas.
//
// An individual SELECT target that cannot be resolved does not fail the
// call: it is reported as an UnknownExpression result column so the rest of
// the query can still be analyzed.
func Analyze(sql string, ds *structure.DatabaseStructure) (*relation.RelationStructure, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	tree, err := pgq.Parse(sql)
	if err != nil {
		return nil, &InvalidQueryError{Err: err}
	}

	stmts := tree.GetStmts()
	if len(stmts) != 1 {
		return nil, &UnsupportedStatementError{
			Reason: fmt.Sprintf("expected exactly one statement, got %d", len(stmts)),
		}
	}

	node := stmts[0].GetStmt().GetNode()
	selectNode, ok := node.(*pgq.Node_SelectStmt)
	if !ok {
		return nil, &UnsupportedStatementError{Reason: "only SELECT statements are supported"}
	}
	stmt := selectNode.SelectStmt

	if stmt.GetOp() != pgq.SetOperation_SETOP_NONE {
		return nil, &relscope.UnsupportedConstructError{
			Reason: "set operations (UNION/INTERSECT/EXCEPT) are not supported",
		}
	}

	ctx, err := relscope.NewContext(ds, stmt)
	if err != nil {
		return nil, err
	}

	resultColumns, err := analyzeResultColumns(ctx, stmt)
	if err != nil {
		return nil, err
	}

	pkMappings := liftPkMappings(resultColumns, ctx.Relations())

	return &relation.RelationStructure{
		ResultColumns: resultColumns,
		PkMappings:    pkMappings,
	}, nil
}

func analyzeResultColumns(ctx *relscope.Context, stmt *pgq.SelectStmt) ([]relation.ResultColumn, error) {
	targetList := stmt.GetTargetList()
	resultColumns := make([]relation.ResultColumn, 0, len(targetList))

	for _, item := range targetList {
		rtNode, ok := item.GetNode().(*pgq.Node_ResTarget)
		if !ok {
			return nil, &relscope.UnsupportedConstructError{Reason: "unexpected SELECT target node"}
		}
		rt := rtNode.ResTarget

		if len(rt.GetIndirection()) > 0 {
			return nil, &relscope.UnsupportedConstructError{
				Reason: "indirection on a SELECT target is not supported",
			}
		}

		var alias *string
		if name := rt.GetName(); name != "" {
			alias = &name
		}

		rc, err := analyzeResultColumn(ctx, rt.GetVal(), alias)
		if err != nil {
			return nil, err
		}
		resultColumns = append(resultColumns, rc)
	}

	return resultColumns, nil
}
