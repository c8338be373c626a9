// SPDX-License-Identifier: Apache-2.0

package sql2rel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seancolsen/query-lens/pkg/relation"
	"github.com/seancolsen/query-lens/pkg/relscope"
	"github.com/seancolsen/query-lens/pkg/sql2rel"
	"github.com/seancolsen/query-lens/pkg/structure"
)

func tableWithColumns(name string, oid int, pk string, cols ...string) *structure.Table {
	columns := make(map[string]*structure.Column, len(cols))
	for i, c := range cols {
		columns[c] = &structure.Column{Name: c, Attnum: i + 1, Type: "text"}
	}
	var lookups []structure.LookupColumnSet
	if pk != "" {
		lookups = []structure.LookupColumnSet{{ColumnNames: []string{pk}}}
	}
	return &structure.Table{Name: name, OID: oid, Columns: columns, LookupColumnSets: lookups}
}

func singleTableStructure(t *testing.T) *structure.DatabaseStructure {
	t.Helper()
	issues := tableWithColumns("issues", 1, "id", "id", "title")
	schema := &structure.Schema{Name: "public", OID: 2200, Tables: map[string]*structure.Table{"issues": issues}}
	ds, err := structure.New(map[string]*structure.Schema{"public": schema}, "public")
	require.NoError(t, err)
	return ds
}

func twoTableJoinStructure(t *testing.T) *structure.DatabaseStructure {
	t.Helper()
	a := tableWithColumns("a", 1, "id", "id", "x")
	b := tableWithColumns("b", 2, "id", "id", "y")
	schema := &structure.Schema{Name: "public", OID: 2200, Tables: map[string]*structure.Table{"a": a, "b": b}}
	ds, err := structure.New(map[string]*structure.Schema{"public": schema}, "public")
	require.NoError(t, err)
	return ds
}

func TestAnalyzeConstantOnly(t *testing.T) {
	t.Parallel()

	ds := singleTableStructure(t)
	result, err := sql2rel.Analyze("SELECT 1", ds)
	require.NoError(t, err)

	require.Len(t, result.ResultColumns, 1)
	assert.Equal(t, relation.ConstantValue{Type: "unknown"}, result.ResultColumns[0].Definition)
	assert.Nil(t, result.ResultColumns[0].Name)
	assert.Empty(t, result.PkMappings)
}

func TestAnalyzeBareTableColumns(t *testing.T) {
	t.Parallel()

	ds := singleTableStructure(t)
	result, err := sql2rel.Analyze("SELECT id, title FROM issues", ds)
	require.NoError(t, err)

	require.Len(t, result.ResultColumns, 2)
	for _, rc := range result.ResultColumns {
		_, ok := rc.Definition.(relation.DataReference)
		assert.True(t, ok)
	}

	require.Len(t, result.PkMappings, 1)
	assert.Equal(t, []string{"id"}, result.PkMappings[0].PkColumns)
	assert.Equal(t, []string{"title"}, result.PkMappings[0].DataColumns)
}

func TestAnalyzeAliasPropagation(t *testing.T) {
	t.Parallel()

	ds := singleTableStructure(t)
	result, err := sql2rel.Analyze("SELECT id AS key, title FROM issues", ds)
	require.NoError(t, err)

	require.Len(t, result.ResultColumns, 2)
	require.NotNil(t, result.ResultColumns[0].Name)
	assert.Equal(t, "key", *result.ResultColumns[0].Name)

	require.Len(t, result.PkMappings, 1)
	assert.Equal(t, []string{"key"}, result.PkMappings[0].PkColumns)
	assert.Equal(t, []string{"title"}, result.PkMappings[0].DataColumns)
}

func TestAnalyzeUnresolvableColumnSoft(t *testing.T) {
	t.Parallel()

	ds := singleTableStructure(t)
	result, err := sql2rel.Analyze("SELECT nonexistent FROM issues", ds)
	require.NoError(t, err)

	require.Len(t, result.ResultColumns, 1)
	unk, ok := result.ResultColumns[0].Definition.(relation.UnknownExpression)
	require.True(t, ok)
	require.NotNil(t, unk.Reason)
	assert.Equal(t, "Unable to resolve column.", *unk.Reason)
	assert.Equal(t, "nonexistent", *result.ResultColumns[0].Name)

	assert.Empty(t, result.PkMappings)
}

func TestAnalyzeQualifiedReference(t *testing.T) {
	t.Parallel()

	ds := singleTableStructure(t)
	result, err := sql2rel.Analyze("SELECT i.id FROM issues AS i", ds)
	require.NoError(t, err)

	require.Len(t, result.ResultColumns, 1)
	dr, ok := result.ResultColumns[0].Definition.(relation.DataReference)
	require.True(t, ok)
	require.NotNil(t, dr.LocalSource)
	assert.Equal(t, "i", dr.LocalSource.Relation.Name)
	assert.Nil(t, dr.LocalSource.Relation.SchemaName)
	assert.Equal(t, "issues", dr.UltimateSource.TableReference.Name)

	require.Len(t, result.PkMappings, 1)
	assert.Equal(t, []string{"id"}, result.PkMappings[0].PkColumns)
	assert.Equal(t, []string{}, result.PkMappings[0].DataColumns)
}

func TestAnalyzeUnsupportedStatement(t *testing.T) {
	t.Parallel()

	ds := singleTableStructure(t)
	_, err := sql2rel.Analyze("INSERT INTO issues VALUES (1, 'x')", ds)
	require.Error(t, err)
	var unsupported *sql2rel.UnsupportedStatementError
	assert.ErrorAs(t, err, &unsupported)
}

func TestAnalyzeJoinKeyNotProjected(t *testing.T) {
	t.Parallel()

	ds := twoTableJoinStructure(t)
	result, err := sql2rel.Analyze("SELECT a.x, b.y FROM a JOIN b ON a.id = b.id", ds)
	require.NoError(t, err)

	require.Len(t, result.ResultColumns, 2)
	for _, rc := range result.ResultColumns {
		_, ok := rc.Definition.(relation.DataReference)
		assert.True(t, ok)
	}
	assert.Empty(t, result.PkMappings)
}

func TestAnalyzeNaturalJoinRejected(t *testing.T) {
	t.Parallel()

	ds := twoTableJoinStructure(t)
	_, err := sql2rel.Analyze("SELECT a.x FROM a NATURAL JOIN b", ds)
	require.Error(t, err)
	var unsupported *relscope.UnsupportedConstructError
	assert.ErrorAs(t, err, &unsupported)
}

func TestAnalyzeUsingJoinRejected(t *testing.T) {
	t.Parallel()

	ds := twoTableJoinStructure(t)
	_, err := sql2rel.Analyze("SELECT a.x FROM a JOIN b USING (id)", ds)
	require.Error(t, err)
	var unsupported *relscope.UnsupportedConstructError
	assert.ErrorAs(t, err, &unsupported)
}

func TestAnalyzeInvalidSQL(t *testing.T) {
	t.Parallel()

	ds := singleTableStructure(t)
	_, err := sql2rel.Analyze("SELEKT 1", ds)
	require.Error(t, err)
	var invalid *sql2rel.InvalidQueryError
	assert.ErrorAs(t, err, &invalid)
}

func TestAnalyzeRejectsMultipleStatements(t *testing.T) {
	t.Parallel()

	ds := singleTableStructure(t)
	_, err := sql2rel.Analyze("SELECT 1; SELECT 2", ds)
	require.Error(t, err)
	var unsupported *sql2rel.UnsupportedStatementError
	assert.ErrorAs(t, err, &unsupported)
}

func TestAnalyzeRejectsSetOperations(t *testing.T) {
	t.Parallel()

	ds := singleTableStructure(t)
	_, err := sql2rel.Analyze("SELECT id FROM issues UNION SELECT id FROM issues", ds)
	require.Error(t, err)
	var unsupported *relscope.UnsupportedConstructError
	assert.ErrorAs(t, err, &unsupported)
}

func TestAnalyzeRejectsIndirection(t *testing.T) {
	t.Parallel()

	ds := singleTableStructure(t)
	_, err := sql2rel.Analyze("SELECT (SELECT 1).x FROM issues", ds)
	require.Error(t, err)
}

func TestAnalyzeConfigurationError(t *testing.T) {
	t.Parallel()

	ds := &structure.DatabaseStructure{
		Schemas:       map[string]*structure.Schema{"public": {Name: "public"}},
		CurrentSchema: "missing",
	}
	_, err := sql2rel.Analyze("SELECT 1", ds)
	require.Error(t, err)
	var notFound *structure.CurrentSchemaNotFoundError
	assert.ErrorAs(t, err, &notFound)
}
