// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveQueryPrefersExplicitFlag(t *testing.T) {
	t.Parallel()

	sql, err := resolveQuery("SELECT 1", strings.NewReader("SELECT 2"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", sql)
}

func TestResolveQueryFallsBackToStdin(t *testing.T) {
	t.Parallel()

	sql, err := resolveQuery("", strings.NewReader("SELECT 2"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", sql)
}

func TestMissingFlagError(t *testing.T) {
	t.Parallel()

	err := &MissingFlagError{Flag: "structure"}
	assert.Equal(t, `required flag "structure" not set`, err.Error())
}
