// SPDX-License-Identifier: Apache-2.0

// Package cmd implements the querylens command-line front end: trivial
// glue over pkg/sql2rel that reads a database structure file and a SQL
// query, runs the analyzer, and writes the result as JSON.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seancolsen/query-lens/pkg/sql2rel"
	"github.com/seancolsen/query-lens/pkg/structure"
)

func init() {
	viper.SetEnvPrefix("QUERYLENS")
	viper.AutomaticEnv()

	rootCmd.Flags().StringP("structure", "s", "", "Path to the database structure JSON or YAML file (required)")
	rootCmd.Flags().StringP("query", "q", "", "The SQL query to analyze; read from stdin if omitted")

	viper.BindPFlag("STRUCTURE_PATH", rootCmd.Flags().Lookup("structure"))
	viper.BindPFlag("QUERY", rootCmd.Flags().Lookup("query"))
}

var rootCmd = &cobra.Command{
	Use:          "querylens",
	Short:        "Static semantic analysis of a single PostgreSQL SELECT statement",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runAnalyze,
}

// Execute runs the querylens CLI.
func Execute() error {
	return rootCmd.Execute()
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	requestID := uuid.New()

	structurePath := viper.GetString("STRUCTURE_PATH")
	if structurePath == "" {
		return &MissingFlagError{Flag: "structure"}
	}

	ds, err := structure.LoadFile(structurePath)
	if err != nil {
		pterm.Error.Printfln("[%s] loading database structure: %s", requestID, err)
		return err
	}

	sql, err := resolveQuery(viper.GetString("QUERY"), cmd.InOrStdin())
	if err != nil {
		pterm.Error.Printfln("[%s] reading query: %s", requestID, err)
		return err
	}

	result, err := sql2rel.Analyze(sql, ds)
	if err != nil {
		pterm.Error.Printfln("[%s] analyzing query: %s", requestID, err)
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode analysis result: %w", err)
	}

	return nil
}

// resolveQuery returns query if non-empty, otherwise reads SQL from stdin.
func resolveQuery(query string, stdin io.Reader) (string, error) {
	if query != "" {
		return query, nil
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read SQL from stdin: %w", err)
	}
	return string(raw), nil
}

// MissingFlagError reports that a required CLI flag was not supplied.
type MissingFlagError struct {
	Flag string
}

func (e *MissingFlagError) Error() string {
	return fmt.Sprintf("required flag %q not set", e.Flag)
}
