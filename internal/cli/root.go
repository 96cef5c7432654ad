// Package cli provides the edgectl command-line interface.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/competitiveedge/engine/config"
	"github.com/competitiveedge/engine/internal/domain"
	"github.com/competitiveedge/engine/internal/templates"
)

// Version is set at build time.
var Version = "0.1.0"

// app carries state shared by every command
type app struct {
	verbose  bool
	logger   *slog.Logger
	registry *templates.Registry
}

// NewRootCmd builds the edgectl command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "edgectl",
		Short: "Validate, normalize and compare product records",
		Long: `edgectl runs the competitive edge engine over local JSON or YAML files.

Schemas come from a file (--schema) or a built-in template (--template).
Records are JSON or YAML objects keyed by field name.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = config.SetupLoggerWithWriters(cmd.ErrOrStderr(), io.Discard, level)

			registry, err := templates.NewRegistry(a.logger)
			if err != nil {
				return fmt.Errorf("load templates: %w", err)
			}
			a.registry = registry
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newValidateCmd(a),
		newNormalizeCmd(a),
		newCompareCmd(a),
		newScoreCmd(a),
		newSummaryCmd(a),
		newTemplatesCmd(a),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// schemaFlags are shared by commands that need a schema
type schemaFlags struct {
	file     string
	template string
}

func (f *schemaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "schema", "s", "", "schema file (JSON or YAML)")
	cmd.Flags().StringVarP(&f.template, "template", "t", "", "built-in or saved template id or name")
	cmd.MarkFlagsMutuallyExclusive("schema", "template")
	cmd.MarkFlagsOneRequired("schema", "template")
}

func (f *schemaFlags) load(a *app) (*domain.ProductSchema, error) {
	if f.template != "" {
		tmpl, err := a.registry.Get(f.template)
		if err != nil {
			return nil, err
		}
		return &tmpl.Schema, nil
	}

	var schema domain.ProductSchema
	if err := loadFile(f.file, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

// loadFile decodes a JSON or YAML file into v, chosen by extension
func loadFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return nil
}

func loadRecord(path string) (domain.Record, error) {
	var record domain.Record
	if err := loadFile(path, &record); err != nil {
		return nil, err
	}
	if record == nil {
		record = domain.Record{}
	}
	return record, nil
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// errValidation marks a command that ran but found invalid input
type errValidation struct {
	errs []string
}

func (e *errValidation) Error() string {
	return fmt.Sprintf("%d validation error(s)", len(e.errs))
}

// IsValidationError reports whether err means the input was checked and
// rejected; the details have already been printed.
func IsValidationError(err error) bool {
	var ve *errValidation
	return errors.As(err, &ve)
}
