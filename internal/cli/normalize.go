package cli

import (
	"github.com/spf13/cobra"

	"github.com/competitiveedge/engine/internal/usecase"
)

func newNormalizeCmd(a *app) *cobra.Command {
	var (
		schema schemaFlags
		record string
	)

	cmd := &cobra.Command{
		Use:     "normalize",
		Short:   "Normalize a raw extracted record to schema types and units",
		Example: `  edgectl normalize --template Dehumidifier --record raw.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.load(a)
			if err != nil {
				return err
			}
			raw, err := loadRecord(record)
			if err != nil {
				return err
			}

			normalized, warnings := usecase.NewNormalizer(a.logger).Normalize(raw, s)
			valid, errs := usecase.ValidateData(normalized, s)

			return printJSON(cmd.OutOrStdout(), map[string]any{
				"record":   normalized,
				"valid":    valid,
				"warnings": orEmpty(warnings),
				"errors":   orEmpty(errs),
			})
		},
	}

	schema.register(cmd)
	cmd.Flags().StringVarP(&record, "record", "r", "", "raw record file")
	cmd.MarkFlagRequired("record")
	return cmd
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
