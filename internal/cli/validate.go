package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/competitiveedge/engine/internal/usecase"
)

func newValidateCmd(a *app) *cobra.Command {
	var (
		schema schemaFlags
		record string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a schema and optionally a record against it",
		Example: `  edgectl validate --schema heater.yaml
  edgectl validate --template "Space Heater" --record lasko.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.load(a)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if ok, errs := usecase.ValidateSchema(s); !ok {
				fmt.Fprintln(out, "schema: invalid")
				for _, e := range errs {
					fmt.Fprintf(out, "  - %s\n", e)
				}
				return &errValidation{errs: errs}
			}
			fmt.Fprintln(out, "schema: valid")

			if record == "" {
				return nil
			}
			r, err := loadRecord(record)
			if err != nil {
				return err
			}
			if ok, errs := usecase.ValidateData(r, s); !ok {
				fmt.Fprintln(out, "record: invalid")
				for _, e := range errs {
					fmt.Fprintf(out, "  - %s\n", e)
				}
				return &errValidation{errs: errs}
			}
			fmt.Fprintln(out, "record: valid")
			return nil
		},
	}

	schema.register(cmd)
	cmd.Flags().StringVarP(&record, "record", "r", "", "record file to validate")
	return cmd
}
