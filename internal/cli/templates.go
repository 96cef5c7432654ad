package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newTemplatesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List and show built-in product templates",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tFIELDS\tMETRICS")
			for _, t := range a.registry.List() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", t.ID, t.Name, len(t.Schema.Fields), len(t.Schema.Metrics))
			}
			return w.Flush()
		},
	}

	var output string
	show := &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show a template's schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.registry.Get(args[0])
			if err != nil {
				return err
			}
			switch output {
			case "json":
				return printJSON(cmd.OutOrStdout(), t)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(t); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown output format %q (want json or yaml)", output)
			}
		},
	}
	show.Flags().StringVarP(&output, "output", "o", "yaml", "output format: yaml or json")

	cmd.AddCommand(list, show)
	return cmd
}
