package cli

import (
	"github.com/spf13/cobra"

	"github.com/competitiveedge/engine/internal/domain"
	"github.com/competitiveedge/engine/internal/usecase"
)

func newCompareCmd(a *app) *cobra.Command {
	var (
		schema     schemaFlags
		user       string
		competitor string
		normalize  bool
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the user's record with a competitor's",
		Example: `  edgectl compare --template "Space Heater" --user mine.json --competitor theirs.json
  edgectl compare --schema heater.yaml --user mine.yaml --competitor raw.json --normalize`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.load(a)
			if err != nil {
				return err
			}
			u, err := loadRecord(user)
			if err != nil {
				return err
			}
			c, err := loadRecord(competitor)
			if err != nil {
				return err
			}

			if normalize {
				n := usecase.NewNormalizer(a.logger)
				u, _ = n.Normalize(u, s)
				c, _ = n.Normalize(c, s)
			}

			result := usecase.NewComparator(a.logger).Compare(u, c, s)
			return printJSON(cmd.OutOrStdout(), formatMetrics(result, s))
		},
	}

	schema.register(cmd)
	cmd.Flags().StringVarP(&user, "user", "u", "", "user's record file")
	cmd.Flags().StringVarP(&competitor, "competitor", "c", "", "competitor's record file")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "normalize both records before comparing")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("competitor")
	return cmd
}

type displayComparison struct {
	*domain.ComparisonResult
	Display map[string]map[string]string `json:"display,omitempty"`
}

// formatMetrics adds display strings for metrics that declare a format
func formatMetrics(result *domain.ComparisonResult, schema *domain.ProductSchema) displayComparison {
	out := displayComparison{ComparisonResult: result}
	for _, m := range schema.Metrics {
		mc, ok := result.Metrics[m.Name]
		if !ok || m.Format == "" {
			continue
		}
		u, uok := mc.User.(float64)
		c, cok := mc.Competitor.(float64)
		if !uok || !cok {
			continue
		}
		if out.Display == nil {
			out.Display = make(map[string]map[string]string)
		}
		out.Display[m.Name] = map[string]string{
			"user":       usecase.FormatMetricValue(u, m.Format),
			"competitor": usecase.FormatMetricValue(c, m.Format),
		}
	}
	return out
}
