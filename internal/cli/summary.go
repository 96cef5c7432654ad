package cli

import (
	"github.com/spf13/cobra"

	"github.com/competitiveedge/engine/internal/domain"
	"github.com/competitiveedge/engine/internal/usecase"
)

func newSummaryCmd(a *app) *cobra.Command {
	var (
		comparisons string
		history     string
	)

	cmd := &cobra.Command{
		Use:     "summary",
		Short:   "Aggregate listing comparisons and price history into dashboard alerts",
		Example: `  edgectl summary --comparisons listings.json --history prices.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var lcs []domain.ListingComparison
			if err := loadFile(comparisons, &lcs); err != nil {
				return err
			}
			var entries []domain.PriceHistoryEntry
			if history != "" {
				if err := loadFile(history, &entries); err != nil {
					return err
				}
			}

			summary := usecase.NewAlertAggregator(a.logger).Aggregate(lcs, entries)
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringVar(&comparisons, "comparisons", "", "JSON file of listing comparisons")
	cmd.Flags().StringVar(&history, "history", "", "JSON file of price history entries")
	cmd.MarkFlagRequired("comparisons")
	return cmd
}
