package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/competitiveedge/engine/internal/usecase"
)

func newScoreCmd(a *app) *cobra.Command {
	var (
		schema        schemaFlags
		user          string
		candidate     string
		userName      string
		candidateName string
		threshold     float64
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score how likely a candidate is the user's product",
		Long: `Score blends spec similarity with name similarity. edgectl runs without
an embedding model, so name similarity is neutral (0.5).`,
		Example: `  edgectl score --template Dehumidifier --user mine.json --candidate found.json \
    --user-name "Frigidaire 50 Pint" --candidate-name "Frigidaire FFAD5033W1"`,
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
			c, err := loadRecord(candidate)
			if err != nil {
				return err
			}
			if userName == "" {
				userName = u.Name()
			}
			if candidateName == "" {
				candidateName = c.Name()
			}

			matcher := usecase.NewMatchingService(nil, nil, usecase.MatchConfig{MinConfidenceThreshold: threshold}, a.logger)
			score := matcher.Score(context.Background(), userName, u, candidateName, c, s)

			return printJSON(cmd.OutOrStdout(), map[string]any{
				"score":           score,
				"below_threshold": score.ConfidenceScore < matcher.MinConfidenceThreshold(),
			})
		},
	}

	schema.register(cmd)
	cmd.Flags().StringVarP(&user, "user", "u", "", "user's record file")
	cmd.Flags().StringVarP(&candidate, "candidate", "c", "", "candidate record file")
	cmd.Flags().StringVar(&userName, "user-name", "", "user's product name (defaults to the record's name)")
	cmd.Flags().StringVar(&candidateName, "candidate-name", "", "candidate product name (defaults to the record's name)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.5, "minimum confidence")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("candidate")
	return cmd
}
