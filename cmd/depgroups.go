package cmd

import (
	"github.com/spf13/cobra"

	"github.com/netsynth/netsynth/search"
)

var depGroupsOutput string

var depGroupsCmd = &cobra.Command{
	Use:   "dep-groups [scenario.yaml]",
	Short: "Run the composite strategy with dependency-group discovery",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStrategy("trta", depGroupsOutput, args, func(rc runConfig) (strategyRun, error) {
			sc, err := rc.build()
			if err != nil {
				return strategyRun{}, err
			}
			st, err := search.NewTRTA(sc.Net, sc.Modifiers(), sc.Evaluator(), strategyOpts(rc)...)
			if err != nil {
				return strategyRun{}, err
			}
			return strategyRun{strategy: st}, nil
		})
	},
}

func init() {
	depGroupsCmd.Flags().StringVarP(&depGroupsOutput, "output", "o", "", "Write the JSON result here instead of stdout")
	rootCmd.AddCommand(depGroupsCmd)
}
