package cmd

import (
	"math/rand"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/netsynth/netsynth/config"
)

var probabilityOutput string

var probabilityCmd = &cobra.Command{
	Use:   "probability [scenario.yaml]",
	Short: "Estimate how likely naive ordering heuristics keep the policy intact",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := resolveRun(args)
		if err != nil {
			return err
		}
		sc, err := rc.build()
		if err != nil {
			return err
		}
		mods := sc.Modifiers()

		rng := rand.New(rand.NewSource(rc.Seed))
		result := SeverityResult{
			Scenario: rc.Scenario,
			RandomPermutations: sampleSeverity(sc, mods, rc.Iterations, func() []config.Modifier {
				return shuffled(mods, rng)
			}),
			RandomRouterOrder: sampleSeverity(sc, mods, rc.Iterations, func() []config.Modifier {
				return routerOrder(mods, rng)
			}),
			InsertBeforeOrder: sampleSeverity(sc, mods, rc.Iterations, func() []config.Modifier {
				return insertBefore(mods, rng)
			}),
		}

		logrus.WithFields(logrus.Fields{
			"scenario":       rc.Scenario,
			"random_success": result.RandomPermutations.SuccessCount,
			"ibr_success":    result.InsertBeforeOrder.SuccessCount,
		}).Info("probability analysis complete")
		return writeJSON(probabilityOutput, result)
	},
}

func init() {
	probabilityCmd.Flags().StringVarP(&probabilityOutput, "output", "o", "", "Write the JSON result here instead of stdout")
	rootCmd.AddCommand(probabilityCmd)
}
