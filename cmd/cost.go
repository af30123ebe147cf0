package cmd

import (
	"errors"
	"math/rand"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/optimize"
	"github.com/netsynth/netsynth/softpolicy"
)

var costOutput string

var costCmd = &cobra.Command{
	Use:   "cost [scenario.yaml]",
	Short: "Compare the optimizer's migration cost against random orders",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := resolveRun(args)
		if err != nil {
			return err
		}

		result := CostResult{Scenario: rc.Scenario}
		var optCosts, randCosts []float64
		rng := rand.New(rand.NewSource(rc.Seed))

		for i := 0; i < numNetworks; i++ {
			sc, err := rc.build()
			if err != nil {
				return err
			}
			mods := sc.Modifiers()
			result.NumNodes = sc.Net.NumRouters()
			result.NumEdges = sc.Net.NumLinks()
			result.NumCommands = len(mods)

			g, err := optimize.NewGlobal(sc.Net, mods, sc.Evaluator(), softpolicy.NewMinimizeTrafficShift(sc.Prefixes))
			if err != nil {
				return err
			}
			_, cost, err := g.Work()
			switch {
			case err == nil:
				result.Optimizer.SuccessCount++
				optCosts = append(optCosts, cost)
				if i == 0 {
					result.IdealCost = cost
				}
			case errors.Is(err, netid.ErrNoSafeOrdering):
				result.Optimizer.FailureCount++
			default:
				return err
			}

			for j := 0; j < rc.Iterations; j++ {
				res := runOrder(sc, shuffled(mods, rng))
				if res.success {
					result.RandomPermutations.SuccessCount++
					randCosts = append(randCosts, res.cost)
				} else {
					result.RandomPermutations.FailureCount++
				}
			}
		}

		result.Optimizer.Cost = newCostStats(optCosts)
		result.RandomPermutations.Cost = newCostStats(randCosts)

		logrus.WithFields(logrus.Fields{
			"scenario":   rc.Scenario,
			"ideal_cost": result.IdealCost,
		}).Info("cost analysis complete")
		return writeJSON(costOutput, result)
	},
}

func init() {
	costCmd.Flags().StringVarP(&costOutput, "output", "o", "", "Write the JSON result here instead of stdout")
	rootCmd.AddCommand(costCmd)
}
