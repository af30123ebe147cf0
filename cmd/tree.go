package cmd

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/search"
)

// StrategyResult is the JSON document the tree and dep-groups subcommands
// persist.
type StrategyResult struct {
	Scenario  string   `json:"scenario"`
	Strategy  string   `json:"strategy"`
	Success   bool     `json:"success"`
	Error     string   `json:"error,omitempty"`
	Sequence  []string `json:"sequence,omitempty"`
	NumStates int      `json:"num_states"`
}

var treeOutput string

var treeCmd = &cobra.Command{
	Use:   "tree [scenario.yaml]",
	Short: "Run the plain permutation-tree search on a scenario",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStrategy("tree", treeOutput, args, func(rc runConfig) (strategyRun, error) {
			sc, err := rc.build()
			if err != nil {
				return strategyRun{}, err
			}
			st, err := search.NewTree(sc.Net, sc.Modifiers(), sc.Evaluator(), strategyOpts(rc)...)
			if err != nil {
				return strategyRun{}, err
			}
			return strategyRun{strategy: st}, nil
		})
	},
}

type strategyRun struct {
	strategy search.Strategy
}

func strategyOpts(rc runConfig) []search.Option {
	var opts []search.Option
	if rc.TimeBudget > 0 {
		opts = append(opts, search.WithDeadline(time.Now().Add(rc.TimeBudget)))
	}
	return opts
}

// runStrategy executes a constructed strategy and persists the outcome.
// Recoverable synthesis failures (no safe ordering, timeouts) become part
// of the report; everything else propagates as a command error.
func runStrategy(name, output string, args []string, build func(runConfig) (strategyRun, error)) error {
	rc, err := resolveRun(args)
	if err != nil {
		return err
	}
	run, err := build(rc)
	if err != nil {
		return err
	}

	result := StrategyResult{Scenario: rc.Scenario, Strategy: name}
	seq, err := run.strategy.Work()
	result.NumStates = run.strategy.NumStates()
	switch {
	case err == nil:
		result.Success = true
		result.Sequence = describe(seq)
	case errors.Is(err, netid.ErrNoSafeOrdering),
		errors.Is(err, netid.ErrProbablyNoSafeOrdering),
		errors.Is(err, netid.ErrTimeout),
		errors.Is(err, netid.ErrReachedMaxBacktrack):
		result.Error = err.Error()
	default:
		return err
	}

	logrus.WithFields(logrus.Fields{
		"scenario": rc.Scenario,
		"strategy": name,
		"success":  result.Success,
		"states":   result.NumStates,
	}).Info("strategy run complete")
	return writeJSON(output, result)
}

func describe(mods []config.Modifier) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.String()
	}
	return out
}

func init() {
	treeCmd.Flags().StringVarP(&treeOutput, "output", "o", "", "Write the JSON result here instead of stdout")
	rootCmd.AddCommand(treeCmd)
}
