package cmd

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// HistogramBucket is one bar of the sampled-cost histogram.
type HistogramBucket struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// PlotResult is the JSON document the plot subcommand persists; rendering
// it (HTML or otherwise) is a concern of downstream tooling.
type PlotResult struct {
	Scenario string            `json:"scenario"`
	Samples  int               `json:"samples"`
	Failures int               `json:"failures"`
	Buckets  []HistogramBucket `json:"buckets"`
}

var (
	plotOutput  string
	plotBuckets int
)

var plotCmd = &cobra.Command{
	Use:   "plot [scenario.yaml]",
	Short: "Sample random-order migration costs into a histogram",
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

		var costs []float64
		failures := 0
		for i := 0; i < rc.Iterations; i++ {
			res := runOrder(sc, shuffled(mods, rng))
			if res.success {
				costs = append(costs, res.cost)
			} else {
				failures++
			}
		}

		result := PlotResult{
			Scenario: rc.Scenario,
			Samples:  rc.Iterations,
			Failures: failures,
			Buckets:  bucketize(costs, plotBuckets),
		}
		logrus.WithFields(logrus.Fields{
			"scenario": rc.Scenario,
			"samples":  rc.Iterations,
			"failures": failures,
		}).Info("plot sampling complete")
		return writeJSON(plotOutput, result)
	},
}

func bucketize(values []float64, n int) []HistogramBucket {
	if len(values) == 0 || n < 1 {
		return nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return []HistogramBucket{{Low: lo, High: hi, Count: len(values)}}
	}
	width := (hi - lo) / float64(n)
	buckets := make([]HistogramBucket, n)
	for i := range buckets {
		buckets[i] = HistogramBucket{Low: lo + float64(i)*width, High: lo + float64(i+1)*width}
	}
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= n {
			idx = n - 1
		}
		buckets[idx].Count++
	}
	return buckets
}

func init() {
	plotCmd.Flags().StringVarP(&plotOutput, "output", "o", "", "Write the JSON result here instead of stdout")
	plotCmd.Flags().IntVar(&plotBuckets, "buckets", 20, "Histogram bucket count")
	rootCmd.AddCommand(plotCmd)
}
