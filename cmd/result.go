package cmd

import (
	"encoding/json"
	"math"
	"os"
	"sort"
)

// CostStats summarizes a sample of migration costs.
type CostStats struct {
	Values []float64 `json:"values"`
	Mean   float64   `json:"mean"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Median float64   `json:"median"`
}

func newCostStats(values []float64) CostStats {
	s := CostStats{Values: values, Min: math.Inf(1), Max: math.Inf(-1)}
	if len(values) == 0 {
		s.Min, s.Max = 0, 0
		return s
	}
	sum := 0.0
	for _, v := range values {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = sum / float64(len(values))

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		s.Median = sorted[mid]
	} else {
		s.Median = (sorted[mid-1] + sorted[mid]) / 2
	}
	return s
}

// SampleOutcome counts how a batch of sampled orders fared. The fields are
// named without ambiguity on purpose: SuccessCount increments exactly when
// the sampled order kept the policy satisfied at every step.
type SampleOutcome struct {
	SuccessCount int       `json:"success"`
	FailureCount int       `json:"failed"`
	Cost         CostStats `json:"cost"`
}

// CostResult is the JSON document the cost subcommand persists.
type CostResult struct {
	Scenario           string        `json:"scenario"`
	IdealCost          float64       `json:"ideal_cost"`
	NumNodes           int           `json:"num_nodes"`
	NumEdges           int           `json:"num_edges"`
	NumCommands        int           `json:"num_commands"`
	Optimizer          SampleOutcome `json:"optimizer"`
	RandomPermutations SampleOutcome `json:"random_permutations"`
}

// SeveritySample is one ordering family's policy-violation profile: how
// many sampled orders succeeded, and how much violation the failures
// accumulated.
type SeveritySample struct {
	SuccessCount    int     `json:"success"`
	FailureCount    int     `json:"failed"`
	TotalSeverity   float64 `json:"total_severity"`
	PerStepSeverity float64 `json:"per_step_severity"`
}

// SeverityResult is the JSON document the probability subcommand persists.
type SeverityResult struct {
	Scenario           string         `json:"scenario"`
	RandomPermutations SeveritySample `json:"random_permutations"`
	RandomRouterOrder  SeveritySample `json:"random_router_order"`
	InsertBeforeOrder  SeveritySample `json:"insert_before_order"`
}

// writeJSON persists a result document, pretty-printed, to path, or to
// stdout when path is empty.
func writeJSON(path string, doc interface{}) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	if path == "" {
		_, err = os.Stdout.Write(raw)
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
