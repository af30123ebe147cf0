package cmd

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netsynth/netsynth/examplenet"
)

// ScenarioConfig is the optional YAML file accepted as the positional
// argument: it overrides the command-line scenario selection and carries
// the per-run knobs offline analysis wants pinned in a file.
type ScenarioConfig struct {
	Scenario    string `yaml:"scenario"`
	Repetitions int    `yaml:"repetitions"`
	Iterations  int    `yaml:"iterations"`
	Seed        int64  `yaml:"seed"`
	// TimeBudget is a Go duration string, e.g. "30s" or "2m".
	TimeBudget string `yaml:"time_budget"`
	Workers    int    `yaml:"workers"`
}

// LoadScenarioConfig reads a YAML scenario file.
func LoadScenarioConfig(path string) (*ScenarioConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario config: %w", err)
	}
	var cfg ScenarioConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing scenario config %s: %w", path, err)
	}
	return &cfg, nil
}

// runConfig is the resolved set of knobs a subcommand runs with: CLI flags,
// overridden by the YAML file when one is given.
type runConfig struct {
	Scenario   string
	Reps       int
	Iterations int
	Seed       int64
	TimeBudget time.Duration
	Workers    int
}

func resolveRun(args []string) (runConfig, error) {
	rc := runConfig{
		Scenario:   scenarioName,
		Reps:       5,
		Iterations: iterations,
		Seed:       seed,
		Workers:    numThreads,
	}
	if len(args) > 0 {
		cfg, err := LoadScenarioConfig(args[0])
		if err != nil {
			return runConfig{}, err
		}
		if cfg.Scenario != "" {
			rc.Scenario = cfg.Scenario
		}
		if cfg.Repetitions > 0 {
			rc.Reps = cfg.Repetitions
		}
		if cfg.Iterations > 0 {
			rc.Iterations = cfg.Iterations
		}
		if cfg.Seed != 0 {
			rc.Seed = cfg.Seed
		}
		if cfg.TimeBudget != "" {
			d, err := time.ParseDuration(cfg.TimeBudget)
			if err != nil {
				return runConfig{}, fmt.Errorf("parsing time_budget: %w", err)
			}
			rc.TimeBudget = d
		}
		if cfg.Workers > 0 {
			rc.Workers = cfg.Workers
		}
	}
	return rc, nil
}

// build instantiates the named scenario.
func (rc runConfig) build() (*examplenet.Scenario, error) {
	switch rc.Scenario {
	case "simple":
		return examplenet.SimpleNet()
	case "chain":
		return examplenet.Chain(rc.Reps)
	case "carousel":
		return examplenet.Carousel()
	case "firewall":
		return examplenet.Firewall(true)
	case "firewall-plain":
		return examplenet.Firewall(false)
	case "twin":
		return examplenet.TwinEgress(false)
	case "twin-damped":
		return examplenet.TwinEgress(true)
	default:
		return nil, fmt.Errorf("unknown scenario %q", rc.Scenario)
	}
}
