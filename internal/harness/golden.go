package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/dataservice/internal/ir"
)

// Snapshot captures every step output of a scenario execution.
type Snapshot struct {
	ScenarioName string
	Outputs      []StepOutput
}

// ToIR converts the snapshot for canonical JSON serialization.
func (s *Snapshot) ToIR() ir.IRObject {
	steps := make(ir.IRArray, len(s.Outputs))
	for i, out := range s.Outputs {
		steps[i] = out.toIR()
	}
	return ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"steps":         steps,
	}
}

// MarshalSnapshot renders a result as the canonical JSON stored in golden
// files.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snapshot := Snapshot{ScenarioName: name, Outputs: result.Outputs}
	return ir.MarshalCanonical(snapshot.ToIR())
}

// RunWithGolden executes a scenario and compares its step outputs against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario could not be set up. A snapshot mismatch
// fails the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...RunOption) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
