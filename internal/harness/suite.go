package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario directory or file
// does not exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist", e.Path)
}

// SuiteResult summarizes a run over many scenario files.
type SuiteResult struct {
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Runs     []ScenarioRun `json:"scenarios"`
	Failures []Failure     `json:"failures,omitempty"`
}

// ScenarioRun is the outcome of one scenario file.
type ScenarioRun struct {
	Path     string   `json:"path"`
	Name     string   `json:"name"`
	Pass     bool     `json:"pass"`
	Errors   []string `json:"errors,omitempty"`
	Snapshot []byte   `json:"-"` // canonical step outputs, nil if the run failed to start
}

// Failure represents a failed scenario.
type Failure struct {
	ScenarioPath string `json:"scenario_path"`
	Error        string `json:"error"`
}

// FindScenarioFiles returns the .yaml and .yml files under dir, in lexical
// order. A non-empty filter is a glob matched against the file name
// without its extension.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, &ScenarioNotFoundError{Path: dir}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

// RunSuite loads and runs each scenario file.
//
// For each file:
//  1. Load and validate the scenario
//  2. Run it with opts
//  3. Record pass/fail and the canonical snapshot
func RunSuite(paths []string, opts ...RunOption) *SuiteResult {
	suite := &SuiteResult{Runs: make([]ScenarioRun, 0, len(paths))}

	for _, path := range paths {
		run := runFile(path, opts)
		suite.Total++
		suite.Runs = append(suite.Runs, run)
		if run.Pass {
			suite.Passed++
			continue
		}
		suite.Failed++
		suite.Failures = append(suite.Failures, Failure{
			ScenarioPath: path,
			Error:        strings.Join(run.Errors, "; "),
		})
	}

	return suite
}

func runFile(path string, opts []RunOption) ScenarioRun {
	run := ScenarioRun{Path: path, Name: filepath.Base(path)}

	scenario, err := LoadScenario(path)
	if err != nil {
		run.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return run
	}
	run.Name = scenario.Name

	result, err := Run(scenario, opts...)
	if err != nil {
		run.Errors = []string{fmt.Sprintf("scenario execution failed: %v", err)}
		return run
	}

	run.Snapshot, err = MarshalSnapshot(scenario.Name, result)
	if err != nil {
		run.Errors = []string{fmt.Sprintf("failed to marshal snapshot: %v", err)}
		return run
	}

	run.Pass = result.Pass
	run.Errors = result.Errors
	return run
}
