package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/undoredo/internal/canonical"
)

// TraceSnapshot is the golden-file form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// TraceJSON returns the canonical JSON of a run's trace. Identical runs
// produce identical bytes.
func TraceJSON(scenarioName string, result *Result) ([]byte, error) {
	return canonical.Marshal(TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	})
}

// TraceFingerprint is the domain-separated hash of TraceJSON.
func TraceFingerprint(scenarioName string, result *Result) (string, error) {
	return canonical.Fingerprint(canonical.DomainTrace, TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	})
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := TraceJSON(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
