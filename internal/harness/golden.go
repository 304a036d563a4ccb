package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/causetrail/internal/codec"
)

// Snapshot renders a result as canonical JSON: every run with its full
// cause chain, in scheduling order. Identical chains always produce
// identical bytes.
func Snapshot(name string, result *Result) ([]byte, error) {
	runs := make([]any, len(result.Runs))
	for i, r := range result.Runs {
		causes, err := codec.CanonicalValue(r.chain)
		if err != nil {
			return nil, err
		}
		m := map[string]any{
			"project": r.Project,
			"number":  r.Number,
			"seq":     r.Seq,
			"causes":  causes,
		}
		if r.Alias != "" {
			m["alias"] = r.Alias
		}
		runs[i] = m
	}
	return codec.MarshalCanonical(map[string]any{
		"scenario": name,
		"runs":     runs,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario fails to execute. A snapshot mismatch
// fails t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
