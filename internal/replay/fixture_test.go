package replay

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// #region fixture-tests

// runFixture loads a fixture from testdata and fails on every drifted case.
func runFixture(t *testing.T, name string) []Result {
	t.Helper()
	f, err := LoadFixture(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	results := Run(f, nil)
	if len(results) != len(f.Cases) {
		t.Fatalf("expected %d results, got %d", len(f.Cases), len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("%s: unexpected error %v", r.Name, r.Err)
		}
		for _, m := range r.Mismatches {
			t.Errorf("%s: %s", r.Name, m)
		}
	}
	return results
}

func TestFixture_Pairs(t *testing.T) {
	results := runFixture(t, "pairs.yaml")
	if results[0].Report.Passes != 2 {
		t.Errorf("expected 2 passes for %q, got %d", results[0].Input, results[0].Report.Passes)
	}
}

func TestFixture_Greetings(t *testing.T) {
	results := runFixture(t, "greetings.yaml")
	if results[1].Report.Revoked != 1 {
		t.Errorf("expected the ambiguous Name to be revoked, got %d revocations", results[1].Report.Revoked)
	}
}

func TestLoadFixture_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFixture(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	noCases := filepath.Join(dir, "nocases.yaml")
	os.WriteFile(noCases, []byte("grammar:\n  rules:\n    - concept: A\n      elements: [{any: true}]\n"), 0o644)
	if _, err := LoadFixture(noCases); err == nil || !strings.Contains(err.Error(), "no cases") {
		t.Errorf("expected no cases error, got %v", err)
	}

	badGrammar := filepath.Join(dir, "bad.yaml")
	os.WriteFile(badGrammar, []byte("grammar:\n  rules: []\ncases:\n  - input: a\n"), 0o644)
	if _, err := LoadFixture(badGrammar); err == nil {
		t.Error("expected grammar validation error")
	}
}

// #endregion fixture-tests
