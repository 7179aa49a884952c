package replay

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

// #region fixture-tests

// TestFixtures replays every recorded transcript under testdata and checks
// it against its pinned expectations. Drift in the decoder, the progress
// curve or the aggregation constants shows up here.
func TestFixtures(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("no fixtures found")
	}
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			f, err := LoadFixture(path)
			if err != nil {
				t.Fatalf("LoadFixture: %v", err)
			}
			_, mismatches := RunFixture(f, Options{})
			for _, m := range mismatches {
				t.Errorf("%s", m)
			}
		})
	}
}

func TestFromResult_RoundTripsThroughCheck(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "search_then_brief.yaml"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	res := Run(strings.NewReader(f.Transcript), Options{BaseScores: f.BaseScores})

	pinned := FromResult("pinned", f.Transcript, f.BaseScores, res)
	data, err := pinned.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := ParseFixture(data)
	if err != nil {
		t.Fatalf("ParseFixture: %v", err)
	}
	_, mismatches := RunFixture(back, Options{})
	if len(mismatches) != 0 {
		t.Fatalf("pinned fixture does not reproduce: %v", mismatches)
	}
}

// TestLoadFixture_NotFound verifies error on missing file.
func TestLoadFixture_NotFound(t *testing.T) {
	_, err := LoadFixture("testdata/nonexistent.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

// TestLoadFixture_Malformed verifies error on invalid YAML and on a fixture
// without a transcript.
func TestLoadFixture_Malformed(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"bad.yaml":   "transcript: [unclosed",
		"empty.yaml": "description: nothing here\n",
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatalf("write temp file: %v", err)
		}
		if _, err := LoadFixture(path); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

// #endregion fixture-tests

// #region check-tests

func TestCheck_ReportsEveryDifference(t *testing.T) {
	overall := 40
	want := Expected{
		Partial:      true,
		Percents:     []int{5, 100},
		ThreatLevel:  "RED",
		Scored:       true,
		OverallScore: &overall,
	}
	res := Run(strings.NewReader(`data: {"type":"message_stop"}`+"\n"), Options{})

	got := map[string]bool{}
	for _, m := range Check(want, res) {
		got[m.Field] = true
	}
	for _, field := range []string{"partial", "threat_level", "scored", "overall_score", "empty"} {
		if !got[field] {
			t.Errorf("expected a %s mismatch", field)
		}
	}
	if got["percents"] {
		t.Error("percents should match")
	}
}

func TestRun_CustomEngine(t *testing.T) {
	cfg := threat.DefaultConfig()
	cfg.Amplifier = nil
	engine, err := threat.NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	f, err := LoadFixture(filepath.Join("testdata", "search_then_brief.yaml"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	res := Run(strings.NewReader(f.Transcript), Options{Engine: engine})
	if res.Assessment.OverallScore != 50 {
		t.Fatalf("expected unamplified 50, got %d", res.Assessment.OverallScore)
	}
}

// #endregion check-tests
