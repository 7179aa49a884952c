package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "fixture YAML file or directory of fixtures")
	transcriptPath := flag.String("transcript", "", "raw .sse transcript to replay without expectations")
	jsonOut := flag.Bool("json", false, "print the transcript result as JSON")
	flag.Parse()

	if (*fixturePath == "") == (*transcriptPath == "") {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.yaml|dir")
		fmt.Fprintln(os.Stderr, "       replay --transcript path/to/brief.sse [--json]")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runTranscriptMode(*transcriptPath, *jsonOut)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func fixtureFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		m, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, m...)
	}
	sort.Strings(files)
	return files, nil
}

func runFixtureMode(path string) int {
	files, err := fixtureFiles(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list fixtures: %v\n", err)
		return 2
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "no fixtures in %s\n", path)
		return 2
	}

	fmt.Printf("%-32s| %-8s| %-7s| %-7s| %s\n", "Fixture", "Percent", "Level", "Overall", "Match")
	fmt.Printf("%-32s+%-9s+%-8s+%-8s+%s\n",
		"--------------------------------", "---------", "--------", "--------", "------")

	failed := 0
	var report []string
	for _, file := range files {
		f, err := replay.LoadFixture(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
			return 2
		}
		res, mismatches := replay.RunFixture(f, replay.Options{})

		overall := "—"
		if res.Scored {
			overall = fmt.Sprintf("%d", res.Assessment.OverallScore)
		}
		match := "OK"
		if len(mismatches) > 0 {
			match = "DIFF"
			failed++
			for _, m := range mismatches {
				report = append(report, fmt.Sprintf("  %s: %s", filepath.Base(file), m))
			}
		}
		fmt.Printf("%-32s| %7d%%| %-7s| %-7s| %s\n",
			filepath.Base(file), res.Final().Percent, res.ThreatLevel, overall, match)
	}

	if len(report) > 0 {
		fmt.Println("\nMismatches:")
		for _, line := range report {
			fmt.Println(line)
		}
	}
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", len(files), len(files)-failed, failed)

	if failed > 0 {
		return 1
	}
	return 0
}

// #endregion fixture-mode

// #region transcript-mode

type transcriptOutput struct {
	Partial         bool     `json:"partial"`
	Empty           bool     `json:"empty"`
	Error           string   `json:"error,omitempty"`
	Percents        []int    `json:"percents"`
	Labels          []string `json:"labels"`
	ToolInvocations int      `json:"tool_invocations"`
	Chars           int      `json:"chars"`
	Skipped         int      `json:"skipped"`
	ThreatLevel     string   `json:"threat_level"`
	Scored          bool     `json:"scored"`
	OverallScore    int      `json:"overall_score,omitempty"`
	Tier            string   `json:"tier,omitempty"`
}

func runTranscriptMode(path string, jsonOut bool) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open transcript: %v\n", err)
		return 2
	}
	defer f.Close()

	res := replay.Run(f, replay.Options{})
	out := transcriptOutput{
		Partial:         res.Partial,
		Empty:           res.Empty,
		Percents:        res.Percents(),
		Labels:          res.Labels(),
		ToolInvocations: res.State.ToolInvocations,
		Chars:           res.State.Chars,
		Skipped:         res.Skipped,
		ThreatLevel:     res.ThreatLevel.String(),
		Scored:          res.Scored,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	if res.Scored {
		out.OverallScore = res.Assessment.OverallScore
		out.Tier = res.Assessment.Tier.String()
	}

	if jsonOut {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal json: %v\n", err)
			return 2
		}
		fmt.Println(string(data))
	} else {
		for _, s := range res.Snapshots {
			fmt.Printf("[%3d%%] %s\n", s.Percent, s.Label)
		}
		fmt.Printf("\nTools: %d  Chars: %d  Skipped frames: %d\n", out.ToolInvocations, out.Chars, out.Skipped)
		fmt.Printf("Headline level: %s\n", out.ThreatLevel)
		if out.Scored {
			fmt.Printf("Overall: %d (%s)\n", out.OverallScore, out.Tier)
		} else {
			fmt.Println("Overall: not scored")
		}
		if out.Error != "" {
			fmt.Printf("Error: %s\n", out.Error)
		}
	}

	if res.Partial {
		return 1
	}
	return 0
}

// #endregion transcript-mode
