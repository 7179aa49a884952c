package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/intel"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/replay"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/store"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

// #region main

func main() {
	transcriptPath := flag.String("transcript", "", "raw .sse transcript to pin")
	dbPath := flag.String("db", "", "path to sentinel.db (brief mode, base scores)")
	briefID := flag.String("brief", "", "brief id whose saved transcript to pin")
	transcriptDir := flag.String("transcripts", "", "directory holding <brief-id>.sse transcripts")
	baseCountry := flag.String("base-country", "", "country whose stored scores the score block overlays")
	description := flag.String("description", "", "fixture description")
	outPath := flag.String("out", "", "output fixture YAML path")
	flag.Parse()

	if *outPath == "" || (*transcriptPath == "" && *briefID == "") {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --transcript path/to/brief.sse --out fixture.yaml [--db sentinel.db --base-country CC]")
		fmt.Fprintln(os.Stderr, "       fixture-export --db sentinel.db --brief id --transcripts dir --out fixture.yaml [--base-country CC]")
		os.Exit(2)
	}

	opts := exportOptions{
		transcript:  *transcriptPath,
		db:          *dbPath,
		brief:       *briefID,
		dir:         *transcriptDir,
		country:     strings.ToUpper(*baseCountry),
		description: *description,
		out:         *outPath,
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

type exportOptions struct {
	transcript  string
	db          string
	brief       string
	dir         string
	country     string
	description string
	out         string
}

func run(opts exportOptions) error {
	var st *store.Store
	if opts.db != "" {
		s, err := store.NewStore(opts.db)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer s.Close()
		st = s
	}

	path := opts.transcript
	desc := opts.description
	if opts.brief != "" {
		if st == nil || opts.dir == "" {
			return errors.New("--brief needs --db and --transcripts")
		}
		b, err := st.GetBrief(opts.brief)
		if err != nil {
			return err
		}
		path = intel.TranscriptPath(opts.dir, b.BriefID)
		if desc == "" {
			desc = fmt.Sprintf("%s brief %s (%s) recorded %s", b.BriefType, b.BriefID, b.TriggerType,
				b.CreatedAt.Format("2006-01-02T15:04:05Z"))
		}
	}
	if desc == "" {
		desc = fmt.Sprintf("Recorded transcript %s", path)
	}

	base, err := baseScores(st, opts.country)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}
	transcript := string(raw)
	res := replay.Run(strings.NewReader(transcript), replay.Options{BaseScores: base})

	fmt.Printf("Replayed %d snapshots, %d tool calls, %d chars (partial=%v scored=%v)\n",
		len(res.Snapshots), res.State.ToolInvocations, res.State.Chars, res.Partial, res.Scored)

	return writeFixture(replay.FromResult(desc, transcript, base, res), opts.out)
}

func baseScores(st *store.Store, country string) (threat.DomainScoreSet, error) {
	if country == "" {
		return threat.DomainScoreSet{}, nil
	}
	if st == nil {
		return threat.DomainScoreSet{}, errors.New("--base-country needs --db")
	}
	return st.CountryScores(country)
}

// #endregion extract

// #region output

func writeFixture(f *replay.Fixture, outPath string) error {
	data, err := f.Encode()
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d bytes, %d snapshots)\n", outPath, len(data), len(f.Expected.Percents))
	return nil
}

// #endregion output
