package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/logging"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/store"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to sentinel.db")
	what := flag.String("what", "assessments", "assessments | scores | briefs | hotspots | scans | countries")
	country := flag.String("country", "", "filter by country code")
	last := flag.Int("last", 20, "show N most recent rows")
	brief := flag.String("brief", "", "print one brief in full")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/sentinel.db [--what assessments|scores|briefs|hotspots|scans|countries] [--country CC] [--last N] [--brief id] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	cc := strings.ToUpper(*country)
	if *brief != "" {
		err = runBrief(st, *brief, *jsonOut)
	} else {
		switch *what {
		case "assessments":
			err = runAssessments(st, cc, *last, *jsonOut)
		case "scores":
			err = runScores(st, cc, *last, *jsonOut)
		case "briefs":
			err = runBriefs(st, *last, *jsonOut)
		case "hotspots":
			err = runHotspots(st, cc, *jsonOut)
		case "scans":
			err = runScans(st, *last, *jsonOut)
		case "countries":
			err = runCountries(st, *jsonOut)
		default:
			err = fmt.Errorf("unknown --what %q", *what)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region assessments

func runAssessments(st *store.Store, country string, last int, jsonOut bool) error {
	recs, err := st.ListAssessments(country, last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(os.Stderr, "no assessments found")
		return nil
	}

	fmt.Printf("%-10s  %-4s  %7s  %-7s  %-10s  %s\n", "Assessment", "CC", "Overall", "Tier", "Brief", "Time")
	fmt.Printf("%-10s+-%-4s+-%7s+-%-7s+-%-10s+-%s\n",
		"----------", "----", "-------", "-------", "----------", "--------------------")
	for _, r := range recs {
		fmt.Printf("%-10s  %-4s  %7d  %-7s  %-10s  %s\n",
			shortID(r.AssessmentID), r.CountryCode, r.OverallScore, r.Tier, orDash(shortID(r.BriefID)),
			r.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}

	fmt.Printf("\nDomain scores (latest, %s):\n", recs[0].CountryCode)
	printDomains(recs[0].Scores)
	return nil
}

func runScores(st *store.Store, country string, last int, jsonOut bool) error {
	if country == "" {
		return errors.New("--what scores needs --country")
	}
	rows, err := st.DailyScores(country, last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-10s  %-20s  %5s  %s\n", "Assessment", "Domain", "Score", "Time")
	for _, r := range rows {
		fmt.Printf("%-10s  %-20s  %5d  %s\n",
			shortID(r.AssessmentID), r.Domain, r.Score, r.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

// #endregion assessments

// #region briefs

func runBriefs(st *store.Store, last int, jsonOut bool) error {
	briefs, err := st.ListBriefs(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(briefs)
	}
	if len(briefs) == 0 {
		fmt.Fprintln(os.Stderr, "no briefs found")
		return nil
	}
	fmt.Printf("%-10s  %-6s  %-10s  %-7s  %7s  %7s  %s\n", "Brief", "Type", "Trigger", "Level", "Partial", "Chars", "Time")
	for _, b := range briefs {
		fmt.Printf("%-10s  %-6s  %-10s  %-7s  %7v  %7d  %s\n",
			shortID(b.BriefID), b.BriefType, b.TriggerType, orDash(b.ThreatLevel), b.Partial,
			len([]rune(b.Content)), b.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

func runBrief(st *store.Store, id string, jsonOut bool) error {
	b, err := st.GetBrief(id)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(b)
	}
	fmt.Printf("Brief:     %s\n", b.BriefID)
	fmt.Printf("Type:      %s\n", b.BriefType)
	fmt.Printf("Trigger:   %s\n", b.TriggerType)
	fmt.Printf("Level:     %s\n", orDash(b.ThreatLevel))
	fmt.Printf("Partial:   %v\n", b.Partial)
	fmt.Printf("Created:   %s\n", b.CreatedAt.Format("2006-01-02T15:04:05Z"))
	if b.Watchlist != "" {
		fmt.Printf("Watchlist: %s\n", b.Watchlist)
	}
	fmt.Printf("\n%s\n", b.Content)
	return nil
}

// #endregion briefs

// #region hotspots

func runHotspots(st *store.Store, country string, jsonOut bool) error {
	hs, err := st.GetActiveIncidents(country)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(hs)
	}
	fmt.Printf("%4s  %-28s  %-16s  %3s  %-4s  %9s  %10s  %6s\n",
		"ID", "Name", "Type", "Sev", "CC", "Lat", "Lon", "Radius")
	for _, h := range hs {
		fmt.Printf("%4d  %-28s  %-16s  %3d  %-4s  %9.4f  %10.4f  %6d\n",
			h.ID, truncate(h.Name, 28), h.CrimeType, h.Severity, h.CountryCode, h.Latitude, h.Longitude, h.RadiusMeters)
	}
	return nil
}

// #endregion hotspots

// #region scans

func runScans(st *store.Store, last int, jsonOut bool) error {
	entries, err := logging.NewScanLog(st.DB()).Recent(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(entries)
	}
	fmt.Printf("%-10s  %-10s  %-8s  %-6s  %-4s  %7s  %-7s  %s\n",
		"Brief", "Trigger", "Outcome", "Source", "CC", "Overall", "Tier", "Time")
	for _, e := range entries {
		overall := "—"
		if e.Scored {
			overall = fmt.Sprintf("%d", e.OverallScore)
		}
		fmt.Printf("%-10s  %-10s  %-8s  %-6s  %-4s  %7s  %-7s  %s\n",
			orDash(shortID(e.BriefID)), e.TriggerType, e.Outcome, e.ScoreSource, orDash(e.CountryCode),
			overall, orDash(e.Tier), e.CreatedAt.Format("2006-01-02T15:04:05Z"))
		if e.Reason != "" {
			fmt.Printf("            reason: %s\n", e.Reason)
		}
	}
	return nil
}

// #endregion scans

// #region countries

func runCountries(st *store.Store, jsonOut bool) error {
	cs, err := st.ListCountries()
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(cs)
	}
	fmt.Printf("%-4s  %-24s  %7s  %-7s  %s\n", "CC", "Name", "Overall", "Tier", "Updated")
	for _, c := range cs {
		fmt.Printf("%-4s  %-24s  %7d  %-7s  %s\n",
			c.Code, truncate(c.Name, 24), c.OverallScore, tierOf(c.OverallScore), c.UpdatedAt.Format("2006-01-02"))
	}
	return nil
}

func tierOf(score int) string {
	return threat.MustEngine(threat.DefaultConfig()).Classify(score).String()
}

// #endregion countries

// #region output

func printDomains(s threat.DomainScoreSet) {
	for _, d := range threat.Domains {
		fmt.Printf("  %-20s %d\n", d, s.Get(d))
	}
	fmt.Printf("  %-20s %d/10\n", threat.KeyGenocideStage, s.GenocideStage)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// #endregion output
