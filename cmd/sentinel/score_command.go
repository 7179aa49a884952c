package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/store"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

func newScoreCommand(ctx *commandContext) *cobra.Command {
	var country, file string
	var save, jsonOut bool
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Parse a THREAT_SCORES block and run the aggregation engine",
		Long: "Reads brief text from --file or stdin, overlays any score block on the stored\n" +
			"scores for --country, and prints the overall score and tier.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in io.Reader = cmd.InOrStdin()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			text, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read brief: %w", err)
			}

			upd, ok := threat.ParseScoreBlock(string(text))
			if !ok {
				return errors.New("no score block found")
			}

			country = strings.ToUpper(strings.TrimSpace(country))
			var base threat.DomainScoreSet
			var st *store.Store
			if country != "" {
				if st, err = ctx.openStore(); err != nil {
					return err
				}
				base, err = st.CountryScores(country)
				if err != nil && !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}

			eng, err := ctx.engine()
			if err != nil {
				return err
			}
			scores := upd.Apply(base)
			a := eng.Assess(scores)

			if save {
				if st == nil {
					return errors.New("--save needs --country")
				}
				rec, err := st.SaveAssessment(store.AssessmentRecord{
					CountryCode:  country,
					Scores:       scores,
					OverallScore: a.OverallScore,
					Tier:         a.Tier.String(),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "saved assessment %s\n", rec.AssessmentID)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), struct {
					Scores       threat.DomainScoreSet `json:"scores"`
					Found        int                   `json:"keys_found"`
					OverallScore int                   `json:"overall_score"`
					Tier         string                `json:"tier"`
				}{scores, len(upd), a.OverallScore, a.Tier.String()})
			}

			rows := make([][]string, 0, len(threat.Domains)+1)
			for _, d := range append(append([]threat.Domain(nil), threat.Domains...), threat.KeyGenocideStage) {
				mark := ""
				if _, found := upd[d]; found {
					mark = "*"
				}
				rows = append(rows, []string{string(d), strconv.Itoa(scores.Get(d)), mark})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Domain", "Score", "Updated"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft}))
			fmt.Fprintf(cmd.OutOrStdout(), "Overall: %d  Tier: %s\n", a.OverallScore, a.Tier)
			return nil
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "Country code whose stored scores are the base")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Brief text file (default stdin)")
	cmd.Flags().BoolVar(&save, "save", false, "Persist the assessment")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
