package threat

import (
	"regexp"
	"strconv"
	"strings"
)

// #region score-block
// ScoreMarker introduces the machine-readable block at the end of a brief.
const ScoreMarker = "threat_scores"

const (
	colonWindow = 5
	digitWindow = 10
)

// blockKeys is every key a score block may carry.
var blockKeys = append(append([]Domain(nil), Domains...), KeyGenocideStage)

// ScoreUpdate holds the keys found in a score block, already clamped.
type ScoreUpdate map[Domain]int

// Apply overlays the found keys on base.
func (u ScoreUpdate) Apply(base DomainScoreSet) DomainScoreSet {
	for d, v := range u {
		base = base.With(d, v)
	}
	return base
}

// ParseScoreBlock extracts domain scores from free text. Only the text after
// the last THREAT_SCORES marker is read when a marker is present. Each key
// may use underscores or spaces and must be followed by a colon within five
// characters and an integer within ten characters after that.
func ParseScoreBlock(text string) (ScoreUpdate, bool) {
	region := strings.ToLower(text)
	if i := strings.LastIndex(region, ScoreMarker); i >= 0 {
		region = region[i+len(ScoreMarker):]
	}

	upd := ScoreUpdate{}
	for _, d := range blockKeys {
		spaced := strings.ReplaceAll(string(d), "_", " ")
		for _, term := range []string{string(d), spaced} {
			v, ok := findValue(region, term)
			if !ok {
				continue
			}
			if d == KeyGenocideStage {
				upd[d] = clampInt(v, MinStage, MaxStage)
			} else {
				upd[d] = clampInt(v, MinScore, MaxScore)
			}
			break
		}
	}
	return upd, len(upd) > 0
}

func findValue(s, term string) (int, bool) {
	from := 0
	for from < len(s) {
		i := strings.Index(s[from:], term)
		if i < 0 {
			return 0, false
		}
		end := from + i + len(term)
		from = end

		c := strings.IndexByte(s[end:min(len(s), end+colonWindow)], ':')
		if c < 0 {
			continue
		}
		start := end + c + 1
		window := strings.TrimSpace(s[start:min(len(s), start+digitWindow)])
		digits := leadingDigits(window)
		if digits == "" {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

// #endregion score-block

// #region headline
var headlineRe = regexp.MustCompile(`(?i)overall\s+threat\s+level\s*:?\s*\[?\s*(green|yellow|orange|red)\b`)

var levelWords = []struct {
	re   *regexp.Regexp
	tier Tier
}{
	{regexp.MustCompile(`\bRED\b`), TierRed},
	{regexp.MustCompile(`\bORANGE\b`), TierOrange},
	{regexp.MustCompile(`\bGREEN\b`), TierGreen},
}

// HeadlineLevel picks the threat level a brief announces. An explicit
// "Overall threat level" line wins; otherwise the first upper-case level word
// by severity; otherwise YELLOW.
func HeadlineLevel(text string) Tier {
	if m := headlineRe.FindStringSubmatch(text); m != nil {
		if t, err := ParseTier(strings.ToUpper(m[1])); err == nil {
			return t
		}
	}
	for _, w := range levelWords {
		if w.re.MatchString(text) {
			return w.tier
		}
	}
	return TierYellow
}

// #endregion headline
