package intel

import "time"

// #region config
// Config holds the request parameters for brief generation.
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	MaxTokens        int
	WebSearchMaxUses int
	MinInterval      time.Duration
	TranscriptDir    string
}

// DefaultConfig returns the stock request budget.
func DefaultConfig() Config {
	return Config{
		Model:            "claude-sonnet-4-20250514",
		MaxTokens:        16000,
		WebSearchMaxUses: 10,
		MinInterval:      time.Minute,
	}
}

// budget returns max tokens and search uses for a brief type. Quick scans
// run on a quarter of the daily budget.
func (c Config) budget(t BriefType) (maxTokens, searches int) {
	if t == BriefQuick {
		return max(c.MaxTokens/4, 1024), max(c.WebSearchMaxUses/3, 1)
	}
	return c.MaxTokens, c.WebSearchMaxUses
}

// #endregion config
