package intel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/progress"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/stream"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

// #region client
// Client generates briefs over a streaming Transport.
type Client struct {
	cfg       Config
	transport Transport
	limiter   *rate.Limiter
	estimator *progress.Estimator
	now       func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithLimiter replaces the interval limiter derived from Config.MinInterval.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithEstimator sets the progress estimator used for every decode.
func WithEstimator(e *progress.Estimator) Option {
	return func(c *Client) { c.estimator = e }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient builds a client. A nil transport is replaced by the SDK
// transport for cfg.APIKey.
func NewClient(cfg Config, transport Transport, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.WebSearchMaxUses <= 0 {
		cfg.WebSearchMaxUses = def.WebSearchMaxUses
	}
	if transport == nil && cfg.APIKey != "" {
		transport = NewSDKTransport(cfg.APIKey, cfg.BaseURL)
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	c := &Client{
		cfg:       cfg,
		transport: transport,
		limiter:   rate.NewLimiter(limit, 1),
		estimator: progress.NewEstimator(progress.DefaultPhrases()),
		now:       time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether briefs can be requested at all.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && c.transport != nil
}

// Model returns the model id requests are sent with.
func (c *Client) Model() string { return c.cfg.Model }

// #endregion client

// #region generate
// GenerateBrief streams one brief. text receives deltas as they arrive and
// sink receives progress snapshots; both may be nil. When the stream ends
// early the partial brief is returned together with an error matching
// stream.ErrPartial.
func (c *Client) GenerateBrief(ctx context.Context, req BriefRequest, text stream.TextSink, sink progress.Sink) (Brief, error) {
	if !c.Configured() {
		return Brief{}, ErrNotConfigured
	}
	if req.Type == "" {
		req.Type = BriefDaily
	}
	if req.Now.IsZero() {
		req.Now = c.now()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Brief{}, fmt.Errorf("rate limit wait: %w", err)
	}

	b := Brief{ID: uuid.New().String(), Type: req.Type, Started: c.now()}

	body, err := c.transport.Open(ctx, c.params(req))
	if err != nil {
		return Brief{}, err
	}
	defer body.Close()

	var src io.Reader = body
	if c.cfg.TranscriptDir != "" {
		f, err := c.openTranscript(b.ID)
		if err != nil {
			return Brief{}, err
		}
		defer f.Close()
		src = io.TeeReader(body, f)
	}

	events := stream.NewEventReader(src)
	res, derr := stream.NewDecoder(c.estimator, text, sink).Decode(ctx, events)

	b.Finished = c.now()
	b.Decode = res
	b.Content = res.Text
	b.Partial = res.Partial
	b.Skipped = events.Skipped()
	b.ThreatLevel = threat.HeadlineLevel(res.Text)

	if derr != nil && !errors.Is(derr, stream.ErrPartial) {
		return b, fmt.Errorf("decode brief: %w", derr)
	}
	return b, derr
}

func (c *Client) params(req BriefRequest) sdk.MessageNewParams {
	maxTokens, searches := c.cfg.budget(req.Type)
	return sdk.MessageNewParams{
		Model:     sdk.Model(c.cfg.Model),
		MaxTokens: int64(maxTokens),
		System:    []sdk.TextBlockParam{{Text: SystemPrompt(req.Subject)}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(BriefPrompt(req))),
		},
		Tools: []sdk.ToolUnionParam{{
			OfWebSearchTool20250305: &sdk.WebSearchTool20250305Param{MaxUses: sdk.Int(int64(searches))},
		}},
	}
}

func (c *Client) openTranscript(id string) (*os.File, error) {
	if err := os.MkdirAll(c.cfg.TranscriptDir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	f, err := os.Create(TranscriptPath(c.cfg.TranscriptDir, id))
	if err != nil {
		return nil, fmt.Errorf("create transcript: %w", err)
	}
	return f, nil
}

// TranscriptPath is where the raw stream for brief id is written.
func TranscriptPath(dir, id string) string {
	return filepath.Join(dir, id+".sse")
}

// #endregion generate
