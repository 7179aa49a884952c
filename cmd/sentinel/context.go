package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/config"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/georisk"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/intel"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/logging"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/store"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/telemetry"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

// commandContext lazily loads config and opens the store once per process.
type commandContext struct {
	configFlag *string
	dbFlag     *string

	configOnce sync.Once
	config     config.Config
	configErr  error

	storeOnce sync.Once
	store     *store.Store
	storeErr  error
}

func newCommandContext(configFlag, dbFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, dbFlag: dbFlag}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(*c.configFlag)
		if path == "" {
			path = os.Getenv("SENTINEL_CONFIG")
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if db := strings.TrimSpace(*c.dbFlag); db != "" {
			cfg.Storage.DBPath = config.ExpandPath(db)
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logContext attaches the configured clue logger to ctx.
func (c *commandContext) logContext(ctx context.Context) context.Context {
	cfg, _ := c.ensureConfig()
	return logging.Context(ctx, logging.Options{Format: cfg.Logging.Format, Debug: cfg.Logging.Debug, Output: os.Stderr})
}

func (c *commandContext) openStore() (*store.Store, error) {
	c.storeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.storeErr = err
			return
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
			c.storeErr = fmt.Errorf("create data dir: %w", err)
			return
		}
		c.store, c.storeErr = store.NewStore(cfg.Storage.DBPath)
	})
	return c.store, c.storeErr
}

func (c *commandContext) close() {
	if c.store != nil {
		c.store.Close()
	}
}

func (c *commandContext) engine() (*threat.Engine, error) {
	return threat.NewEngine(threat.DefaultConfig())
}

func (c *commandContext) riskModel() *georisk.Model {
	cfg, _ := c.ensureConfig()
	return georisk.NewModel(cfg.RiskModel())
}

func (c *commandContext) intelClient() *intel.Client {
	cfg, _ := c.ensureConfig()
	return intel.NewClient(intel.Config{
		APIKey:           cfg.LLM.APIKey,
		BaseURL:          cfg.LLM.BaseURL,
		Model:            cfg.LLM.Model,
		MaxTokens:        cfg.LLM.MaxTokens,
		WebSearchMaxUses: cfg.LLM.WebSearchMaxUses,
		MinInterval:      cfg.MinBriefInterval(),
		TranscriptDir:    cfg.Storage.TranscriptDir,
	}, nil)
}

// orchestrator wires the store, client, engine, risk model, scan log and
// metrics together.
func (c *commandContext) orchestrator() (*orchestrator.Orchestrator, error) {
	st, err := c.openStore()
	if err != nil {
		return nil, err
	}
	eng, err := c.engine()
	if err != nil {
		return nil, err
	}
	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		return nil, err
	}
	return orchestrator.NewOrchestrator(orchestrator.Deps{
		Profiles:  st,
		Incidents: st,
		Scores:    st,
		Briefs:    st,
		Generator: c.intelClient(),
		ScanLog:   logging.NewScanLog(st.DB()),
		Engine:    eng,
		Risk:      c.riskModel(),
		Metrics:   metrics,
	})
}
