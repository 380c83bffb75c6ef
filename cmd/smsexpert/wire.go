package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/nhle/smsexpert/internal/cache"
	"github.com/nhle/smsexpert/internal/credential"
	"github.com/nhle/smsexpert/internal/inbox"
	"github.com/nhle/smsexpert/internal/logging"
	"github.com/nhle/smsexpert/internal/metrics"
	"github.com/nhle/smsexpert/internal/model"
	"github.com/nhle/smsexpert/internal/notifyapi"
	"github.com/nhle/smsexpert/internal/transport"
)

// deps holds everything a command needs. close releases it in reverse
// order of construction.
type deps struct {
	cfg       *model.AppConfig
	log       *zap.Logger
	creds     *credential.Store
	metrics   *metrics.Metrics
	transport *transport.Client
	api       *notifyapi.Client
	cache     *cache.SQLiteCache
}

type wireOptions struct {
	quietLog  bool
	withCache bool
	reporter  transport.Reporter
}

func wire(configPath string, o wireOptions) (*deps, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.API.BaseURL == "" {
		return nil, errors.New("no API base URL configured; run `smsexpert login`")
	}

	logOpts := logging.OptionsFromConfig(cfg.Log)
	logOpts.Quiet = o.quietLog
	logger, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}

	creds, err := credential.Open()
	if err != nil {
		return nil, err
	}

	d := &deps{
		cfg:     cfg,
		log:     logger,
		creds:   creds,
		metrics: metrics.New(),
	}

	reporter := o.reporter
	if reporter == nil {
		reporter = stderrReporter{}
	}
	d.transport = transport.New(transport.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.Timeout(),
		UserAgent: "smsexpert-cli/" + Version,
	}, creds, logger, transport.WithReporter(reporter), transport.WithMetrics(d.metrics))
	d.api = notifyapi.New(d.transport, logger)

	if o.withCache && cfg.Cache.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Cache.Path), 0o755); err != nil {
			d.close()
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
		c, err := cache.NewSQLiteCache(cfg.Cache.Path)
		if err != nil {
			// The inbox works without a snapshot.
			logger.Warn("cache unavailable", zap.String("path", cfg.Cache.Path), zap.Error(err))
		} else {
			d.cache = c
		}
	}

	return d, nil
}

// newStore builds the inbox store on top of the wired API client.
func (d *deps) newStore() *inbox.Store {
	opts := []inbox.Option{
		inbox.WithMetrics(d.metrics),
		inbox.WithPerPage(d.cfg.Notifications.PerPage),
		inbox.WithPollInterval(d.cfg.PollInterval()),
	}
	if d.cache != nil {
		opts = append(opts, inbox.WithCache(d.cache, d.cfg.Retention()))
	}
	return inbox.New(d.api, d.log, opts...)
}

func (d *deps) close() {
	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			d.log.Warn("closing cache", zap.Error(err))
		}
	}
	if d.transport != nil {
		_ = d.transport.Close()
	}
	_ = d.log.Sync()
}

// stderrReporter prints transport failures for headless commands.
type stderrReporter struct{}

func (stderrReporter) ReportError(message string) {
	fmt.Fprintln(os.Stderr, "!", message)
}

// staticToken serves a token that is not stored yet.
type staticToken string

func (t staticToken) Token() (string, error) {
	return string(t), nil
}
