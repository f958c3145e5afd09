package main

import (
	"fmt"

	"github.com/lox/holdemtable/internal/broadcast"
	"github.com/lox/holdemtable/internal/config"
	"github.com/lox/holdemtable/internal/phh"
	"github.com/lox/holdemtable/internal/server"
	"github.com/rs/zerolog"
)

// ServerCmd runs the table server
type ServerCmd struct {
	Config         string `kong:"short='c',default='holdem.hcl',env='HOLDEM_CONFIG',help='Path to HCL configuration file'"`
	Addr           string `kong:"env='HOLDEM_ADDR',help='Override the listen address'"`
	LogLevel       string `kong:"env='HOLDEM_LOG_LEVEL',help='Override the log level (debug, info, warn, error)'"`
	JSONLogs       bool   `kong:"name='json-logs',help='Write structured JSON logs'"`
	HandHistoryDir string `kong:"env='HOLDEM_HAND_HISTORY_DIR',help='Write a PHH file per finished hand into this directory'"`
	AMQPURL        string `kong:"name='amqp-url',env='HOLDEM_AMQP_URL',help='Publish table events to this AMQP broker'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	c.applyOverrides(cfg)

	logger := setupLogger(cfg.Server.LogLevel, c.JSONLogs)

	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		return err
	}

	if dir := cfg.Server.HandHistoryDir; dir != "" {
		recorder, err := phh.NewRecorder(dir, phh.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("hand history: %w", err)
		}
		defer func() {
			_ = recorder.Close()
			logger.Info().Int("written", recorder.Written()).Int("dropped", recorder.Dropped()).Msg("Hand history recorder closed")
		}()
		srv.Subscribe(recorder)
		logger.Info().Str("dir", dir).Msg("Recording hand histories")
	}

	if url := cfg.Server.AMQPURL; url != "" {
		publisher, err := broadcast.Dial(url, cfg.Server.AMQPExchange, logger)
		if err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		defer closePublisher(publisher, logger)
		srv.Subscribe(publisher)
		logger.Info().Str("exchange", cfg.Server.AMQPExchange).Msg("Publishing table events")
	}

	timeout, _ := cfg.ActionTimeout()
	logger.Info().
		Str("address", cfg.Server.Address).
		Int("tables", len(cfg.Tables)).
		Dur("action_timeout", timeout).
		Str("version", version).
		Msg("Starting holdem table server")

	ctx := setupSignalHandler(logger)
	return srv.Run(ctx)
}

// applyOverrides lets flags and environment win over the file
func (c *ServerCmd) applyOverrides(cfg *config.Config) {
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.HandHistoryDir != "" {
		cfg.Server.HandHistoryDir = c.HandHistoryDir
	}
	if c.AMQPURL != "" {
		cfg.Server.AMQPURL = c.AMQPURL
	}
}

func closePublisher(p *broadcast.Publisher, logger zerolog.Logger) {
	published, failed := p.Stats()
	if err := p.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close AMQP publisher")
	}
	logger.Info().Uint64("published", published).Uint64("failed", failed).Msg("AMQP publisher closed")
}
