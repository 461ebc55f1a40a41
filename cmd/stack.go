package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/timvw/pane-runner/internal/history"
	protel "github.com/timvw/pane-runner/internal/otel"
	"github.com/timvw/pane-runner/internal/render"
	"github.com/timvw/pane-runner/internal/runner"
)

// stack holds the runtime components shared by serve, exec and watch.
type stack struct {
	runner  *runner.Runner
	history *history.Store // nil when history is disabled
	tel     *protel.Telemetry
}

// newStack wires a runner from the resolved configuration: backend,
// analysis cache, history store and telemetry.
func newStack(ctx context.Context) (*stack, error) {
	protel.Version = Version

	// Telemetry failures are not fatal; the runner works without it.
	tel, err := protel.Init(ctx, protel.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		logger.Warn("otel init failed", zap.Error(err))
	}

	backend, err := getBackend()
	if err != nil {
		return nil, fmt.Errorf("no supported terminal multiplexer found: %w", err)
	}

	r := runner.New(backend, logger.Named("runner"))
	r.CaptureLines = cfg.CaptureLines
	r.Render = render.New(render.ThemeByName(cfg.Theme))
	r.Cache = runner.NewAnalysisCache(cfg.CacheTTLDuration)

	s := &stack{runner: r, tel: tel}
	if tel != nil {
		r.Metrics = tel.Metrics
	}

	if cfg.HistoryPath != "" {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			// History is optional; commands still run without it.
			logger.Warn("history disabled", zap.String("path", cfg.HistoryPath), zap.Error(err))
		} else {
			s.history = store
			r.History = store
		}
	}
	return s, nil
}

func (s *stack) metrics() *protel.Metrics {
	if s.tel == nil {
		return nil
	}
	return s.tel.Metrics
}

// Close flushes telemetry and closes the history database.
func (s *stack) Close(ctx context.Context) {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			logger.Warn("close history", zap.Error(err))
		}
	}
	if err := s.tel.Shutdown(ctx); err != nil {
		logger.Warn("flush telemetry", zap.Error(err))
	}
}
