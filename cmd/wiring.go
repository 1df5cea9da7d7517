package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/nikogura/resume-optimizer/pkg/config"
	"github.com/nikogura/resume-optimizer/pkg/history"
	"github.com/nikogura/resume-optimizer/pkg/llm"
	"github.com/nikogura/resume-optimizer/pkg/pipeline"
	"github.com/nikogura/resume-optimizer/pkg/prompts"
	"github.com/nikogura/resume-optimizer/pkg/renderer"
	"github.com/nikogura/resume-optimizer/pkg/runner"
)

// services holds everything a generation run needs, built from one Config.
type services struct {
	completer    llm.Completer
	pdf          renderer.Converter
	docx         renderer.Converter
	history      history.Store
	orchestrator *pipeline.Orchestrator
	logger       *slog.Logger
}

// buildServices wires the completer, renderers, optional history and orchestrator.
// A history store that cannot be opened is logged and skipped.
func buildServices(ctx context.Context, cfg config.Config, logger *slog.Logger) (svc *services) {
	svc = &services{logger: logger}

	svc.completer = llm.NewCompleter(llm.Options{
		Backend:  cfg.LLM.Backend,
		Endpoint: cfg.LLM.Endpoint,
		APIKey:   cfg.LLM.APIKey,
		Mock:     cfg.LLM.Mock,
		Timeout:  time.Duration(cfg.LLM.Timeout),
	}, logger)

	svc.pdf = renderer.NewPDFRenderer(renderer.NewChromeEngine(cfg.Renderer.ChromePath, 0), logger)
	if cfg.DOCXEnabled() {
		svc.docx = renderer.NewDocxRenderer(logger)
	}

	if cfg.History.DSN != "" {
		store, err := history.Open(ctx, cfg.History.DSN, logger)
		if err != nil {
			logger.Warn("history disabled", slog.Any("error", err))
		} else {
			svc.history = store
		}
	}

	deps := pipeline.Deps{
		Templates:  prompts.NewStore(cfg.PromptsDir, logger),
		Completer:  svc.completer,
		Converters: svc.converters(),
		OutputDir:  cfg.OutputDir,
		Logger:     logger,
	}
	if svc.history != nil {
		deps.History = svc.history
	}
	svc.orchestrator = pipeline.NewOrchestrator(deps)

	logger.Debug("services ready",
		slog.String("backend", svc.completer.Name()),
		slog.String("output_dir", cfg.OutputDir),
		slog.Bool("docx", svc.docx != nil),
		slog.Bool("history", svc.history != nil))

	return svc
}

// converters lists the enabled output formats.
func (s *services) converters() (convs []renderer.Converter) {
	for _, c := range []renderer.Converter{s.pdf, s.docx} {
		if c != nil {
			convs = append(convs, c)
		}
	}
	return convs
}

// newPool starts a worker pool draining into the orchestrator.
func (s *services) newPool(cfg config.Config) (pool *runner.Pool) {
	pool = runner.NewPool(s.orchestrator, runner.Options{
		Workers:       cfg.Runner.Workers,
		QueueSize:     cfg.Runner.QueueSize,
		RatePerMinute: cfg.Runner.RatePerMinute,
	}, s.logger)
	return pool
}

// Close releases the history store.
func (s *services) Close() {
	if s.history == nil {
		return
	}
	err := s.history.Close()
	if err != nil {
		s.logger.Warn("failed to close history", slog.Any("error", err))
	}
}
