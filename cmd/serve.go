package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikogura/resume-optimizer/pkg/server"
	"github.com/spf13/cobra"
)

// shutdownGrace bounds how long in-flight HTTP requests get after a signal.
const shutdownGrace = 15 * time.Second

//nolint:gochecknoglobals // Cobra boilerplate
var listenAddr string

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the HTTP API. Generation requests are answered with 202 Accepted and
processed by a background worker pool; results land in the output directory.

Routes:
  POST   /api/upload              multipart resume, job and optimize JSON
  POST   /api/optimizer           JSON request with inline resume and job description
  POST   /api/markdownFile2PDF    multipart markdown file to PDF
  POST   /api/markdownFile2DOCX   multipart markdown file to DOCX
  GET    /api/files               list output files
  GET    /api/files/:name         download an output file
  DELETE /api/files/:name         delete an output file
  GET    /api/history             list generation history (?type=, ?limit=)
  GET    /api/history/:id         one history entry
  DELETE /api/history/:id         delete a history entry
  GET    /api/health              readiness

On SIGINT or SIGTERM the listener stops, then queued generations are drained.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default from config)")
	serveCmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory (default from config)")
	serveCmd.Flags().BoolVar(&mock, "mock", false, "Use canned replies instead of a language model")
}

func runServe(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(slog.LevelInfo)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.Listen = listenAddr
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if mock {
		cfg.LLM.Mock = true
	}

	svc := buildServices(ctx, cfg, logger)
	defer svc.Close()

	pool := svc.newPool(cfg)
	defer pool.Close()

	srv := server.New(server.Deps{
		Submitter:          pool,
		PDF:                svc.pdf,
		DOCX:               svc.docx,
		History:            svc.history,
		OutputDir:          cfg.OutputDir,
		Backend:            svc.completer.Name(),
		DefaultModel:       cfg.Defaults.Model,
		DefaultTemperature: cfg.Defaults.Temperature,
		Logger:             logger,
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Listen(cfg.Server.Listen)
	}()

	select {
	case err = <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", slog.Int("pending", pool.Pending()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	return err
}
