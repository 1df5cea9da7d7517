package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nikogura/resume-optimizer/pkg/history"
	"github.com/nikogura/resume-optimizer/pkg/renderer"
	"github.com/nikogura/resume-optimizer/pkg/request"
	"github.com/pkg/errors"
)

// BodyLimit caps request bodies.
const BodyLimit = 16 * 1024 * 1024

// Submitter queues a generation request for background processing.
type Submitter interface {
	SubmitWithID(id string, req request.GenerationRequest) (done <-chan struct{}, err error)
}

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Submitter Submitter
	PDF       renderer.Converter
	DOCX      renderer.Converter
	// History is optional; history routes answer 503 without it.
	History            history.Store
	OutputDir          string
	Backend            string
	DefaultModel       string
	DefaultTemperature float64
	Logger             *slog.Logger
}

// Server is the fiber application serving the /api routes.
type Server struct {
	app  *fiber.App
	deps Deps
}

// New builds the application and registers every route.
func New(deps Deps) (s *Server) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.DefaultModel == "" {
		deps.DefaultModel = request.DefaultModel
	}
	if deps.DefaultTemperature == 0 {
		deps.DefaultTemperature = request.DefaultTemperature
	}

	s = &Server{deps: deps}
	s.app = fiber.New(fiber.Config{
		AppName:               "resume-optimizer",
		BodyLimit:             BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(s.logRequests)

	api := s.app.Group("/api")
	api.Post("/upload", s.Upload)
	api.Post("/optimizer", s.Optimize)
	api.Post("/markdownFile2PDF", s.convertHandler(deps.PDF))
	api.Post("/markdownFile2DOCX", s.convertHandler(deps.DOCX))
	api.Get("/files", s.ListFiles)
	api.Get("/files/:name", s.DownloadFile)
	api.Delete("/files/:name", s.DeleteFile)
	api.Get("/history", s.ListHistory)
	api.Get("/history/:id", s.GetHistory)
	api.Delete("/history/:id", s.DeleteHistory)
	api.Get("/health", s.Health)

	return s
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() (app *fiber.App) {
	app = s.app
	return app
}

// Listen serves until Shutdown is called.
func (s *Server) Listen(addr string) (err error) {
	s.deps.Logger.Info("server listening", slog.String("addr", addr))
	err = s.app.Listen(addr)
	if err != nil {
		err = errors.Wrapf(err, "server failed on %s", addr)
		return err
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) (err error) {
	err = s.app.ShutdownWithContext(ctx)
	if err != nil {
		err = errors.Wrap(err, "server shutdown failed")
		return err
	}
	return err
}

// logRequests writes one line per request.
func (s *Server) logRequests(c *fiber.Ctx) (err error) {
	started := time.Now()
	err = c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}
	}

	s.deps.Logger.Debug("http request",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.Int("status", status),
		slog.Duration("elapsed", time.Since(started)))

	return err
}

// handleError renders unhandled errors as JSON.
func (s *Server) handleError(c *fiber.Ctx, err error) (sendErr error) {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	if code >= fiber.StatusInternalServerError {
		s.deps.Logger.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
	}

	sendErr = c.Status(code).JSON(fiber.Map{"error": err.Error()})
	return sendErr
}

// errorJSON writes {"error": message} with status.
func errorJSON(c *fiber.Ctx, status int, message string) (err error) {
	err = c.Status(status).JSON(fiber.Map{"error": message})
	return err
}
