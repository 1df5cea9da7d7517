package server

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/nikogura/resume-optimizer/pkg/history"
	"github.com/pkg/errors"
)

// ListHistory returns recent entries, optionally filtered by ?type= and capped by ?limit=.
func (s *Server) ListHistory(c *fiber.Ctx) (err error) {
	if s.deps.History == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "history is disabled")
	}

	entries, err := s.deps.History.List(c.UserContext(), history.Filter{
		DocumentType: c.Query("type"),
		Limit:        c.QueryInt("limit", history.DefaultLimit),
	})
	if err != nil {
		return err
	}

	if entries == nil {
		entries = []history.Entry{}
	}

	return c.JSON(entries)
}

// GetHistory returns one entry.
func (s *Server) GetHistory(c *fiber.Ctx) (err error) {
	if s.deps.History == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "history is disabled")
	}

	entry, err := s.deps.History.Get(c.UserContext(), c.Params("id"))
	if errors.Is(err, history.ErrNotFound) {
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}

	return c.JSON(entry)
}

// DeleteHistory removes one entry.
func (s *Server) DeleteHistory(c *fiber.Ctx) (err error) {
	if s.deps.History == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "history is disabled")
	}

	err = s.deps.History.Delete(c.UserContext(), c.Params("id"))
	if errors.Is(err, history.ErrNotFound) {
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "History entry deleted"})
}

// Health reports output directory writability, history reachability and the completion backend.
func (s *Server) Health(c *fiber.Ctx) (err error) {
	healthy := true

	writable := outputWritable(s.deps.OutputDir)
	if !writable {
		healthy = false
	}

	historyStatus := "disabled"
	if s.deps.History != nil {
		historyStatus = "ok"
		if pingErr := s.deps.History.Ping(c.UserContext()); pingErr != nil {
			historyStatus = pingErr.Error()
			healthy = false
		}
	}

	status := "ok"
	code := fiber.StatusOK
	if !healthy {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":              status,
		"output_dir":          s.deps.OutputDir,
		"output_dir_writable": writable,
		"history":             historyStatus,
		"llm_backend":         s.deps.Backend,
	})
}

// outputWritable creates and removes a probe file in dir.
func outputWritable(dir string) (ok bool) {
	if os.MkdirAll(dir, 0750) != nil {
		return ok
	}

	probe, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return ok
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(filepath.Clean(name))

	ok = true
	return ok
}
