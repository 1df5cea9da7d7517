package server

import (
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/nikogura/resume-optimizer/pkg/renderer"
)

// FileInfo describes one file in the output directory.
type FileInfo struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// convertHandler renders an uploaded markdown file with conv into the output directory.
func (s *Server) convertHandler(conv renderer.Converter) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		if conv == nil {
			return errorJSON(c, fiber.StatusServiceUnavailable, "converter not configured")
		}

		header, err := c.FormFile("file")
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "missing markdown file")
		}

		markdown, err := readUpload(header)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		}

		name := renderer.SwapExtension(filepath.Base(header.Filename), conv.Extension())
		outPath := filepath.Join(s.deps.OutputDir, name)

		if !conv.ConvertFile(c.UserContext(), markdown, outPath) {
			return errorJSON(c, fiber.StatusInternalServerError, "conversion failed")
		}

		return c.JSON(fiber.Map{
			"message": "File converted",
			"file":    name,
			"url":     fileURL(name),
		})
	}
}

// ListFiles returns the regular files in the output directory, sorted by name.
func (s *Server) ListFiles(c *fiber.Ctx) (err error) {
	files := []FileInfo{}

	entries, err := os.ReadDir(s.deps.OutputDir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, infoErr := entry.Info()
		if infoErr != nil {
			continue
		}
		files = append(files, FileInfo{Name: entry.Name(), URL: fileURL(entry.Name()), Size: info.Size()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return c.JSON(files)
}

// DownloadFile sends one output file as an attachment.
func (s *Server) DownloadFile(c *fiber.Ctx) (err error) {
	path, ok := s.resolveFile(c)
	if !ok {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c.Attachment(filepath.Base(path))
	return c.Send(data)
}

// DeleteFile removes one output file.
func (s *Server) DeleteFile(c *fiber.Ctx) (err error) {
	path, ok := s.resolveFile(c)
	if !ok {
		return err
	}

	err = os.Remove(path)
	if err != nil {
		return err
	}

	s.deps.Logger.Info("file deleted", slog.String("path", path))
	return c.JSON(fiber.Map{"message": "File deleted", "file": filepath.Base(path)})
}

// resolveFile maps the :name parameter to a regular file inside the output directory.
// On failure it has already written a 400 or 404 response.
func (s *Server) resolveFile(c *fiber.Ctx) (path string, ok bool) {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil || !safeName(name) {
		_ = errorJSON(c, fiber.StatusBadRequest, "invalid file name")
		return path, ok
	}

	path = filepath.Join(s.deps.OutputDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		_ = errorJSON(c, fiber.StatusNotFound, "file not found")
		return path, ok
	}

	ok = true
	return path, ok
}

// safeName accepts a single path segment only.
func safeName(name string) (ok bool) {
	if name == "" || name == "." || name == ".." {
		return ok
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return ok
	}
	ok = filepath.Base(name) == name
	return ok
}

func fileURL(name string) (u string) {
	u = "/api/files/" + url.PathEscape(name)
	return u
}
