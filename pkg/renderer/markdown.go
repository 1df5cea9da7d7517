package renderer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Converter renders markdown into one output format, reporting failure as false.
type Converter interface {
	ConvertFile(ctx context.Context, markdown, outputPath string) (ok bool)
	Extension() (ext string)
}

// WriteMarkdown writes markdown content to a file.
func WriteMarkdown(content, outputPath string) (err error) {
	err = WriteFile([]byte(content), outputPath)
	if err != nil {
		err = errors.Wrap(err, "failed to write markdown")
		return err
	}
	return err
}

// WriteFile writes data to outputPath, creating parent directories as needed.
func WriteFile(data []byte, outputPath string) (err error) {
	// Ensure output directory exists
	outputDir := filepath.Dir(outputPath)
	err = os.MkdirAll(outputDir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create output directory: %s", outputDir)
		return err
	}

	// Write file
	err = os.WriteFile(outputPath, data, 0600)
	if err != nil {
		err = errors.Wrapf(err, "failed to write file: %s", outputPath)
		return err
	}

	return err
}

// ConvertMarkdownFile reads markdownPath and renders it with conv into outputPath.
func ConvertMarkdownFile(ctx context.Context, conv Converter, markdownPath, outputPath string) (err error) {
	err = validateFiles(markdownPath)
	if err != nil {
		return err
	}

	var data []byte
	data, err = os.ReadFile(markdownPath)
	if err != nil {
		err = errors.Wrapf(err, "failed to read markdown file: %s", markdownPath)
		return err
	}

	if !conv.ConvertFile(ctx, string(data), outputPath) {
		err = errors.Errorf("failed to render %s to %s", markdownPath, outputPath)
		return err
	}

	return err
}

// SwapExtension replaces the extension of path with ext (which includes the dot).
func SwapExtension(path, ext string) (swapped string) {
	swapped = strings.TrimSuffix(path, filepath.Ext(path)) + ext
	return swapped
}

// validateFiles checks that required files exist.
func validateFiles(paths ...string) (err error) {
	for _, path := range paths {
		_, err = os.Stat(path)
		if os.IsNotExist(err) {
			err = errors.Errorf("file not found: %s", path)
			return err
		}
	}
	return err
}
