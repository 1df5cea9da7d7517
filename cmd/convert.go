package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nikogura/resume-optimizer/pkg/renderer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var convertFormat string

//nolint:gochecknoglobals // Cobra boilerplate
var convertOutput string

//nolint:gochecknoglobals // Cobra boilerplate
var convertCmd = &cobra.Command{
	Use:   "convert <markdown-file>",
	Short: "Render a markdown file to PDF or DOCX",
	Long: `Render an existing markdown file to PDF or DOCX without calling a model.

PDF output needs a Chrome or Chromium binary (set renderer.chrome_path or CHROME_PATH
if it is not on PATH).

Example:
  resume-optimizer convert output/resume-Acme-Staff_Engineer-2025-03-04-03-05.md
  resume-optimizer convert notes.md --format docx --output ~/Documents/notes.docx`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVar(&convertFormat, "format", "pdf", "Output format: pdf or docx")
	convertCmd.Flags().StringVar(&convertOutput, "output", "", "Output path (default: input path with the new extension)")
}

func runConvert(cmd *cobra.Command, args []string) (err error) {
	mdPath := args[0]
	logger := newLogger(slog.LevelWarn)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var conv renderer.Converter
	conv, err = converterFor(convertFormat, cfg.Renderer.ChromePath, logger)
	if err != nil {
		return err
	}

	outPath := convertOutput
	if outPath == "" {
		outPath = renderer.SwapExtension(mdPath, conv.Extension())
	}

	err = renderer.ConvertMarkdownFile(context.Background(), conv, mdPath, outPath)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Wrote %s\n", outPath)
	return err
}

// converterFor maps a --format value to a renderer.
func converterFor(format, chromePath string, logger *slog.Logger) (conv renderer.Converter, err error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "pdf":
		conv = renderer.NewPDFRenderer(renderer.NewChromeEngine(chromePath, 0), logger)
	case "docx":
		conv = renderer.NewDocxRenderer(logger)
	default:
		err = errors.Errorf("unsupported format: %s (use pdf or docx)", format)
	}
	return conv, err
}
