package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/nikogura/resume-optimizer/pkg/history"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//nolint:gochecknoglobals // Cobra boilerplate
var historyType string

//nolint:gochecknoglobals // Cobra boilerplate
var historyLimit int

//nolint:gochecknoglobals // Cobra boilerplate
var historyCmd = &cobra.Command{
	Use:   "history [entry-id]",
	Short: "Show generation history",
	Long: `Show recent generations recorded in the history store, newest first.

With an entry ID, print that entry's expanded prompt and generated content.

Examples:
  # Last 50 generations
  resume-optimizer history

  # Last 10 cover letters
  resume-optimizer history --type cover --limit 10

  # One entry in full
  resume-optimizer history 3f1c...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyType, "type", "", "Only show this document type")
	historyCmd.Flags().IntVar(&historyLimit, "limit", history.DefaultLimit, "Maximum entries to show")
}

func runHistory(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()
	logger := newLogger(slog.LevelWarn)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := history.Open(ctx, cfg.History.DSN, logger)
	if err != nil {
		err = errors.Wrap(err, "failed to open history")
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		var entry history.Entry
		entry, err = store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		printEntry(entry)
		return err
	}

	var entries []history.Entry
	entries, err = store.List(ctx, history.Filter{DocumentType: historyType, Limit: historyLimit})
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No history entries found")
		return err
	}

	printEntries(entries)
	return err
}

// printEntries writes one aligned row per entry.
func printEntries(entries []history.Entry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tTYPE\tCOMPANY\tTITLE\tSTATUS\tMS\tTOKENS")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.DocumentType, e.Company, e.JobTitle,
			statusLabel(e.Status), e.ResponseTimeMs, e.TokenEstimate)
	}
	_ = w.Flush()
}

func printEntry(e history.Entry) {
	fmt.Printf("ID:          %s\n", e.ID)
	fmt.Printf("Request:     %s\n", e.RequestID)
	fmt.Printf("Created:     %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Type:        %s\n", e.DocumentType)
	fmt.Printf("Company:     %s\n", e.Company)
	fmt.Printf("Title:       %s\n", e.JobTitle)
	if e.InterviewerName != "" {
		fmt.Printf("Interviewer: %s\n", e.InterviewerName)
	}
	fmt.Printf("Model:       %s (temperature %.2f)\n", e.Model, e.Temperature)
	fmt.Printf("Status:      %s\n", statusLabel(e.Status))
	if e.ErrorMessage != "" {
		fmt.Printf("Error:       %s\n", e.ErrorMessage)
	}
	if e.FilePath != "" {
		fmt.Printf("File:        %s\n", e.FilePath)
	}

	fmt.Println("\n--- Prompt ---")
	fmt.Println(e.ExpandedPrompt)
	fmt.Println("\n--- Response ---")
	fmt.Println(e.GeneratedContent)
}

// statusLabel title-cases a status for display.
func statusLabel(status string) (label string) {
	label = cases.Title(language.English).String(status)
	return label
}
