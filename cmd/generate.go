package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nikogura/resume-optimizer/pkg/request"
	"github.com/nikogura/resume-optimizer/pkg/source"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var resumeInput string

//nolint:gochecknoglobals // Cobra boilerplate
var jobInput string

//nolint:gochecknoglobals // Cobra boilerplate
var documentTypes []string

//nolint:gochecknoglobals // Cobra boilerplate
var company string

//nolint:gochecknoglobals // Cobra boilerplate
var jobTitle string

//nolint:gochecknoglobals // Cobra boilerplate
var interviewer string

//nolint:gochecknoglobals // Cobra boilerplate
var temperature float64

//nolint:gochecknoglobals // Cobra boilerplate
var model string

//nolint:gochecknoglobals // Cobra boilerplate
var outputDir string

//nolint:gochecknoglobals // Cobra boilerplate
var mock bool

//nolint:gochecknoglobals // Cobra boilerplate
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate tailored documents for one job",
	Long: `Generate one or more tailored documents from a resume and a job description.

The resume and the job description can each be provided as:
- A file path (e.g., jd.txt)
- A URL (e.g., https://example.com/jobs/123)

Document types: ` + strings.Join(request.DocumentTypes(), ", ") + `

Example:
  resume-optimizer generate --resume resume.md --job jd.txt --company "Acme Corp" --title "Staff Engineer"
  resume-optimizer generate --resume resume.md --job https://example.com/jobs/123 --type resume --type cover
  resume-optimizer generate --resume resume.md --job jd.txt --type interview-reverse --interviewer "Pat Lee" --mock`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&resumeInput, "resume", "", "Resume file or URL (required)")
	generateCmd.Flags().StringVar(&jobInput, "job", "", "Job description file or URL (required)")
	generateCmd.Flags().StringArrayVar(&documentTypes, "type", []string{"resume"}, "Document type to generate (repeatable)")
	generateCmd.Flags().StringVar(&company, "company", "", "Company name (prompted for if not provided)")
	generateCmd.Flags().StringVar(&jobTitle, "title", "", "Job title (prompted for if not provided)")
	generateCmd.Flags().StringVar(&interviewer, "interviewer", "", "Interviewer name for interview and thank-you documents")
	generateCmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature (default from config)")
	generateCmd.Flags().StringVar(&model, "model", "", "Model name (default from config)")
	generateCmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory (default from config)")
	generateCmd.Flags().BoolVar(&mock, "mock", false, "Use canned replies instead of a language model")
	_ = generateCmd.MarkFlagRequired("resume")
	_ = generateCmd.MarkFlagRequired("job")
}

func runGenerate(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(slog.LevelWarn)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if mock {
		cfg.LLM.Mock = true
	}

	req, err := buildRequest(ctx, cfg.Defaults.Temperature, cfg.Defaults.Model)
	if err != nil {
		return err
	}

	svc := buildServices(ctx, cfg, logger)
	defer svc.Close()

	pool := svc.newPool(cfg)
	defer pool.Close()

	started := time.Now()
	done, err := pool.Submit(req)
	if err != nil {
		err = errors.Wrap(err, "failed to queue request")
		return err
	}

	err = waitForGeneration(ctx, done, fmt.Sprintf("Generating %s with %s...", strings.Join(req.DocumentTypes, ", "), svc.completer.Name()))
	if err != nil {
		return err
	}

	files := producedSince(cfg.OutputDir, started)
	if len(files) == 0 {
		err = errors.Errorf("no documents were produced in %s; rerun with --verbose for details", cfg.OutputDir)
		return err
	}

	fmt.Println("✓ Generation complete")
	for _, f := range files {
		fmt.Printf("  %s\n", f)
	}

	return err
}

// buildRequest gathers inputs from flags, files, URLs and prompts, and validates the result.
func buildRequest(ctx context.Context, defaultTemperature float64, defaultModel string) (req request.GenerationRequest, err error) {
	var resume string
	resume, err = source.Fetch(ctx, resumeInput)
	if err != nil {
		err = errors.Wrap(err, "failed to load resume")
		return req, err
	}

	var jobDescription string
	jobDescription, err = fetchAndLogJD(ctx, jobInput)
	if err != nil {
		return req, err
	}

	finalCompany := company
	if finalCompany == "" {
		finalCompany = promptForInput("Company name")
	}

	finalTitle := jobTitle
	if finalTitle == "" {
		finalTitle = promptForInput("Job title")
	}

	req = request.New(documentTypes, resume, jobDescription, finalTitle, finalCompany)
	req.InterviewerName = interviewer
	req.Temperature = pick(temperature, defaultTemperature)
	req.Model = defaultModel
	if model != "" {
		req.Model = model
	}

	err = req.Validate()
	if err != nil {
		err = errors.Wrap(err, "invalid request")
		return req, err
	}

	return req, err
}

// pick returns flagValue when set and fallback otherwise.
func pick(flagValue, fallback float64) (value float64) {
	value = fallback
	if flagValue != 0 {
		value = flagValue
	}
	return value
}

func fetchAndLogJD(ctx context.Context, jdInput string) (jobDescription string, err error) {
	if getVerbose() {
		fmt.Printf("Loading job description from: %s\n", jdInput)
	}

	jobDescription, err = source.Fetch(ctx, jdInput)
	if err != nil {
		// If fetching failed, offer to accept manual input
		fmt.Printf("\nWarning: Failed to fetch job description: %v\n", err)
		fmt.Println("This often happens with JavaScript-rendered pages (Lever, Workable, etc.)")
		fmt.Println("\nPlease paste the job description text below.")
		fmt.Println("When finished, press Ctrl+D (Unix/Mac) or Ctrl+Z then Enter (Windows):")
		fmt.Println()

		jobDescription, err = readAll(bufio.NewScanner(os.Stdin))
		if err != nil {
			return jobDescription, err
		}

		fmt.Printf("\nJob description received (%d characters)\n", len(jobDescription))
		return jobDescription, err
	}

	if getVerbose() {
		fmt.Printf("Job description loaded (%d characters)\n", len(jobDescription))
	}

	return jobDescription, err
}

// readAll joins scanned lines, rejecting blank input.
func readAll(scanner *bufio.Scanner) (text string, err error) {
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if scanner.Err() != nil {
		err = errors.Wrap(scanner.Err(), "failed to read job description from stdin")
		return text, err
	}

	text = strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		err = errors.New("no job description provided")
		return text, err
	}

	return text, err
}

func promptForInput(fieldName string) (input string) {
	fmt.Printf("%s was not provided.\n", fieldName)
	fmt.Printf("Please enter %s: ", strings.ToLower(fieldName))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		input = strings.TrimSpace(scanner.Text())
	}

	return input
}

// waitForGeneration blocks until done closes or ctx is cancelled, showing a spinner unless verbose.
func waitForGeneration(ctx context.Context, done <-chan struct{}, message string) (err error) {
	var genSpinner *spinner
	if !getVerbose() {
		genSpinner = newSpinner(message)
		genSpinner.start()
	} else {
		fmt.Println(message)
	}

	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Wrap(ctx.Err(), "generation interrupted")
	}

	if genSpinner != nil {
		genSpinner.stopSpinner()
	}

	return err
}

// producedSince lists regular files in dir modified at or after since, sorted by name.
func producedSince(dir string, since time.Time) (files []string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return files
	}

	// File systems with coarse timestamps can round down.
	cutoff := since.Add(-time.Second)
	for _, entry := range entries {
		info, infoErr := entry.Info()
		if infoErr != nil || !info.Mode().IsRegular() || info.ModTime().Before(cutoff) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(files)
	return files
}

// spinner provides a simple text-based progress indicator.
type spinner struct {
	message string
	stop    chan bool
	done    chan bool
	mu      sync.Mutex
	active  bool
}

func newSpinner(message string) (s *spinner) {
	s = &spinner{
		message: message,
		stop:    make(chan bool),
		done:    make(chan bool),
	}
	return s
}

func (s *spinner) start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.mu.Unlock()

	go func() {
		chars := []string{"|", "/", "-", "\\"}
		i := 0
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		fmt.Printf("%s ", s.message)
		for {
			select {
			case <-s.stop:
				// Clear the line and ensure cursor is at start of new line
				fmt.Printf("\r%s\r", strings.Repeat(" ", len(s.message)+2))
				s.done <- true
				return
			case <-ticker.C:
				fmt.Printf("\r%s %s", s.message, chars[i%len(chars)])
				i++
			}
		}
	}()
}

func (s *spinner) stopSpinner() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.stop <- true
	<-s.done

	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}
