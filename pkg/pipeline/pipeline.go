package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikogura/resume-optimizer/pkg/extract"
	"github.com/nikogura/resume-optimizer/pkg/history"
	"github.com/nikogura/resume-optimizer/pkg/llm"
	"github.com/nikogura/resume-optimizer/pkg/prompts"
	"github.com/nikogura/resume-optimizer/pkg/renderer"
	"github.com/nikogura/resume-optimizer/pkg/request"
)

// SystemPrompt is the persona turn sent ahead of every expanded template.
const SystemPrompt = "Expert resume writer"

type requestIDKey struct{}

// WithRequestID tags ctx with the ID history entries are filed under.
func WithRequestID(ctx context.Context, id string) (tagged context.Context) {
	tagged = context.WithValue(ctx, requestIDKey{}, id)
	return tagged
}

// RequestIDFrom returns the request ID carried by ctx, or "".
func RequestIDFrom(ctx context.Context) (id string) {
	id, _ = ctx.Value(requestIDKey{}).(string)
	return id
}

// Deps are the collaborators an Orchestrator is built from.
type Deps struct {
	Templates  prompts.Loader
	Completer  llm.Completer
	Converters []renderer.Converter
	History    history.Recorder
	OutputDir  string
	Now        func() time.Time
	Logger     *slog.Logger
}

// Orchestrator turns one generation request into files on disk.
type Orchestrator struct {
	templates  prompts.Loader
	completer  llm.Completer
	converters []renderer.Converter
	history    history.Recorder
	outputDir  string
	now        func() time.Time
	logger     *slog.Logger
}

// NewOrchestrator wires an Orchestrator. Nil History disables history; nil Now uses time.Now.
func NewOrchestrator(deps Deps) (o *Orchestrator) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	o = &Orchestrator{
		templates:  deps.Templates,
		completer:  deps.Completer,
		converters: deps.Converters,
		history:    deps.History,
		outputDir:  deps.OutputDir,
		now:        deps.Now,
		logger:     deps.Logger,
	}
	return o
}

// ProduceFor builds a request with defaults from positional values and produces its files.
func (o *Orchestrator) ProduceFor(ctx context.Context, types []string, resume, jobDescription, jobTitle, company string) {
	o.ProduceFiles(ctx, request.New(types, resume, jobDescription, jobTitle, company))
}

// ProduceFiles generates every requested document type in order. Failures are logged per type
// and never stop the remaining types.
func (o *Orchestrator) ProduceFiles(ctx context.Context, req request.GenerationRequest) {
	requestID := RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	logger := o.logger.With(slog.String("request_id", requestID))
	logger.Info("producing files",
		slog.Any("types", req.DocumentTypes),
		slog.String("company", req.Company),
		slog.String("job_title", req.JobTitle))

	for _, docType := range req.DocumentTypes {
		entry := o.produceOne(ctx, logger, req, docType)
		entry.RequestID = requestID
		o.record(ctx, logger, entry)
	}
}

// produceOne runs a single document type and returns its history entry.
func (o *Orchestrator) produceOne(ctx context.Context, logger *slog.Logger, req request.GenerationRequest, docType string) (entry *history.Entry) {
	logger = logger.With(slog.String("type", docType))
	entry = &history.Entry{
		DocumentType:    docType,
		Company:         req.Company,
		JobTitle:        req.JobTitle,
		InterviewerName: req.InterviewerName,
		Temperature:     req.Temperature,
		Model:           req.Model,
		Status:          history.StatusCompleted,
	}

	// Load template
	template := o.templates.Load(docType)
	if template == "" {
		logger.Warn("no template for document type, skipping")
		entry.Status = history.StatusSkipped
		entry.ErrorMessage = "no template configured"
		return entry
	}

	// Expand and complete
	now := o.now()
	prompt := prompts.Expand(template, prompts.Variables(prompts.Fields{
		Resume:          req.Resume,
		JobDescription:  req.JobDescription,
		JobTitle:        req.JobTitle,
		Company:         req.Company,
		InterviewerName: req.InterviewerName,
	}, now))
	entry.ExpandedPrompt = prompt

	started := time.Now()
	resp := o.completer.Complete(ctx, llm.NewChatRequest(req.Model, req.Temperature, SystemPrompt, prompt))
	entry.ResponseTimeMs = time.Since(started).Milliseconds()

	if resp == nil {
		logger.Error("no response from completion service")
		return failed(entry, "no response from completion service")
	}

	raw, ok := resp.FirstContent()
	if !ok {
		logger.Error("completion response carried no content")
		return failed(entry, "completion response carried no content")
	}

	entry.TokenEstimate = resp.Usage.TotalTokens
	if entry.TokenEstimate <= 0 {
		entry.TokenEstimate = llm.EstimateTokens(prompt) + llm.EstimateTokens(raw)
	}

	content := extract.Extract(raw)
	entry.GeneratedContent = content.Body
	if strings.TrimSpace(content.Body) == "" {
		logger.Error("extracted content is empty")
		return failed(entry, "extracted content is empty")
	}

	// Ensure output directory exists
	err := os.MkdirAll(o.outputDir, 0750)
	if err != nil {
		logger.Error("unable to create output directory", slog.String("dir", o.outputDir), slog.Any("error", err))
		return failed(entry, err.Error())
	}

	stamp := now.Format(StampLayout)
	mdPath := filepath.Join(o.outputDir, DocumentBase(docType, req.Company, req.JobTitle, stamp)+".md")
	entry.FilePath = mdPath

	err = renderer.WriteMarkdown(content.Body, mdPath)
	if err != nil {
		logger.Error("unable to write markdown", slog.String("path", mdPath), slog.Any("error", err))
		return failed(entry, err.Error())
	}
	logger.Info("markdown saved", slog.String("path", mdPath))

	// Secondary formats are best effort
	for _, conv := range o.converters {
		outPath := renderer.SwapExtension(mdPath, conv.Extension())
		if !conv.ConvertFile(ctx, content.Body, outPath) {
			logger.Warn("conversion failed", slog.String("path", outPath))
		}
	}

	if content.HasSuggestion() {
		suggestionsPath := filepath.Join(o.outputDir, SuggestionsName(req.Company, req.JobTitle, stamp))
		err = renderer.WriteMarkdown(content.Suggestion, suggestionsPath)
		if err != nil {
			logger.Error("unable to write suggestions", slog.String("path", suggestionsPath), slog.Any("error", err))
		} else {
			logger.Info("suggestions saved", slog.String("path", suggestionsPath))
		}
	}

	return entry
}

func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, entry *history.Entry) {
	if o.history == nil {
		return
	}
	err := o.history.Record(ctx, entry)
	if err != nil {
		logger.Error("unable to record history", slog.String("type", entry.DocumentType), slog.Any("error", err))
	}
}

func failed(entry *history.Entry, message string) (out *history.Entry) {
	entry.Status = history.StatusFailed
	entry.ErrorMessage = message
	out = entry
	return out
}
